package gateway

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"drawchat/pkg/logx"
)

// read turns inbound frames into data events until the socket fails, then
// unregisters the client and reports the disconnect.
func (c *Client) read(s *Server) {
	defer func() {
		s.hub.unregister(c)
		c.socket.Close()
		s.disconnect(c)
	}()

	c.socket.SetReadLimit(s.cfg.ReadLimit)
	_ = c.socket.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, frame, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("read failed", logx.String("session", c.id), logx.Err(err))
			}
			return
		}
		if !c.limiter.Allow() {
			s.log.Debug("inbound frame dropped (rate limited)", logx.String("session", c.id))
			c.reply(s, rateLimited)
			continue
		}

		resp := s.dispatcher.Handle(s.ctx(), Event{Kind: EventData, SessionID: c.id, Body: frame})
		if !resp.OK() {
			c.reply(s, resp)
		}
	}
}

// rateLimited answers frames the inbound limiter refused.
var rateLimited = Response{Status: http.StatusTooManyRequests, Body: "Too many events: frame dropped"}

// reply queues an error response for this client alone. The body may echo a
// binary or non-UTF-8 frame, and the write pump sends text frames, so invalid
// bytes are replaced before queueing.
func (c *Client) reply(s *Server, resp Response) {
	if !c.tryEnqueue(textFrame(resp.Body)) {
		s.log.Debug("error response dropped (send buffer full)", logx.String("session", c.id), logx.Int("status", resp.Status))
	}
}

func textFrame(body string) []byte {
	return []byte(strings.ToValidUTF8(body, string(utf8.RuneError)))
}

// write drains the send buffer to the socket and keeps the peer alive with pings.
func (c *Client) write(s *Server) {
	ticker := time.NewTicker(s.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("write failed", logx.String("session", c.id), logx.Err(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(s.cfg.WriteTimeout))
			return
		}
	}
}
