package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"drawchat/internal/census"
	"drawchat/pkg/logx"
)

// CensusSource reports the latest presence snapshot for /healthz.
type CensusSource interface {
	Last() census.Snapshot
}

// Server upgrades HTTP requests to WebSocket connections and feeds their
// events to the Dispatcher.
type Server struct {
	cfg        Config
	hub        *Hub
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	log        logx.Logger

	base   atomic.Pointer[context.Context]
	conns  sync.WaitGroup
	census atomic.Pointer[CensusSource]
}

func NewServer(cfg Config, hub *Hub, d *Dispatcher, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:        cfg,
		hub:        hub,
		dispatcher: d,
		log:        log.With(logx.String("component", "gateway")),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetCensus makes /healthz include the latest census snapshot.
func (s *Server) SetCensus(src CensusSource) {
	s.census.Store(&src)
}

// ctx is the context events run under; it ends when Serve's context does.
func (s *Server) ctx() context.Context {
	if p := s.base.Load(); p != nil {
		return *p
	}
	return context.Background()
}

// Handler exposes the WebSocket endpoint and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)
	mux.HandleFunc("/healthz", s.serveHealth)
	return mux
}

// Serve listens on cfg.Addr until ctx is done, then shuts the listener down
// and releases every connection.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener, which it takes ownership of.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.base.Store(&ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("gateway listening", logx.String("addr", ln.Addr().String()), logx.String("path", s.cfg.Path))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.hub.Close()

	// Hijacked sockets are not tracked by Shutdown; wait for their
	// disconnect events so the registry is clean before the store closes.
	drained := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		s.log.Warn("connections still draining at shutdown", logx.Int("connections", s.hub.Len()))
	}
	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	userID := r.URL.Query().Get("userId")

	// Reject before upgrading so the client sees a real 401.
	if strings.TrimSpace(userID) == "" {
		resp := s.dispatcher.Handle(s.ctx(), Event{Kind: EventConnect, SessionID: sessionID})
		http.Error(w, resp.Body, resp.Status)
		return
	}

	// Counted before Upgrade: once hijacked, Shutdown no longer sees the
	// connection and Serve may already be waiting on conns.
	s.conns.Add(1)
	defer s.conns.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.Debug("upgrade failed", logx.Err(err))
		return
	}

	client := newClient(sessionID, userID, conn, s.cfg)
	if !s.hub.register(client) {
		s.reject(client, Response{Status: http.StatusServiceUnavailable, Body: "shutting down"})
		return
	}
	// The socket is addressable before the session becomes visible to
	// broadcasts, so no broadcast can see a session it cannot reach.
	if resp := s.dispatcher.Handle(s.ctx(), Event{Kind: EventConnect, SessionID: sessionID, UserID: userID}); !resp.OK() {
		s.hub.unregister(client)
		s.reject(client, resp)
		return
	}
	s.log.Info("client connected", logx.String("session", sessionID), logx.String("user", userID))

	go client.write(s)
	client.read(s)
}

// reject closes a socket whose connect failed, with close code 4000+status.
func (s *Server) reject(c *Client, resp Response) {
	_ = c.socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(4000+resp.Status, resp.Body),
		time.Now().Add(s.cfg.WriteTimeout))
	c.socket.Close()
}

func (s *Server) disconnect(c *Client) {
	// Registry cleanup must outlive shutdown cancellation.
	ctx := context.WithoutCancel(s.ctx())
	resp := s.dispatcher.Handle(ctx, Event{Kind: EventDisconnect, SessionID: c.id})
	s.log.Info("client disconnected", logx.String("session", c.id), logx.String("user", c.userID), logx.Int("status", resp.Status))
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok", "connections": s.hub.Len()}
	if p := s.census.Load(); p != nil {
		if snap := (*p).Last(); !snap.At.IsZero() {
			body["census"] = map[string]any{
				"sessions": snap.Sessions,
				"users":    snap.Users,
				"at":       snap.At.UTC().Format(time.RFC3339),
			}
		}
	}
	b, err := sonic.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
