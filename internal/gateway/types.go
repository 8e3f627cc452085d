package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	Path           string        `yaml:"path"`
	ReadLimit      int64         `yaml:"read_limit" split_words:"true"`
	WriteTimeout   time.Duration `yaml:"write_timeout" split_words:"true"`
	PongWait       time.Duration `yaml:"pong_wait" split_words:"true"`
	SendBuffer     int           `yaml:"send_buffer" split_words:"true"`
	InboundRate    float64       `yaml:"inbound_rate" split_words:"true"`
	InboundBurst   int           `yaml:"inbound_burst" split_words:"true"`
	AllowedOrigins []string      `yaml:"allowed_origins" split_words:"true"`
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.InboundBurst <= 0 {
		c.InboundBurst = 20
	}
	return c
}

// pingPeriod must stay below pongWait so the peer has time to answer.
func (c Config) pingPeriod() time.Duration { return c.PongWait * 9 / 10 }

// Client is one open WebSocket connection. Its id is the session id.
type Client struct {
	id     string
	userID string
	socket *websocket.Conn
	send   chan []byte

	// done is closed exactly once when the hub lets go of the client.
	// send is never closed, so a late Deliver cannot panic.
	done      chan struct{}
	closeOnce sync.Once

	limiter *rate.Limiter
}

func newClient(id, userID string, socket *websocket.Conn, cfg Config) *Client {
	limit := rate.Inf
	if cfg.InboundRate > 0 {
		limit = rate.Limit(cfg.InboundRate)
	}
	return &Client{
		id:      id,
		userID:  userID,
		socket:  socket,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, cfg.InboundBurst),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// tryEnqueue never blocks; used for diagnostics back to the sender.
func (c *Client) tryEnqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}
