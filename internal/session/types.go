package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = errors.New("session not found")

// Session is the registry's record of one open connection.
type Session struct {
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Store is the persistence contract consumed by the lifecycle manager
// (sole writer) and the broadcast engine (reader).
type Store interface {
	Get(ctx context.Context, sessionID string) (Session, error)
	// Put creates or overwrites the record keyed by s.SessionID.
	Put(ctx context.Context, s Session) error
	// Delete removes the record. Deleting a missing id is not an error.
	Delete(ctx context.Context, sessionID string) error
	// Scan returns a point-in-time snapshot of every record, in no particular order.
	Scan(ctx context.Context) ([]Session, error)
	Close() error
}

type Config struct {
	Driver string       `yaml:"driver"`
	Redis  RedisConfig  `yaml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type RedisConfig struct {
	URL       string `yaml:"url"`
	Prefix    string `yaml:"prefix"`
	ScanCount int64  `yaml:"scan_count" split_words:"true"`
}

type SQLiteConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" split_words:"true"`
}
