package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drawchat/internal/session"
)

// ErrGone is returned (or wrapped) by a Deliverer when the address no longer
// maps to a live connection.
var ErrGone = errors.New("recipient gone")

const defaultDeliveryTimeout = 10 * time.Second

// Deliverer is the push-to-address primitive of the transport. The address
// is the session id.
type Deliverer interface {
	Deliver(ctx context.Context, address string, payload []byte) error
}

// Pruner removes a session the transport reported as gone.
type Pruner interface {
	Prune(ctx context.Context, sessionID string) error
}

// SessionLister resolves the recipient set.
type SessionLister interface {
	Scan(ctx context.Context) ([]session.Session, error)
}

type Config struct {
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" split_words:"true"`

	// MaxInFlight bounds concurrent deliveries per broadcast. 0 means unbounded.
	MaxInFlight   int  `yaml:"max_in_flight" split_words:"true"`
	ExcludeSender bool `yaml:"exclude_sender" split_words:"true"`
	PruneStale    bool `yaml:"prune_stale" split_words:"true"`
}

// DeliveryError is a recipient-local failure. It never leaves the engine.
type DeliveryError struct {
	SessionID string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.SessionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Report summarizes one broadcast.
type Report struct {
	Attempted int
	Delivered int
	Failed    int
	Pruned    int
}
