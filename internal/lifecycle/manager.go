// Package lifecycle owns the connect/disconnect transitions of the session
// registry. It is the only writer of the session store.
//
// Per session id: NONE -> CONNECTED on a valid connect, CONNECTED -> NONE on
// disconnect. Reconnecting an id overwrites its record; disconnecting an
// unknown id is an error.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drawchat/internal/session"
	"drawchat/pkg/logx"
)

type Manager struct {
	store session.Store
	log   logx.Logger
	now   func() time.Time
}

func New(store session.Store, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{
		store: store,
		log:   log.With(logx.String("component", "lifecycle")),
		now:   time.Now,
	}
}

// OnConnect records sessionID as connected on behalf of userID.
func (m *Manager) OnConnect(ctx context.Context, sessionID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &ValidationError{Field: "userId"}
	}
	if strings.TrimSpace(sessionID) == "" {
		return &ValidationError{Field: "sessionId"}
	}

	rec := session.Session{SessionID: sessionID, UserID: userID, ConnectedAt: m.now()}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("connect %s: %w", sessionID, err)
	}
	m.log.Debug("session connected", logx.String("session", sessionID), logx.String("user", userID))
	return nil
}

// OnDisconnect forgets sessionID. It fails with NotFoundError, without
// touching the store, if the id is not registered.
func (m *Manager) OnDisconnect(ctx context.Context, sessionID string) error {
	rec, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return &NotFoundError{SessionID: sessionID}
	}
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", sessionID, err)
	}
	if err := m.store.Delete(ctx, rec.SessionID); err != nil {
		return fmt.Errorf("disconnect %s: %w", sessionID, err)
	}
	m.log.Debug("session disconnected", logx.String("session", sessionID), logx.String("user", rec.UserID),
		logx.Duration("connected_for", m.now().Sub(rec.ConnectedAt)))
	return nil
}

// Prune drops a session the transport reported as unreachable. Unlike
// OnDisconnect it has no existence precondition: the record may already be
// gone by the time a failed delivery is reported.
func (m *Manager) Prune(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("prune %s: %w", sessionID, err)
	}
	m.log.Info("stale session pruned", logx.String("session", sessionID))
	return nil
}
