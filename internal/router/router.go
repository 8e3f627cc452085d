// Package router turns inbound data frames into outbound events.
package router

import (
	"context"
	"errors"

	"drawchat/internal/broadcast"
	"drawchat/internal/message"
	"drawchat/pkg/logx"
)

// Broadcaster is the fan-out side of the router.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg message.ServerMessage) (broadcast.Report, error)
}

type Router struct {
	engine Broadcaster
	log    logx.Logger
}

func New(engine Broadcaster, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{engine: engine, log: log.With(logx.String("component", "router"))}
}

// Route parses raw, maps it to exactly one outbound event and broadcasts it.
// Recipient filtering is left to the broadcast engine.
func (r *Router) Route(ctx context.Context, sessionID string, raw []byte) error {
	in, err := message.ParseClient(raw)
	if err != nil {
		var ue *message.UnknownTypeError
		if errors.As(err, &ue) {
			r.log.Warn("unknown message type", logx.String("session", sessionID), logx.String("type", ue.Type), logx.String("payload", ue.Raw))
		} else {
			r.log.Warn("malformed message", logx.String("session", sessionID), logx.String("payload", string(raw)), logx.Err(err))
		}
		return err
	}

	var out message.ServerMessage
	switch m := in.(type) {
	case message.CreateChatMessage:
		out = message.ChatMessageCreated{Message: m.Message, SessionID: sessionID}
	case message.CreateStroke:
		out = message.StrokeCreated{Stroke: m.Stroke}
	default:
		return &message.UnknownTypeError{Type: in.Type(), Raw: string(raw)}
	}

	rep, err := r.engine.Broadcast(ctx, out)
	if err != nil {
		return err
	}
	r.log.Debug("routed", logx.String("session", sessionID), logx.String("in", in.Type()), logx.String("out", out.Type()), logx.Int("recipients", rep.Attempted))
	return nil
}
