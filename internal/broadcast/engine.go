package broadcast

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"drawchat/internal/message"
	"drawchat/pkg/logx"
)

type Engine struct {
	cfg       Config
	sessions  SessionLister
	transport Deliverer
	pruner    Pruner
	log       logx.Logger
}

// New builds an engine. pruner may be nil, in which case PruneStale has no effect.
func New(cfg Config, sessions SessionLister, transport Deliverer, pruner Pruner, log logx.Logger) *Engine {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		cfg:       cfg,
		sessions:  sessions,
		transport: transport,
		pruner:    pruner,
		log:       log.With(logx.String("component", "broadcast")),
	}
}

// Broadcast delivers msg to every session registered at the time of the scan.
// It fails only when the message cannot be encoded or the recipient set
// cannot be read.
func (e *Engine) Broadcast(ctx context.Context, msg message.ServerMessage) (Report, error) {
	payload, err := message.Encode(msg)
	if err != nil {
		return Report{}, err
	}
	recipients, err := e.sessions.Scan(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("broadcast %s: resolve recipients: %w", msg.Type(), err)
	}

	var (
		g         errgroup.Group
		rep       Report
		delivered atomic.Int32
		failed    atomic.Int32
		pruned    atomic.Int32
		origin    = msg.Origin()
		started   = time.Now()
	)
	if e.cfg.MaxInFlight > 0 {
		g.SetLimit(e.cfg.MaxInFlight)
	}

	for _, rec := range recipients {
		if e.cfg.ExcludeSender && origin != "" && rec.SessionID == origin {
			continue
		}
		rep.Attempted++
		sid := rec.SessionID
		// Tasks always return nil so no sibling is ever cancelled.
		g.Go(func() error {
			err := e.deliverOne(ctx, sid, payload)
			if err == nil {
				delivered.Add(1)
				return nil
			}
			failed.Add(1)
			e.log.Debug("delivery failed", logx.String("session", sid), logx.String("type", msg.Type()), logx.Err(err))
			if e.cfg.PruneStale && e.pruner != nil && errors.Is(err, ErrGone) {
				if perr := e.pruner.Prune(ctx, sid); perr != nil {
					e.log.Warn("prune failed", logx.String("session", sid), logx.Err(perr))
				} else {
					pruned.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Delivered = int(delivered.Load())
	rep.Failed = int(failed.Load())
	rep.Pruned = int(pruned.Load())
	e.log.Debug("broadcast done",
		logx.String("type", msg.Type()),
		logx.Int("attempted", rep.Attempted),
		logx.Int("delivered", rep.Delivered),
		logx.Int("failed", rep.Failed),
		logx.Int("pruned", rep.Pruned),
		logx.Duration("took", time.Since(started)),
	)
	return rep, nil
}

func (e *Engine) deliverOne(ctx context.Context, sid string, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("delivery panic", logx.String("session", sid), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = &DeliveryError{SessionID: sid, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DeliveryTimeout)
	defer cancel()
	if err := e.transport.Deliver(dctx, sid, payload); err != nil {
		return &DeliveryError{SessionID: sid, Err: err}
	}
	return nil
}
