package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"drawchat/internal/lifecycle"
	"drawchat/pkg/logx"
)

type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventDisconnect
	EventData
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventData:
		return "data"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one unit of inbound work.
type Event struct {
	Kind      EventKind
	SessionID string
	UserID    string // connect only
	Body      []byte // data only
}

// Response is what the transport reports back for an event.
type Response struct {
	Status int
	Body   string
}

func (r Response) OK() bool { return r.Status == http.StatusOK }

const (
	bodySuccess      = "Success"
	bodyUnauthorized = "you must need to provide userId"
	bodyMalformed    = "Malformed event body: "
)

// Lifecycle is the connect/disconnect side of the core.
type Lifecycle interface {
	OnConnect(ctx context.Context, sessionID, userID string) error
	OnDisconnect(ctx context.Context, sessionID string) error
}

// Router is the data-frame side of the core.
type Router interface {
	Route(ctx context.Context, sessionID string, raw []byte) error
}

// Dispatcher sends each event to the right core component and converts the
// outcome into a Response. It never lets an event's failure escape.
type Dispatcher struct {
	lifecycle Lifecycle
	router    Router
	log       logx.Logger
}

func NewDispatcher(lc Lifecycle, r Router, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{lifecycle: lc, router: r, log: log.With(logx.String("component", "dispatch"))}
}

func (d *Dispatcher) Handle(ctx context.Context, ev Event) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panic",
				logx.String("event", ev.Kind.String()),
				logx.String("session", ev.SessionID),
				logx.String("body", string(ev.Body)),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			resp = malformed(ev)
		}
	}()

	var err error
	switch ev.Kind {
	case EventConnect:
		err = d.lifecycle.OnConnect(ctx, ev.SessionID, ev.UserID)
	case EventDisconnect:
		err = d.lifecycle.OnDisconnect(ctx, ev.SessionID)
	case EventData:
		err = d.router.Route(ctx, ev.SessionID, ev.Body)
	default:
		err = fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
	if err == nil {
		return Response{Status: http.StatusOK, Body: bodySuccess}
	}

	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		d.log.Info("connect rejected", logx.String("session", ev.SessionID), logx.Err(err))
		return Response{Status: http.StatusUnauthorized, Body: bodyUnauthorized}
	}
	d.log.Warn("event failed",
		logx.String("event", ev.Kind.String()),
		logx.String("session", ev.SessionID),
		logx.String("body", string(ev.Body)),
		logx.Err(err),
	)
	return malformed(ev)
}

func malformed(ev Event) Response {
	return Response{Status: http.StatusInternalServerError, Body: bodyMalformed + string(ev.Body)}
}
