package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"drawchat/internal/lifecycle"
	"drawchat/internal/message"
	"drawchat/pkg/logx"
)

type stubLifecycle struct {
	connectErr    error
	disconnectErr error
	panicOn       string
}

func (s stubLifecycle) OnConnect(context.Context, string, string) error {
	if s.panicOn == "connect" {
		panic("boom")
	}
	return s.connectErr
}

func (s stubLifecycle) OnDisconnect(context.Context, string) error { return s.disconnectErr }

type routerFunc func(ctx context.Context, sid string, raw []byte) error

func (f routerFunc) Route(ctx context.Context, sid string, raw []byte) error { return f(ctx, sid, raw) }

func okRouter() Router { return routerFunc(func(context.Context, string, []byte) error { return nil }) }

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(stubLifecycle{}, okRouter(), logx.Nop())
	for _, k := range []EventKind{EventConnect, EventDisconnect, EventData} {
		resp := d.Handle(context.Background(), Event{Kind: k, SessionID: "S1", UserID: "u"})
		assert.Equal(t, Response{Status: http.StatusOK, Body: "Success"}, resp, k.String())
		assert.True(t, resp.OK())
	}
}

func TestDispatchValidationIsUnauthorized(t *testing.T) {
	d := NewDispatcher(stubLifecycle{connectErr: &lifecycle.ValidationError{Field: "userId"}}, okRouter(), logx.Nop())
	resp := d.Handle(context.Background(), Event{Kind: EventConnect, SessionID: "S1"})
	assert.Equal(t, Response{Status: http.StatusUnauthorized, Body: "you must need to provide userId"}, resp)
}

func TestDispatchFailuresEchoBody(t *testing.T) {
	raw := []byte(`{"type":"nope"}`)
	unknown := routerFunc(func(context.Context, string, []byte) error {
		return &message.UnknownTypeError{Type: "nope", Raw: string(raw)}
	})
	panicking := routerFunc(func(context.Context, string, []byte) error {
		panic("kaboom")
	})

	cases := []struct {
		name string
		d    *Dispatcher
		kind EventKind
	}{
		{"not found", NewDispatcher(stubLifecycle{disconnectErr: &lifecycle.NotFoundError{SessionID: "S1"}}, okRouter(), logx.Nop()), EventDisconnect},
		{"unknown type", NewDispatcher(stubLifecycle{}, unknown, logx.Nop()), EventData},
		{"router panic", NewDispatcher(stubLifecycle{}, panicking, logx.Nop()), EventData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tc.d.Handle(context.Background(), Event{Kind: tc.kind, SessionID: "S1", Body: raw})
			assert.Equal(t, http.StatusInternalServerError, resp.Status)
			assert.Equal(t, `Malformed event body: {"type":"nope"}`, resp.Body)
		})
	}
}

func TestDispatchRecoversLifecyclePanic(t *testing.T) {
	d := NewDispatcher(stubLifecycle{panicOn: "connect"}, okRouter(), logx.Nop())
	resp := d.Handle(context.Background(), Event{Kind: EventConnect, SessionID: "S1", UserID: "u"})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestDispatchUnknownKind(t *testing.T) {
	d := NewDispatcher(stubLifecycle{}, okRouter(), logx.Nop())
	resp := d.Handle(context.Background(), Event{Kind: EventKind(99), SessionID: "S1"})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}
