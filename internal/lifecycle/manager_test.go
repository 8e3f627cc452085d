package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawchat/internal/session"
	"drawchat/pkg/logx"
)

// countingStore records writes made through it.
type countingStore struct {
	*session.MemoryStore
	puts    atomic.Int32
	deletes atomic.Int32
	getErr  error
}

func (c *countingStore) Put(ctx context.Context, s session.Session) error {
	c.puts.Add(1)
	return c.MemoryStore.Put(ctx, s)
}

func (c *countingStore) Delete(ctx context.Context, id string) error {
	c.deletes.Add(1)
	return c.MemoryStore.Delete(ctx, id)
}

func (c *countingStore) Get(ctx context.Context, id string) (session.Session, error) {
	if c.getErr != nil {
		return session.Session{}, c.getErr
	}
	return c.MemoryStore.Get(ctx, id)
}

func newManager() (*Manager, *countingStore) {
	st := &countingStore{MemoryStore: session.NewMemoryStore()}
	m := New(st, logx.Nop())
	m.now = func() time.Time { return time.UnixMilli(42) }
	return m, st
}

func TestConnectThenLookup(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	for _, tc := range []struct{ sid, uid string }{{"S1", "alice"}, {"S2", "alice"}, {"S3", "bob"}} {
		require.NoError(t, m.OnConnect(ctx, tc.sid, tc.uid))
		got, err := st.Get(ctx, tc.sid)
		require.NoError(t, err)
		assert.Equal(t, tc.sid, got.SessionID)
		assert.Equal(t, tc.uid, got.UserID)
		assert.True(t, got.ConnectedAt.Equal(time.UnixMilli(42)))
	}
}

func TestConnectWithoutUserIDIsRejected(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	for _, uid := range []string{"", "   "} {
		err := m.OnConnect(ctx, "S1", uid)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "userId", ve.Field)
	}
	assert.Zero(t, st.puts.Load())
	_, err := st.Get(ctx, "S1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestConnectWithoutSessionIDIsRejected(t *testing.T) {
	m, st := newManager()
	var ve *ValidationError
	require.ErrorAs(t, m.OnConnect(context.Background(), "", "alice"), &ve)
	assert.Zero(t, st.puts.Load())
}

func TestReconnectOverwrites(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	require.NoError(t, m.OnConnect(ctx, "S1", "alice"))
	require.NoError(t, m.OnConnect(ctx, "S1", "bob"))

	all, err := st.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bob", all[0].UserID)
}

func TestDisconnectUnknownSessionFails(t *testing.T) {
	m, st := newManager()

	err := m.OnDisconnect(context.Background(), "ghost")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.SessionID)
	assert.EqualError(t, err, `disconnect: session "ghost" does not exist`)
	assert.Zero(t, st.deletes.Load())
}

func TestDisconnectRemovesSession(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	require.NoError(t, m.OnConnect(ctx, "S1", "alice"))
	require.NoError(t, m.OnDisconnect(ctx, "S1"))

	_, err := st.Get(ctx, "S1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	// A second disconnect is not idempotent.
	var nf *NotFoundError
	assert.ErrorAs(t, m.OnDisconnect(ctx, "S1"), &nf)
}

func TestDisconnectPropagatesStoreFailure(t *testing.T) {
	m, st := newManager()
	boom := errors.New("store down")
	st.getErr = boom

	err := m.OnDisconnect(context.Background(), "S1")
	assert.ErrorIs(t, err, boom)
	var nf *NotFoundError
	assert.False(t, errors.As(err, &nf))
	assert.Zero(t, st.deletes.Load())
}

func TestPruneHasNoExistencePrecondition(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	require.NoError(t, m.OnConnect(ctx, "S1", "alice"))
	require.NoError(t, m.Prune(ctx, "S1"))
	require.NoError(t, m.Prune(ctx, "S1"))
	assert.EqualValues(t, 2, st.deletes.Load())

	_, err := st.Get(ctx, "S1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
