package wbot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RegisterIdempotent(t *testing.T) {
	store := NewStore()

	first := &Session{ID: 7, TenantID: 3, Client: newFakeClient()}
	second := &Session{ID: 7, TenantID: 3, Client: newFakeClient()}

	store.Register(first)
	store.Register(second)

	got, err := store.Lookup(7)
	require.NoError(t, err)
	assert.Same(t, first, got, "duplicate register must not replace the live handle")
}

func TestStore_LookupMissing(t *testing.T) {
	store := NewStore()

	_, err := store.Lookup(99)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	store := NewStore()

	// Must not panic or error.
	store.Remove(12345)
}

func TestStore_RemoveTearsDownClient(t *testing.T) {
	store := NewStore()
	fc := newFakeClient()
	store.Register(&Session{ID: 7, TenantID: 3, Client: fc})

	store.Remove(7)

	assert.Equal(t, 1, fc.destroyCalls())
	_, err := store.Lookup(7)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestStore_RemoveSwallowsTeardownError(t *testing.T) {
	store := NewStore()
	fc := newFakeClient()
	fc.destroyErr = errors.New("browser already gone")
	store.Register(&Session{ID: 7, TenantID: 3, Client: fc})

	// Removal must succeed from the caller's perspective.
	store.Remove(7)

	_, err := store.Lookup(7)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestStore_RemoveStopsMonitor(t *testing.T) {
	store := NewStore()
	sess := &Session{ID: 7, TenantID: 3, Client: newFakeClient()}
	store.Register(sess)

	mon := newMonitor(sess, store, &fakeDispatcher{}, 0)
	require.True(t, sess.attachMonitor(mon))

	store.Remove(7)
	assert.True(t, mon.Stopped())
}

func TestStore_RegisterRemoveRegisterRoundTrip(t *testing.T) {
	store := NewStore()

	first := &Session{ID: 7, TenantID: 3, Client: newFakeClient()}
	store.Register(first)
	store.Remove(7)

	fresh := &Session{ID: 7, TenantID: 3, Client: newFakeClient()}
	store.Register(fresh)

	got, err := store.Lookup(7)
	require.NoError(t, err)
	assert.Same(t, fresh, got, "removal must fully clear prior state")
}

func TestStore_List(t *testing.T) {
	store := NewStore()
	store.Register(&Session{ID: 9, TenantID: 1, Client: newFakeClient()})
	store.Register(&Session{ID: 2, TenantID: 1, Client: newFakeClient()})
	store.Register(&Session{ID: 5, TenantID: 2, Client: newFakeClient()})

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, 2, list[0].ID)
	assert.Equal(t, 5, list[1].ID)
	assert.Equal(t, 9, list[2].ID)
}
