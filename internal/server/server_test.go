package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DFN-master/izing-main/internal/accounts"
	"github.com/DFN-master/izing-main/internal/event"
	"github.com/DFN-master/izing-main/internal/queue"
	"github.com/DFN-master/izing-main/internal/wbot"
	"github.com/DFN-master/izing-main/pkg/types"
)

// errFactory stands in for the external client driver.
type errFactory struct{}

func (errFactory) New(wbot.Options) (wbot.Client, error) {
	return nil, errors.New("no driver in tests")
}

type fixture struct {
	server   *Server
	accounts *accounts.Store
	store    *wbot.Store
	fs       *wbot.FSManager
	bus      *event.Bus
	authRoot string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	authRoot := t.TempDir()
	f := &fixture{
		accounts: accounts.New(t.TempDir()),
		store:    wbot.NewStore(),
		fs:       wbot.NewFSManager(authRoot),
		bus:      event.NewBus(),
		authRoot: authRoot,
	}
	t.Cleanup(func() { f.bus.Close() })

	q := queue.New()
	t.Cleanup(func() { q.Close() })

	manager := wbot.NewManager(f.store, f.bus, q, f.accounts, errFactory{}, wbot.ManagerOptions{
		CheckInterval: time.Hour,
	})
	f.server = New(DefaultConfig(), manager, f.store, f.accounts, f.fs, f.bus)
	return f
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSessions_Empty(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []SessionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestGetSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc := &types.Account{ID: 7, Name: "main", TenantID: 3, Status: types.StatusConnected}
	require.NoError(t, f.accounts.Put(ctx, acc))

	rec := f.do(t, http.MethodGet, "/sessions/7")
	require.Equal(t, http.StatusOK, rec.Code)

	var st SessionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 7, st.Account.ID)
	assert.False(t, st.Live, "no handle registered yet")
}

func TestGetSession_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/sessions/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSession_BadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/sessions/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc := &types.Account{ID: 7, Name: "main", TenantID: 3, Status: types.StatusConnected, Session: "blob", QRCode: "qr"}
	require.NoError(t, f.accounts.Put(ctx, acc))

	// A stale auth cache exists on disk.
	cacheDir := f.fs.CachePath(7)
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))

	var published []event.Event
	defer f.bus.Subscribe(event.ChannelFor(3), func(e event.Event) {
		published = append(published, e)
	})()

	rec := f.do(t, http.MethodDelete, "/sessions/7")
	require.Equal(t, http.StatusOK, rec.Code)

	// Cache purged so the next start re-pairs from scratch.
	_, err := os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(err))

	// Record marked disconnected with pairing state cleared.
	got, err := f.accounts.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDisconnected, got.Status)
	assert.Equal(t, "", got.Session)
	assert.Equal(t, "", got.QRCode)

	// Tenant notified.
	require.Len(t, published, 1)
	assert.Equal(t, types.ActionUpdate, published[0].Payload.Action)
}

func TestDeleteSession_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/sessions/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSession_Accepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.accounts.Put(ctx, &types.Account{ID: 7, TenantID: 3, Status: types.StatusDisconnected}))

	rec := f.do(t, http.MethodPost, "/sessions/7/start")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestStartSession_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions/99/start")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
