package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DFN-master/izing-main/pkg/types"
)

func TestStore_PutAndGet(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	acc := &types.Account{ID: 7, Name: "main", TenantID: 3, Status: types.StatusDisconnected}
	require.NoError(t, s.Put(ctx, acc))

	got, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestStore_GetNotFound(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdatePartialFields(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	acc := &types.Account{ID: 7, Name: "main", TenantID: 3, Status: types.StatusQRCode, Retries: 2, QRCode: "qr", Session: "blob"}
	require.NoError(t, s.Put(ctx, acc))

	err := s.Update(ctx, acc, types.AccountUpdate{
		Status:  types.Ptr(types.StatusConnected),
		QRCode:  types.Ptr(""),
		Retries: types.Ptr(0),
	})
	require.NoError(t, err)

	// Refreshed in place.
	assert.Equal(t, types.StatusConnected, acc.Status)
	assert.Equal(t, "", acc.QRCode)
	assert.Equal(t, 0, acc.Retries)
	assert.Equal(t, "blob", acc.Session, "unset fields stay untouched")
	assert.Equal(t, "main", acc.Name)

	// Persisted too.
	got, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &types.Account{ID: 7, TenantID: 3}))
	require.NoError(t, s.Delete(ctx, 7))

	_, err := s.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, s.Delete(ctx, 7))
}

func TestStore_List(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &types.Account{ID: 9, TenantID: 1}))
	require.NoError(t, s.Put(ctx, &types.Account{ID: 2, TenantID: 1}))
	require.NoError(t, s.Put(ctx, &types.Account{ID: 5, TenantID: 2}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 2, list[0].ID)
	assert.Equal(t, 5, list[1].ID)
	assert.Equal(t, 9, list[2].ID)
}

func TestStore_ListEmpty(t *testing.T) {
	s := New(t.TempDir())

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
