package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/config"
	"github.com/sunflowerpos/sunflower/internal/domain"
)

func openTestBolt(t *testing.T) (*Bolt, string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "pos.db")
	s, err := OpenBolt(file)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, file
}

func TestBoltGetMissingKeepsDefault(t *testing.T) {
	s, _ := openTestBolt(t)
	products := []domain.Product{{ID: "default"}}

	found, err := s.Get(context.Background(), domain.KeyProducts, &products)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, products, 1)
}

func TestBoltSetGetDelete(t *testing.T) {
	s, _ := openTestBolt(t)
	ctx := context.Background()

	in := []domain.Product{{ID: "1", Name: "Yerba", Barcode: "779", Quantity: 4, Price: 1500}}
	require.NoError(t, s.Set(ctx, domain.KeyProducts, in))

	var out []domain.Product
	found, err := s.Get(ctx, domain.KeyProducts, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	require.NoError(t, s.Delete(ctx, domain.KeyProducts))
	found, err = s.Get(ctx, domain.KeyProducts, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltUpdateRollsBackOnError(t *testing.T) {
	s, _ := openTestBolt(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.Set(domain.KeySales, []domain.Sale{{ID: "s1"}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrPersistence)

	var sales []domain.Sale
	found, err := s.Get(ctx, domain.KeySales, &sales)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltViewIsReadOnly(t *testing.T) {
	s, _ := openTestBolt(t)

	err := s.View(context.Background(), func(tx Tx) error {
		return tx.Set(domain.KeyUsers, []domain.User{})
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestBoltSurvivesReopen(t *testing.T) {
	s, file := openTestBolt(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, domain.KeyUsers, []domain.User{{Username: "admin", Password: "1234", Role: domain.RoleAdmin}}))
	require.NoError(t, s.Close())

	reopened, err := OpenBolt(file)
	require.NoError(t, err)
	defer reopened.Close()

	var users []domain.User
	found, err := reopened.Get(ctx, domain.KeyUsers, &users)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "admin", users[0].Username)
}

func TestBoltCanceledContext(t *testing.T) {
	s, _ := openTestBolt(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, domain.KeySales, []domain.Sale{})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenRejectsUnknownType(t *testing.T) {
	_, err := Open(config.DBConfig{Type: "mysql"}, t.TempDir())
	assert.Error(t, err)
}

func TestOpenBoltRelativePath(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(config.DBConfig{Type: "bolt", Path: "pos.db"}, dir)
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, filepath.Join(dir, "data", "pos.db"))
}
