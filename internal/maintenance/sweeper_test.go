package maintenance

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/link-review/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func agedPartition(t *testing.T, store *storage.LocalStore, age time.Duration) string {
	t.Helper()
	id := storage.NewPartitionID()
	_, err := store.SaveUpload(id, "links.csv", strings.NewReader("link\na\n"))
	require.NoError(t, err)

	dir, err := store.PartitionDir(id)
	require.NoError(t, err)
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(dir, ts, ts))
	return id
}

func TestSweeper_RemovesOnlyStalePartitions(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	stale := agedPartition(t, store, 25*time.Hour)
	fresh := agedPartition(t, store, time.Hour)

	res, err := NewSweeper(store, 24*time.Hour, zap.NewNop()).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, []string{stale}, res.Removed)
	assert.Empty(t, res.Failed)

	staleDir, _ := store.PartitionDir(stale)
	freshDir, _ := store.PartitionDir(fresh)
	_, err = os.Stat(staleDir)
	assert.True(t, os.IsNotExist(err), "25h old partition deleted")
	_, err = os.Stat(freshDir)
	assert.NoError(t, err, "1h old partition survives")
}

type flakyStore struct {
	partitions []storage.Partition
	failOn     string
	removed    []string
	listErr    error
}

func (f *flakyStore) Partitions() ([]storage.Partition, error) {
	return f.partitions, f.listErr
}

func (f *flakyStore) RemovePartition(id string) error {
	if id == f.failOn {
		return errors.New("permission denied")
	}
	f.removed = append(f.removed, id)
	return nil
}

func TestSweeper_ContinuesAfterFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-30 * time.Hour)
	store := &flakyStore{
		partitions: []storage.Partition{
			{ID: "a", ModTime: old},
			{ID: "b", ModTime: old},
			{ID: "c", ModTime: old},
		},
		failOn: "b",
	}

	s := NewSweeper(store, 0, zap.NewNop())
	s.now = func() time.Time { return now }

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, res.Removed)
	assert.Equal(t, []string{"b"}, res.Failed)
	assert.Equal(t, []string{"a", "c"}, store.removed)
}

func TestSweeper_BoundaryAndDefault(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &flakyStore{
		partitions: []storage.Partition{
			{ID: "exact", ModTime: now.Add(-DefaultMaxAge)},
			{ID: "older", ModTime: now.Add(-DefaultMaxAge - time.Second)},
		},
	}
	s := NewSweeper(store, -1, zap.NewNop())
	s.now = func() time.Time { return now }

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"older"}, res.Removed)
}

func TestSweeper_ListError(t *testing.T) {
	store := &flakyStore{listErr: errors.New("disk gone")}
	_, err := NewSweeper(store, time.Hour, zap.NewNop()).Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := &flakyStore{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(store, time.Hour, zap.NewNop()).Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
