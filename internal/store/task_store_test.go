package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"todolist/internal/logging"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain ensures no goroutines leak from database handles.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var drivers = []string{"sqlite3", "sqlite"}

func openTestStore(t *testing.T, driver string) *TaskStore {
	t.Helper()
	s, err := Open(Options{Path: filepath.Join(t.TempDir(), DatabaseFile), Driver: driver})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := openTestStore(t, driver)
			ctx := context.Background()

			ok, err := tableExists(ctx, s.db, "tasks")
			require.NoError(t, err)
			assert.True(t, ok)

			v, err := s.schemaVersion(ctx)
			require.NoError(t, err)
			assert.Equal(t, SchemaVersion, v)
			assert.Equal(t, driver, s.Driver())
		})
	}
}

func TestListAll_EmptyStore(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := openTestStore(t, driver)

			tasks, err := s.ListAll(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, tasks)
			assert.Empty(t, tasks)
		})
	}
}

func TestInsert_AssignsUniqueIDs(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := openTestStore(t, driver)
			ctx := context.Background()

			seen := make(map[int64]bool)
			for i := 0; i < 25; i++ {
				id, err := s.Insert(ctx, "t", "d")
				require.NoError(t, err)
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
			}

			tasks, err := s.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 25)
			ids := make(map[int64]bool)
			for _, task := range tasks {
				assert.False(t, ids[task.ID], "duplicate id %d in ListAll", task.ID)
				ids[task.ID] = true
			}
		})
	}
}

func TestInsert_FirstTaskScenario(t *testing.T) {
	s := openTestStore(t, "sqlite3")
	ctx := context.Background()

	id, err := s.Insert(ctx, "Buy milk", "2 liters")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	tasks, err := s.ListAll(ctx)
	require.NoError(t, err)
	want := []Task{{ID: 1, Title: "Buy milk", Description: "2 liters"}}
	if diff := cmp.Diff(want, tasks); diff != "" {
		t.Fatalf("ListAll mismatch (-want +got):\n%s", diff)
	}
}

func TestInsert_EmptyFieldsAccepted(t *testing.T) {
	s := openTestStore(t, "sqlite")
	ctx := context.Background()

	_, err := s.Insert(ctx, "", "")
	require.NoError(t, err)

	tasks, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "", tasks[0].Title)
	assert.Equal(t, "", tasks[0].Description)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DatabaseFile)

	s, err := Open(Options{Path: path})
	require.NoError(t, err)
	_, err = s.Insert(context.Background(), "keep me", "across restarts")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(Options{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	tasks, err := s2.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "keep me", tasks[0].Title)

	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_Failures(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(Options{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
		assert.ErrorIs(t, err, ErrStorageInit)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Open(Options{})
		assert.ErrorIs(t, err, ErrStorageInit)
	})

	t.Run("parent is a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		_, err := Open(Options{Path: filepath.Join(blocker, "sub", DatabaseFile)})
		assert.ErrorIs(t, err, ErrStorageInit)
	})
}

func TestOperationErrorsAreTyped(t *testing.T) {
	s := openTestStore(t, "sqlite3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Insert(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = s.ListAll(ctx)
	assert.ErrorIs(t, err, ErrStorageRead)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(Options{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	_, err = s.Insert(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Count(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInsert_WritesStructuredLog(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, logging.Initialize(dataDir, logging.Options{DebugMode: true, Level: "debug", JSONFormat: true}))
	t.Cleanup(func() {
		logging.CloseAll()
		_ = logging.Initialize(dataDir, logging.Options{})
	})

	s := openTestStore(t, "sqlite3")
	_, err := s.Insert(context.Background(), "Buy milk", "2 liters")
	require.NoError(t, err)
	logging.CloseAll()

	matches, err := filepath.Glob(filepath.Join(dataDir, "logs", "*_store.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"task inserted"`)
	assert.Contains(t, string(data), `"title":"Buy milk"`)
}
