package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todolist/internal/config"
	"todolist/internal/store"
	"todolist/internal/tasks"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupCLI points the globals at a fresh data dir and clears env overrides.
func setupCLI(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"TODO_DB", "TODO_DB_DRIVER", "TODO_THEME", "TODO_DEBUG"} {
		t.Setenv(key, "")
	}
	logger = zap.NewNop()
	dataDir = t.TempDir()
	configPath = ""
	listPlain = false
	configForce = false
	return dataDir
}

func TestAddThenListPlain(t *testing.T) {
	setupCLI(t)

	output := captureOutput(t, func() {
		if err := runAdd(&cobra.Command{}, []string{"Buy milk", "2 liters"}); err != nil {
			t.Fatalf("runAdd returned error: %v", err)
		}
	})
	if !strings.Contains(output, "Added: Task: Buy milk, Description: 2 liters") {
		t.Fatalf("expected confirmation, got: %s", output)
	}
	if !strings.Contains(output, "1 task(s)") {
		t.Fatalf("expected task count, got: %s", output)
	}

	listPlain = true
	output = captureOutput(t, func() {
		if err := runList(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runList returned error: %v", err)
		}
	})
	if strings.TrimSpace(output) != "Task: Buy milk, Description: 2 liters" {
		t.Fatalf("unexpected list output: %q", output)
	}
}

func TestAddWithoutDescription(t *testing.T) {
	setupCLI(t)
	t.Setenv("TODO_DB_DRIVER", "sqlite")

	captureOutput(t, func() {
		require.NoError(t, runAdd(&cobra.Command{}, []string{"A"}))
		require.NoError(t, runAdd(&cobra.Command{}, []string{"B"}))
	})

	listPlain = true
	output := captureOutput(t, func() {
		require.NoError(t, runList(&cobra.Command{}, nil))
	})
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	assert.Equal(t, []string{"Task: A, Description: ", "Task: B, Description: "}, lines)
}

func TestListEmpty(t *testing.T) {
	setupCLI(t)
	listPlain = true

	output := captureOutput(t, func() {
		require.NoError(t, runList(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "No tasks yet.")
}

func TestListMarkdown(t *testing.T) {
	dir := setupCLI(t)
	cfg := config.DefaultConfig()
	cfg.UI.Theme = "light"
	require.NoError(t, cfg.Save(config.DefaultConfigPath(dir)))

	captureOutput(t, func() {
		require.NoError(t, runAdd(&cobra.Command{}, []string{"Buy milk", "2 liters"}))
	})

	output := captureOutput(t, func() {
		require.NoError(t, runList(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Tasks")
	assert.Contains(t, output, "milk")
	assert.Contains(t, output, "liters")
}

func TestInvalidDriverFails(t *testing.T) {
	setupCLI(t)
	t.Setenv("TODO_DB_DRIVER", "postgres")

	err := runAdd(&cobra.Command{}, []string{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestDatabaseOverride(t *testing.T) {
	setupCLI(t)
	dbPath := filepath.Join(t.TempDir(), "elsewhere", "mine.db")
	t.Setenv("TODO_DB", dbPath)

	output := captureOutput(t, func() {
		require.NoError(t, runAdd(&cobra.Command{}, []string{"A", "b"}))
	})
	assert.Contains(t, output, dbPath)
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := setupCLI(t)
	path := config.DefaultConfigPath(dir)

	output := captureOutput(t, func() {
		require.NoError(t, runConfigInit(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)

	output = captureOutput(t, func() {
		require.NoError(t, runConfigInit(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "already exists")

	configForce = true
	output = captureOutput(t, func() {
		require.NoError(t, runConfigInit(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Wrote")
}

func TestExplicitConfigPath(t *testing.T) {
	setupCLI(t)
	configPath = filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui:\n  theme: neon\n"), 0644))

	err := runAdd(&cobra.Command{}, []string{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom.yaml")
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	output := captureOutput(t, func() {
		require.NoError(t, rootCmd.Execute())
	})
	assert.Contains(t, output, "todo "+version)
}

func TestTasksMarkdown(t *testing.T) {
	md := tasksMarkdown([]tasks.Task{
		{ID: 1, Title: "Buy *milk*", Description: "2 liters"},
		{ID: 2, Title: "Call", Description: ""},
	})
	assert.Equal(t, "# Tasks\n\n- #1 **Buy \\*milk\\***: 2 liters\n- #2 **Call**\n", md)

	gapped := tasksMarkdown([]tasks.Task{{ID: 3, Title: "C"}, {ID: 7, Title: "D"}})
	assert.Contains(t, gapped, "- #3 **C**")
	assert.Contains(t, gapped, "- #7 **D**")
	assert.Contains(t, tasksMarkdown(nil), "_No tasks yet._")
}

func TestReportAdd(t *testing.T) {
	setupCLI(t)

	t.Run("stored but not reloaded", func(t *testing.T) {
		var err error
		output := captureOutput(t, func() {
			err = reportAdd("Buy milk", "2 liters",
				fmt.Errorf("%w: %w", tasks.ErrNotReloaded, store.ErrStorageRead))
		})
		require.NoError(t, err)
		assert.Contains(t, output, "Added: Task: Buy milk, Description: 2 liters")
		assert.Contains(t, output, "could not be reloaded")
	})

	t.Run("write failure", func(t *testing.T) {
		err := reportAdd("Buy milk", "", fmt.Errorf("%w: disk full", store.ErrStorageWrite))
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrStorageWrite)
		assert.Contains(t, err.Error(), `failed to add task "Buy milk"`)
	})
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
