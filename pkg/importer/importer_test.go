package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/store"
)

func newImporter(t *testing.T) (*Importer, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	reg, err := registry.New(st, registry.Config{})
	require.NoError(t, err)
	return New(reg, nil), st
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01-axis.json", `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":18}},{"age":{"operator":"<","value":30}}]}}`)
	writeFile(t, dir, "02-axis-overlap.json", `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":25}}]}}`)
	writeFile(t, dir, "03-bad.json", `{"lender":"AXIS","rule":{"and":[]}}`)
	writeFile(t, dir, "04-hdfc.JSON", `{"lender":"HDFC","rule":{"and":[{"income":{"operator":">=","value":50000}}]}}`)
	writeFile(t, dir, ".hidden.json", `not json`)
	writeFile(t, dir, "notes.txt", `ignored`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	im, st := newImporter(t)

	report, err := im.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Files, 4)

	statuses := make(map[string]Status)
	for _, f := range report.Files {
		statuses[filepath.Base(f.Path)] = f.Status
	}
	assert.Equal(t, map[string]Status{
		"01-axis.json":         StatusCreated,
		"02-axis-overlap.json": StatusConflict,
		"03-bad.json":          StatusInvalid,
		"04-hdfc.JSON":         StatusCreated,
	}, statuses)
	assert.True(t, report.Failed())
	assert.Equal(t, 2, st.Count())

	// A second pass finds the stored rules already present.
	report, err = im.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(StatusPresent))
	assert.Zero(t, report.Count(StatusCreated))
	assert.Equal(t, 2, st.Count())
}

func TestImportDir_Missing(t *testing.T) {
	im, _ := newImporter(t)
	_, err := im.ImportDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestImportDir_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":18}}]}}`)
	im, st := newImporter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := im.ImportDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, st.Count())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"lender":"AXIS","rule":{"and":[{"age":{"operator":">","value":18}}]}}`)
	im, st := newImporter(t)

	var (
		mu      sync.Mutex
		reports []*Report
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- im.Watch(ctx, dir, WithDebounce(20*time.Millisecond), OnImport(func(r *Report, err error) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, r)
		}))
	}()

	require.Eventually(t, func() bool { return st.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "b.json", `{"lender":"HDFC","rule":{"and":[{"age":{"operator":">","value":18}}]}}`)
	require.Eventually(t, func() bool { return st.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, len(reports), 2)
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for range 5 {
		d.Trigger(func() { calls.Add(1) })
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
