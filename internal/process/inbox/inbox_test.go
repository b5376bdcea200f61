package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

type fakeProcessor struct {
	results map[string]domain.Result
	errs    map[string]error
	seen    []string
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, id, _ string) (domain.Result, error) {
	f.seen = append(f.seen, id)

	if err := f.errs[id]; err != nil {
		return domain.Result{DocumentID: id}, err
	}

	return f.results[id], nil
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestWatcher_ProcessOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DoneDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, RejectedDir), 0o755))

	writeFile(t, dir, "b-dup.txt", "copied line")
	writeFile(t, dir, "a-new.txt", "fresh line")
	writeFile(t, dir, "c-retry.txt", "pending line")
	writeFile(t, dir, "notes.md", "ignored")

	proc := &fakeProcessor{
		results: map[string]domain.Result{
			"a-new": {Accepted: true},
			"b-dup": {Reason: domain.ReasonLSH, Ratio: 1},
		},
		errs: map[string]error{
			"c-retry": apperrors.ErrPersist,
		},
	}

	logger := zerolog.Nop()
	w := New(dir, 0, proc, &logger)

	sum, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Accepted: 1, Rejected: 1, Failed: 1}, sum)
	assert.Equal(t, []string{"a-new", "b-dup", "c-retry"}, proc.seen)

	assert.FileExists(t, filepath.Join(dir, DoneDir, "a-new.txt"))
	assert.FileExists(t, filepath.Join(dir, RejectedDir, "b-dup.txt"))
	assert.FileExists(t, filepath.Join(dir, "c-retry.txt"), "storage failures stay for retry")
	assert.FileExists(t, filepath.Join(dir, "notes.md"))
}

func TestWatcher_RunCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	writeProc := &fakeProcessor{}
	logger := zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(dir, 0, writeProc, &logger).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.DirExists(t, filepath.Join(dir, DoneDir))
	assert.DirExists(t, filepath.Join(dir, RejectedDir))
}

func TestWatcher_MissingDirectory(t *testing.T) {
	logger := zerolog.Nop()

	_, err := New(filepath.Join(t.TempDir(), "absent"), 0, &fakeProcessor{}, &logger).ProcessOnce(context.Background())
	assert.Error(t, err)
}
