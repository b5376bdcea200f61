// Package inbox feeds text files dropped into a directory through the detector.
//
// Every *.txt file is processed as one document whose id is the file name
// without the extension. Accepted files move to done/, duplicates to
// rejected/. Files that hit a storage error stay in place and are retried
// on the next poll.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
	"github.com/lueurxax/dupcheck/internal/platform/worker"
)

const (
	DoneDir     = "done"
	RejectedDir = "rejected"

	fileExt = ".txt"

	statusAccepted = "accepted"
	statusRejected = "rejected"
	statusFailed   = "failed"
	statusInvalid  = "invalid"

	logKeyFile = "file"
)

var errNoProgress = errors.New("no inbox file could be processed")

// Processor decides on one document.
type Processor interface {
	ProcessDocument(ctx context.Context, documentID, text string) (domain.Result, error)
}

// Watcher polls a directory for documents.
type Watcher struct {
	dir       string
	interval  time.Duration
	processor Processor
	periodic  []worker.PeriodicTask
	logger    *zerolog.Logger

	// maxBackoff caps the wait after polls in which no file made progress.
	maxBackoff time.Duration
}

// New creates a watcher over dir.
func New(dir string, interval time.Duration, processor Processor, logger *zerolog.Logger) *Watcher {
	return &Watcher{dir: dir, interval: interval, processor: processor, logger: logger}
}

// SetMaxBackoff caps the wait after failed polls. Zero uses the worker default.
func (w *Watcher) SetMaxBackoff(d time.Duration) {
	w.maxBackoff = d
}

// AddPeriodicTask schedules housekeeping alongside the polling loop.
func (w *Watcher) AddPeriodicTask(task worker.PeriodicTask) {
	w.periodic = append(w.periodic, task)
}

// Run polls until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{w.dir, filepath.Join(w.dir, DoneDir), filepath.Join(w.dir, RejectedDir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}

	return worker.Loop(ctx, worker.Config{
		Name:          "inbox",
		PollInterval:  w.interval,
		MaxBackoff:    w.maxBackoff,
		PeriodicTasks: w.periodic,
		Process: func(ctx context.Context) error {
			sum, err := w.ProcessOnce(ctx)
			if err != nil {
				return err
			}

			if sum.Failed > 0 && sum.Accepted+sum.Rejected == 0 {
				return fmt.Errorf("%w: %d files failed", errNoProgress, sum.Failed)
			}

			return nil
		},
		OnError: func(err error) bool {
			w.logger.Error().Err(err).Str("dir", w.dir).Msg("inbox poll failed")
			return true
		},
		Logger: w.logger,
	})
}

// Summary counts the files handled in one poll.
type Summary struct {
	Accepted int
	Rejected int
	Failed   int
}

// ProcessOnce handles every pending file in name order.
func (w *Watcher) ProcessOnce(ctx context.Context) (Summary, error) {
	var sum Summary

	files, err := w.pending()
	if err != nil {
		return sum, err
	}

	for _, path := range files {
		if ctx.Err() != nil {
			return sum, fmt.Errorf("inbox: %w", ctx.Err())
		}

		switch w.handle(ctx, path) {
		case statusAccepted:
			sum.Accepted++
		case statusRejected:
			sum.Rejected++
		default:
			sum.Failed++
		}
	}

	return sum, nil
}

func (w *Watcher) pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), fileExt) {
			continue
		}

		files = append(files, filepath.Join(w.dir, e.Name()))
	}

	sort.Strings(files)

	return files, nil
}

func (w *Watcher) handle(ctx context.Context, path string) (status string) {
	defer func() { observability.InboxFiles.WithLabelValues(status).Inc() }()
	defer worker.RecoverPanic(w.logger, "inbox file "+path)

	status = statusFailed

	name := filepath.Base(path)
	id := strings.TrimSuffix(name, filepath.Ext(name))

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error().Err(err).Str(logKeyFile, path).Msg("failed to read inbox file")
		return status
	}

	res, err := w.processor.ProcessDocument(ctx, id, string(data))
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidID) {
			w.move(path, RejectedDir)
			return statusInvalid
		}

		w.logger.Error().Err(err).Str(logKeyFile, path).Msg("inbox document not committed, will retry")

		return status
	}

	if res.Accepted {
		status = statusAccepted
		w.move(path, DoneDir)
	} else {
		status = statusRejected
		w.move(path, RejectedDir)
	}

	w.logger.Info().
		Str(logKeyFile, name).
		Str("status", status).
		Str("reason", string(res.Reason)).
		Float64("ratio", res.Ratio).
		Msg("inbox document processed")

	return status
}

func (w *Watcher) move(path, sub string) {
	dst := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		w.logger.Error().Err(err).Str(logKeyFile, path).Str("dest", dst).Msg("failed to move inbox file")
	}
}
