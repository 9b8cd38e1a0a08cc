// Package runinfo carries per-run identity, timing and logging.
package runinfo

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Run is created once at the start of a pipeline run and read thereafter.
type Run struct {
	ID    string
	Start time.Time
	Log   zerolog.Logger
}

// New starts a run logging through log. The logger gains a run field.
func New(log zerolog.Logger) *Run {
	id := uuid.NewString()
	return &Run{
		ID:    id,
		Start: time.Now(),
		Log:   log.With().Str("run", id).Logger(),
	}
}

// Discard starts a run whose log output is dropped.
func Discard() *Run {
	return New(zerolog.New(io.Discard))
}

// Console returns the default human-readable stderr logger.
func Console() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.Start)
}

// Stage logs the start of a pipeline stage together with the elapsed time.
func (r *Run) Stage(name string) {
	r.Log.Info().
		Str("stage", name).
		Dur("elapsed", r.Elapsed().Round(10*time.Millisecond)).
		Msg("stage")
}
