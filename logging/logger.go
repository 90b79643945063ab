// Package logging builds the structured logger used for a single run.
//
// Human-readable records go to stderr through a text handler. When a log
// file is configured, JSON records are fanned out to it as well. Every record
// carries the run_id of the invocation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mdobak/go-xerrors"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/afero"

	"github.com/synqronlabs/spfasn/utils"
)

// Options configures New.
type Options struct {
	// Debug lowers the stderr threshold from warn to debug.
	Debug bool

	// Stderr receives the text handler output. Defaults to os.Stderr.
	Stderr io.Writer

	// FS and File select the JSON log file. File is opened for append and
	// created if missing. An empty File disables file logging.
	FS   afero.Fs
	File string

	// RunID is attached to every record. Generated when empty.
	RunID string
}

// Logger wraps a *slog.Logger together with the file it writes to.
type Logger struct {
	*slog.Logger
	runID string
	file  afero.File
}

// New creates the logger for one run.
func New(opts Options) (*Logger, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	runID := opts.RunID
	if runID == "" {
		runID = utils.GenerateID()
	}

	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	l := &Logger{runID: runID}
	handler := slog.Handler(textHandler)

	if opts.File != "" {
		fs := opts.FS
		if fs == nil {
			fs = afero.NewOsFs()
		}
		f, err := fs.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, xerrors.New(fmt.Errorf("open log file: %w", err))
		}
		l.file = f

		// The file always records at debug.
		fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceAttr,
		})
		handler = slogmulti.Fanout(fileHandler, textHandler)
	}

	l.Logger = slog.New(handler).With(slog.String("run_id", runID))
	return l, nil
}

// RunID returns the identifier attached to every record.
func (l *Logger) RunID() string {
	return l.runID
}

// Error logs err with its stack trace, when it carries one.
func (l *Logger) Error(msg string, err error, args ...any) {
	if err == nil {
		l.Logger.Error(msg, args...)
		return
	}
	l.Logger.Error(msg, append([]any{slog.Any("error", xerrors.New(err))}, args...)...)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	err, ok := a.Value.Any().(error)
	if !ok {
		return a
	}
	return slog.Group(a.Key,
		slog.String("msg", err.Error()),
		slog.Any("trace", marshalStack(err)),
	)
}

func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	s := make([]stackFrame, len(frames))
	for i, f := range frames {
		s[i] = stackFrame{
			Func:   f.Function,
			Source: f.File,
			Line:   f.Line,
		}
	}
	return s
}
