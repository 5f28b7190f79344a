package logx

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// StumpySink adapts a logiface/stumpy JSON logger to the Logger interface.
// This is the production backend: each Entry becomes one JSON line, written
// through the teacher's own chained-builder idiom
// (logger.Info().Str(...).Int64(...).Log(msg)).
type StumpySink struct {
	logger *logiface.Logger[*stumpy.Event]
	level  Level
}

// NewStumpySink builds a StumpySink writing JSON lines to w (os.Stderr if
// nil), gated by the given minimum level.
func NewStumpySink(w io.Writer, level Level) *StumpySink {
	if w == nil {
		w = os.Stderr
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
		),
	)
	return &StumpySink{logger: logger, level: level}
}

func (s *StumpySink) Enabled(level Level) bool {
	return level >= s.level
}

func (s *StumpySink) Log(e Entry) {
	if !s.Enabled(e.Level) {
		return
	}

	var b *logiface.Builder[*stumpy.Event]
	switch e.Level {
	case LevelDebug:
		b = s.logger.Debug()
	case LevelWarn:
		b = s.logger.Warning()
	case LevelError:
		b = s.logger.Err()
	default:
		b = s.logger.Info()
	}

	b = b.Str("component", e.Component).
		Int64("tick", e.Tick).
		Int("cpu", e.CPU)
	for k, v := range e.Fields {
		switch val := v.(type) {
		case string:
			b = b.Str(k, val)
		case int:
			b = b.Int(k, val)
		case int64:
			b = b.Int64(k, val)
		case bool:
			b = b.Bool(k, val)
		case float64:
			b = b.Float64(k, val)
		default:
			b = b.Str(k, toString(val))
		}
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}

func toString(v any) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return ""
}
