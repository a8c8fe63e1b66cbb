package kvault

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around logging stack
// (see log/zap, log/logrus, log/slog). If Logger is nil in Options, logging
// is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// WithFields returns a Logger that adds base to every record. Per-call
// fields win on conflict.
func WithFields(l Logger, base Fields) Logger {
	if l == nil {
		return NopLogger{}
	}
	if _, nop := l.(NopLogger); nop || len(base) == 0 {
		return l
	}
	return fieldLogger{inner: l, base: base}
}

type fieldLogger struct {
	inner Logger
	base  Fields
}

func (l fieldLogger) merge(f Fields) Fields {
	out := make(Fields, len(l.base)+len(f))
	for k, v := range l.base {
		out[k] = v
	}
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (l fieldLogger) Debug(msg string, f Fields) { l.inner.Debug(msg, l.merge(f)) }
func (l fieldLogger) Info(msg string, f Fields)  { l.inner.Info(msg, l.merge(f)) }
func (l fieldLogger) Warn(msg string, f Fields)  { l.inner.Warn(msg, l.merge(f)) }
func (l fieldLogger) Error(msg string, f Fields) { l.inner.Error(msg, l.merge(f)) }
