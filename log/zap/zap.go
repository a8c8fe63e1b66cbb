// Package zap adapts a *zap.Logger to kvault.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/kvault"
	"go.uber.org/zap"
)

var _ kvault.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New returns an adapter named "kvault". A nil l yields zap.NewNop.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l.Named("kvault")}
}

func (z Logger) Debug(msg string, f kvault.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f kvault.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f kvault.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f kvault.Fields) { z.L.Error(msg, fields(f)...) }

// fields converts in key order so output is stable. Errors keep zap's
// error encoding.
func fields(f kvault.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
