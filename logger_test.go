package kvault

import (
	"context"
	"sync"
	"testing"
)

type recLogger struct {
	mu   sync.Mutex
	msgs []string
	last Fields
}

func (l *recLogger) rec(level, msg string, f Fields) {
	l.mu.Lock()
	l.msgs = append(l.msgs, level+":"+msg)
	l.last = f
	l.mu.Unlock()
}

func (l *recLogger) Debug(msg string, f Fields) { l.rec("debug", msg, f) }
func (l *recLogger) Info(msg string, f Fields)  { l.rec("info", msg, f) }
func (l *recLogger) Warn(msg string, f Fields)  { l.rec("warn", msg, f) }
func (l *recLogger) Error(msg string, f Fields) { l.rec("error", msg, f) }

func TestWithFieldsMerges(t *testing.T) {
	rl := &recLogger{}
	l := WithFields(rl, Fields{"store": "a", "k": "base"})
	l.Warn("m", Fields{"k": "call"})
	if rl.last["store"] != "a" || rl.last["k"] != "call" {
		t.Fatalf("merged fields = %v", rl.last)
	}
	if _, ok := WithFields(nil, Fields{"a": 1}).(NopLogger); !ok {
		t.Fatalf("nil logger not replaced by NopLogger")
	}
}

func TestRegistryTagsStoreLogs(t *testing.T) {
	ctx := context.Background()
	rl := &recLogger{}
	r := NewRegistry(memFactory(nil), WithLogger(rl))
	defer r.Close(ctx)

	s, err := r.Resolve(ctx, NewIdentifier("/r", "x"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_ = s.Put(ctx, "k", Int(1), -1)
	if rl.last["store"] != "/r#x" || rl.last["key"] != "k" {
		t.Fatalf("put log fields = %v (msgs %v)", rl.last, rl.msgs)
	}
}
