package logger

import "testing"

type entry struct {
	level   string
	message string
	keyvals []any
}

type recorder struct {
	entries []entry
}

func (r *recorder) add(level, message string, keyvals []any) {
	r.entries = append(r.entries, entry{level: level, message: message, keyvals: keyvals})
}

func (r *recorder) Log(m string, kv ...any)   { r.add("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.add("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.add("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.add("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.add("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.add("fatal", m, kv) }

func TestDispatchToAllInstances(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	t.Cleanup(func() { Init() })

	Info("[Test] info", "files", 3)
	Log("[Test] log", "run", "abc")
	Warn("[Test] warn")

	for _, r := range []*recorder{a, b} {
		if len(r.entries) != 3 {
			t.Fatalf("expected 3 entries, got %+v", r.entries)
		}
		if e := r.entries[1]; e.level != "log" || len(e.keyvals) != 2 || e.keyvals[1] != "abc" {
			t.Fatalf("expected key values to reach Log, got %+v", e)
		}
	}
}

func TestNoInstances(t *testing.T) {
	Init()
	Info("dropped")
	Error("dropped", "err", "x")
}
