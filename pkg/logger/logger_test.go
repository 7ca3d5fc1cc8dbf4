package logger

import (
	"fmt"
	"testing"
)

type recorder struct {
	lines []string
}

func (r *recorder) record(level, message string, keyvals []any) {
	r.lines = append(r.lines, fmt.Sprintf("%s %s %v", level, message, keyvals))
}

func (r *recorder) Log(m string, kv ...any)   { r.record("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.record("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.record("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.record("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.record("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.record("fatal", m, kv) }

func TestDispatch(t *testing.T) {
	t.Cleanup(func() { backends.Store(nil) })

	backends.Store(nil)
	Info("[Queue] dropped")

	a, b := &recorder{}, &recorder{}
	Init(a, b)

	tests := []struct {
		name string
		call func()
		want string
	}{
		{name: "log", call: func() { Log("[CLI] hello") }, want: "log [CLI] hello []"},
		{name: "debug", call: func() { Debug("[Extract] unit", "unit", 2) }, want: "debug [Extract] unit [unit 2]"},
		{name: "info", call: func() { Info("[Queue] merged", "base", "AQ.json") }, want: "info [Queue] merged [base AQ.json]"},
		{name: "warn", call: func() { Warn("[Queue] DLQ") }, want: "warn [Queue] DLQ []"},
		{name: "error", call: func() { Error("[Server] failed", "err", "boom") }, want: "error [Server] failed [err boom]"},
		{name: "fatal", call: func() { Fatal("[CLI] config") }, want: "fatal [CLI] config []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.lines, b.lines = nil, nil
			tt.call()
			for _, r := range []*recorder{a, b} {
				if len(r.lines) != 1 || r.lines[0] != tt.want {
					t.Fatalf("lines = %q, want %q", r.lines, tt.want)
				}
			}
		})
	}
}
