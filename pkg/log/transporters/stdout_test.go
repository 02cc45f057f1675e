package transporters

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"datahunter/pkg/log"
)

func TestStdout_Write_OneJSONLinePerEntry(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	s := NewStdoutWithWriter(&buf)
	entry := log.Entry{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Level:     log.Warn,
		RequestID: "req-1",
		Message:   "submit refused",
		Fields:    log.Fields{"widget": "w-1", "error": errors.New("busy"), "url": "https://x.com/a?b=1&c=2"},
	}

	// Act
	err := s.Write(entry)

	// Assert
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), buf.String())
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	want := map[string]any{
		"level": "WARN", "msg": "submit refused", "request_id": "req-1",
		"widget": "w-1", "error": "busy", "url": "https://x.com/a?b=1&c=2",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if !strings.Contains(lines[0], "&c=2") {
		t.Errorf("html should not be escaped: %s", lines[0])
	}
}

func TestStdout_Write_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdoutWithWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Write(*log.NewEntry(log.Info, "tick").With("n", i))
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !json.Valid([]byte(line)) {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}

func TestStdout_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Debug, NewStdoutWithWriter(&buf))

	logger.With("tab", "https://x.com/home").Debug("session sync failed", "attempt", 3)
	logger.Close()

	out := buf.String()
	for _, want := range []string{`"tab":"https://x.com/home"`, `"attempt":3`, `"level":"DEBUG"`, `"caller":"stdout_test.go:`} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %s, got %s", want, out)
		}
	}
}
