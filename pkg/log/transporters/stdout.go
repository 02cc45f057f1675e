// Package transporters holds log destinations.
package transporters

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"datahunter/pkg/log"
)

// Stdout writes one JSON object per line.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout writes to os.Stdout.
func NewStdout() *Stdout {
	return NewStdoutWithWriter(os.Stdout)
}

// NewStdoutWithWriter writes to w. The collect command passes os.Stderr so
// stdout carries only its JSON result.
func NewStdoutWithWriter(w io.Writer) *Stdout {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Stdout{enc: enc}
}

func (s *Stdout) Name() string { return "stdout" }

func (s *Stdout) Write(entry log.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(entry)
}

func (s *Stdout) Close() error { return nil }
