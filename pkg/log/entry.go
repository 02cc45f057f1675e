package log

import (
	"encoding/json"
	"time"
)

// Entry is one structured log line.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Caller    string
	RequestID string
	Message   string
	Fields    Fields
}

// NewEntry stamps an entry with the current time.
func NewEntry(level Level, msg string) *Entry {
	return &Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Fields:    make(Fields),
	}
}

// With adds alternating key/value pairs.
func (e *Entry) With(keysAndValues ...any) *Entry {
	if e.Fields == nil {
		e.Fields = make(Fields)
	}
	e.Fields.add(keysAndValues...)
	return e
}

// MarshalJSON flattens the fields into the top-level object. Error values
// are written as their message.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+5)
	for k, v := range e.Fields {
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		m[k] = v
	}

	m["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	m["level"] = e.Level.String()
	m["msg"] = e.Message
	if e.Caller != "" {
		m["caller"] = e.Caller
	}
	if e.RequestID != "" {
		m["request_id"] = e.RequestID
	}
	return json.Marshal(m)
}
