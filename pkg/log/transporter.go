package log

// Transporter is a log destination.
type Transporter interface {
	Name() string
	Write(entry Entry) error
	// Close is called once, after the last Write.
	Close() error
}

type discard struct{}

func (discard) Name() string      { return "discard" }
func (discard) Write(Entry) error { return nil }
func (discard) Close() error      { return nil }
