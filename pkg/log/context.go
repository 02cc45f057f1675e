package log

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	fieldsKey
)

// WithRequestID tags ctx with the id of the control API request it serves.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns "" when ctx is nil or untagged.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithFields returns a ctx whose entries carry the given pairs on top of the
// ones already attached.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	fields := FieldsFromContext(ctx).clone().add(keysAndValues...)
	return context.WithValue(ctx, fieldsKey, fields)
}

// FieldsFromContext returns nil when ctx carries no fields.
func FieldsFromContext(ctx context.Context) Fields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey).(Fields)
	return fields
}
