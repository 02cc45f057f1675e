package log

// Fields holds the structured key/values of an entry.
type Fields map[string]any

// add copies alternating key/value pairs into f. Non-string keys and a
// trailing key without a value are skipped.
func (f Fields) add(keysAndValues ...any) Fields {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			f[key] = keysAndValues[i+1]
		}
	}
	return f
}

func (f Fields) merge(other Fields) Fields {
	for k, v := range other {
		f[k] = v
	}
	return f
}

func (f Fields) clone() Fields {
	return make(Fields, len(f)).merge(f)
}
