package attrs

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...], the same
// shape slog variadic attrs use. Returns empty string if the key is not found
// or the value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// ExtractStringer is like ExtractString but also accepts values implementing
// fmt.Stringer, which is how typed IDs usually arrive in audit attrs.
func ExtractStringer(attrs []any, key string) string {
	if s := ExtractString(attrs, key); s != "" {
		return s
	}
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(interface{ String() string }); ok {
			return v.String()
		}
	}
	return ""
}
