package socketio

// Socket.IO event payloads arrive as loosely typed maps after JSON decoding.
// These helpers coerce the common shapes without panicking on bad input.

// firstMapArg extracts the first event argument as a map, if present.
func firstMapArg(args []any) (map[string]interface{}, bool) {
	if len(args) == 0 {
		return nil, false
	}
	m, ok := args[0].(map[string]interface{})
	return m, ok
}

// firstNumberArg extracts the first event argument as a number. Clients may
// send either a bare number or an object; this handles the bare case.
func firstNumberArg(args []any) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// getFloatFromMap safely extracts a float from a map.
func getFloatFromMap(m map[string]interface{}, key string, defaultVal float64) float64 {
	if m == nil {
		return defaultVal
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultVal
}

// getIntFromMap safely extracts an integer from a map.
func getIntFromMap(m map[string]interface{}, key string, defaultVal int) int {
	if m == nil {
		return defaultVal
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case int64:
		return int(v)
	}
	return defaultVal
}

// getStringFromMap safely extracts a string from a map.
func getStringFromMap(m map[string]interface{}, key string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return defaultVal
}

// getBoolFromMap safely extracts a boolean from a map.
func getBoolFromMap(m map[string]interface{}, key string, defaultVal bool) bool {
	if m == nil {
		return defaultVal
	}
	if v, ok := m[key].(bool); ok {
		return v
	}
	return defaultVal
}
