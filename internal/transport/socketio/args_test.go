package socketio

import "testing"

func TestFirstMapArg(t *testing.T) {
	tests := []struct {
		name   string
		args   []any
		wantOK bool
	}{
		{"map argument", []any{map[string]interface{}{"videoId": "x"}}, true},
		{"no arguments", nil, false},
		{"string argument", []any{"not-a-map"}, false},
		{"number argument", []any{42.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := firstMapArg(tt.args)
			if ok != tt.wantOK {
				t.Errorf("firstMapArg(%v) ok = %v, want %v", tt.args, ok, tt.wantOK)
			}
		})
	}
}

func TestFirstNumberArg(t *testing.T) {
	tests := []struct {
		name   string
		args   []any
		want   float64
		wantOK bool
	}{
		{"float argument", []any{42.5}, 42.5, true},
		{"int argument", []any{int(7)}, 7, true},
		{"int64 argument", []any{int64(9)}, 9, true},
		{"map argument", []any{map[string]interface{}{}}, 0, false},
		{"no arguments", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstNumberArg(tt.args)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("firstNumberArg(%v) = (%v, %v), want (%v, %v)", tt.args, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGetFloatFromMap(t *testing.T) {
	m := map[string]interface{}{
		"float":  12.5,
		"int":    int(3),
		"int64":  int64(4),
		"string": "nope",
	}

	tests := []struct {
		name string
		key  string
		def  float64
		want float64
	}{
		{"float value", "float", -1, 12.5},
		{"int value", "int", -1, 3},
		{"int64 value", "int64", -1, 4},
		{"wrong type falls back", "string", -1, -1},
		{"missing key falls back", "missing", 99, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getFloatFromMap(m, tt.key, tt.def); got != tt.want {
				t.Errorf("getFloatFromMap(m, %q, %v) = %v, want %v", tt.key, tt.def, got, tt.want)
			}
		})
	}

	if got := getFloatFromMap(nil, "any", 7); got != 7 {
		t.Errorf("getFloatFromMap(nil) = %v, want 7", got)
	}
}

func TestGetStringFromMap(t *testing.T) {
	m := map[string]interface{}{
		"name":  "clip-1",
		"count": 3.0,
	}

	if got := getStringFromMap(m, "name", ""); got != "clip-1" {
		t.Errorf("expected clip-1, got %q", got)
	}
	if got := getStringFromMap(m, "count", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for non-string value, got %q", got)
	}
	if got := getStringFromMap(nil, "name", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for nil map, got %q", got)
	}
}

func TestGetBoolFromMap(t *testing.T) {
	m := map[string]interface{}{
		"muted": true,
		"rate":  1.5,
	}

	if got := getBoolFromMap(m, "muted", false); got != true {
		t.Errorf("expected true, got %v", got)
	}
	if got := getBoolFromMap(m, "rate", false); got != false {
		t.Errorf("expected default for non-bool value, got %v", got)
	}
	if got := getBoolFromMap(nil, "muted", true); got != true {
		t.Errorf("expected default for nil map, got %v", got)
	}
}
