package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"config.toml": FormatTOML,
		"config.yaml": FormatYAML,
		"config.YML":  FormatYAML,
		"config":      FormatTOML,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestParse_TOMLPosition(t *testing.T) {
	_, err := Parse("bad.toml", FormatTOML, []byte("a = 1\nb = = 2\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line != 2 {
		t.Errorf("Line = %d, want 2", pe.Line)
	}
	if !strings.Contains(pe.Error(), "bad.toml") {
		t.Errorf("error %q does not name the source", pe.Error())
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	for _, f := range []Format{FormatTOML, FormatYAML} {
		cfg, err := Parse("empty", f, nil)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if cfg == nil || len(cfg) != 0 {
			t.Errorf("%s: expected empty map, got %v", f, cfg)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"interpreter": map[string]any{"executable": "", "auto_start": false},
		"logging":     map[string]any{"level": "info"},
	}
	src := map[string]any{
		"interpreter": map[string]any{"executable": "sclang"},
		"extra":       1,
	}

	got := DeepMerge(dst, src)
	want := map[string]any{
		"interpreter": map[string]any{"executable": "sclang", "auto_start": false},
		"logging":     map[string]any{"level": "info"},
		"extra":       1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DeepMerge = %v, want %v", got, want)
	}
}

func TestClone_Deep(t *testing.T) {
	src := map[string]any{
		"a": map[string]any{"list": []any{"x", map[string]any{"k": "v"}}},
	}
	dst := Clone(src)
	dst["a"].(map[string]any)["list"].([]any)[0] = "changed"

	if src["a"].(map[string]any)["list"].([]any)[0] != "x" {
		t.Error("Clone shared slice storage")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatTOML, FormatYAML} {
		data, err := Marshal(f, Defaults())
		if err != nil {
			t.Fatalf("%s marshal: %v", f, err)
		}
		back, err := Parse("defaults", f, data)
		if err != nil {
			t.Fatalf("%s parse: %v", f, err)
		}
		v, ok := getByPath(back, "interpreter.output_encoding")
		if !ok || v != "utf-8" {
			t.Errorf("%s: output_encoding = %v", f, v)
		}
	}
}

func TestEnvLoader_Paths(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)
	l.lookup = func() []string {
		return []string{
			"SCATE_LOG_LEVEL=debug",
			"SCATE_SWINGOSC_PROGRAM=/opt/swing",
			"SCATE_INTERPRETER_ARGS=[\"-u\",\"57120\"]",
			"SCATE_CONFIG=/tmp/x.toml",
			"PATH=/bin",
		}
	}

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, _ := getByPath(cfg, KeyLogLevel); v != "debug" {
		t.Errorf("logging.level = %v", v)
	}
	if v, _ := getByPath(cfg, "swingosc.program"); v != "/opt/swing" {
		t.Errorf("swingosc.program = %v", v)
	}
	if v, _ := getByPath(cfg, KeyArgs); !reflect.DeepEqual(v, []any{"-u", "57120"}) {
		t.Errorf("interpreter.args = %#v", v)
	}
	if _, ok := cfg["config"]; ok {
		t.Error("SCATE_CONFIG has no section and must be ignored")
	}
}

func TestParseEnvValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"off", false},
		{"42", int64(42)},
		{"/opt/rt", "/opt/rt"},
		{"[1,2]", []any{float64(1), float64(2)}},
		{"[not json", "[not json"},
	}
	for _, tt := range tests {
		if got := parseEnvValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseEnvValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
