package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
		"trace":   zerolog.TraceLevel,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("unknown level must not parse")
	}
}

func TestInitWriterAddsAppField(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "garden", "info")
	component := Component(logger, "repo")
	component.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, "garden") || !strings.Contains(out, "repo") || !strings.Contains(out, "hello") {
		t.Fatalf("missing fields in %q", out)
	}
}
