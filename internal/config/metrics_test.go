package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassifyConfigLoadError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "none", err: nil, want: "none"},
		{name: "validation", err: errors.New("validate config: DATABASE_URL is required"), want: "validation"},
		{name: "parse", err: errors.New("parse JWT_ACCESS_TTL: invalid duration"), want: "parse"},
		{name: "decode", err: errors.New("load config: 1 error(s) decoding"), want: "decode"},
		{name: "other", err: errors.New("some other load error"), want: "load"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyConfigLoadError(tc.err); got != tc.want {
				t.Fatalf("classifyConfigLoadError()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestRecordConfigValidationEventWithoutProvider(t *testing.T) {
	recordConfigValidationEvent(context.Background(), "", "error", "parse")
	if configEventsCounter() == nil {
		t.Fatal("expected counter from global meter provider")
	}
}

func FuzzNormalizeConfigProfileRobustness(f *testing.F) {
	f.Add("  Production  ")
	f.Add("   ")
	f.Add("")
	f.Add(strings.Repeat("A", 4096))

	f.Fuzz(func(t *testing.T, raw string) {
		got := normalizeConfigProfile(raw)
		if got == "" {
			t.Fatal("normalized profile must not be empty")
		}
		if strings.TrimSpace(raw) == "" && got != "unknown" {
			t.Fatalf("expected unknown for blank input, got %q", got)
		}
		if utf8.ValidString(raw) && !utf8.ValidString(got) {
			t.Fatalf("normalized profile must stay valid UTF-8: %q", got)
		}
	})
}
