package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandeepkv93/echo-backend/internal/config"
)

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"abc":               "***",
		"supersecretvalue1": "su******e1",
	}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Fatalf("mask(%q)=%q want %q", in, got, want)
		}
	}
}

func TestConfigRowsMaskSecrets(t *testing.T) {
	cfg := &config.Config{JWTSecret: "0123456789abcdef0123456789abcdef", HTTPAddr: ":8080"}
	for _, row := range configRows(cfg) {
		if row[0] == "JWT_SECRET" && strings.Contains(row[1], "456789") {
			t.Fatalf("secret leaked: %s", row[1])
		}
		if row[0] == "HTTP_ADDR" && row[1] != ":8080" {
			t.Fatalf("unexpected HTTP_ADDR row %v", row)
		}
	}
}

func TestMigrateAndConfigCommands(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := strings.Join([]string{
		"DATABASE_DRIVER=sqlite",
		"DATABASE_URL=" + filepath.Join(dir, "echo.db"),
		"JWT_SECRET=0123456789abcdef0123456789abcdef",
	}, "\n")
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envFile, "migrate"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "schema is up to date") {
		t.Fatalf("unexpected migrate output %q", out.String())
	}

	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envFile, "config"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out.String(), "DATABASE_DRIVER") || strings.Contains(out.String(), "0123456789abcdef0123") {
		t.Fatalf("unexpected config output %q", out.String())
	}
}
