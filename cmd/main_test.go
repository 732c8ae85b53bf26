package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file must be ignored: %v", err)
	}
	if err := loadEnvFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RELAY_TEST_FROM_FILE=file\nRELAY_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELAY_TEST_PRESET", "env")
	t.Setenv("RELAY_TEST_FROM_FILE", "")
	os.Unsetenv("RELAY_TEST_FROM_FILE")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("RELAY_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("RELAY_TEST_FROM_FILE = %q", got)
	}
	if got := os.Getenv("RELAY_TEST_PRESET"); got != "env" {
		t.Fatalf("environment must win over the file, got %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	if !strings.HasPrefix(out.String(), "media_relay_bot ") {
		t.Fatalf("version output = %q", out.String())
	}
}

func TestCheckConfigCommand(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456789:SECRETTOKENVALUE")
	t.Setenv("OWNER_USER_ID", "5")
	t.Setenv("USER_ID", "")
	t.Setenv("DESTINATION_CHANNEL_ID", "")
	t.Setenv("CHANNEL_ID", "")

	var out bytes.Buffer
	cmd := checkConfigCmd()
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("check-config: %v", err)
	}
	if strings.Contains(out.String(), "SECRETTOKENVALUE") || !strings.Contains(out.String(), "owner user id:      5") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}

	t.Setenv("OWNER_USER_ID", "not-a-number")
	if err := cmd.RunE(cmd, nil); err == nil || !strings.Contains(err.Error(), "OWNER_USER_ID") {
		t.Fatalf("want OWNER_USER_ID error, got %v", err)
	}
}
