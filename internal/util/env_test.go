package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("DYLIFO_TEST_BOOL", "true")
	t.Setenv("DYLIFO_TEST_BAD_BOOL", "yes please")
	t.Setenv("DYLIFO_TEST_DURATION", "45s")
	t.Setenv("DYLIFO_TEST_EMPTY", "")

	if !GetEnvBool("DYLIFO_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	if GetEnvBool("DYLIFO_TEST_BAD_BOOL", false) {
		t.Fatal("expected default for unparsable bool")
	}
	if got := GetEnvDuration("DYLIFO_TEST_DURATION", time.Second); got != 45*time.Second {
		t.Fatalf("expected 45s, got %v", got)
	}
	if got := GetEnvString("DYLIFO_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty value, got %q", got)
	}
	if got := GetEnv("DYLIFO_TEST_UNSET_VARIABLE"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("DYLIFO_TEST_LIST", " https://a.example, ,https://b.example ")

	got := GetEnvList("DYLIFO_TEST_LIST")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list %q", got)
	}
	if got := GetEnvList("DYLIFO_TEST_UNSET_VARIABLE"); len(got) != 0 {
		t.Fatalf("expected empty list, got %q", got)
	}
}

func TestLoadEnv_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DYLIFO_TEST_DOTENV=from-file\nDYLIFO_TEST_PRESET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DYLIFO_TEST_PRESET", "from-process")
	t.Cleanup(func() { os.Unsetenv("DYLIFO_TEST_DOTENV") })

	LoadEnv(path)

	if got := GetEnv("DYLIFO_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := GetEnv("DYLIFO_TEST_PRESET"); got != "from-process" {
		t.Fatalf("expected process value to win, got %q", got)
	}
}
