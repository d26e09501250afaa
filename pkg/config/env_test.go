package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("FOO", "")
	if got := GetEnv("FOO", "bar"); got != "bar" {
		t.Fatalf("expected bar, got %s", got)
	}
	t.Setenv("FOO", "baz")
	if got := GetEnv("FOO", "bar"); got != "baz" {
		t.Fatalf("expected baz, got %s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("NUM", "")
	if got := GetEnvInt("NUM", 42); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("NUM", "100")
	if got := GetEnvInt("NUM", 42); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	t.Setenv("NUM", "notint")
	if got := GetEnvInt("NUM", 7); got != 7 {
		t.Fatalf("expected 7 on parse error, got %d", got)
	}
}

func TestGetEnvBoolAndFloat(t *testing.T) {
	t.Setenv("FLAG", "false")
	if got := GetEnvBool("FLAG", true); got {
		t.Fatalf("expected false, got %v", got)
	}
	t.Setenv("TEMP", "0.7")
	if got := GetEnvFloat("TEMP", 0.4); got != 0.7 {
		t.Fatalf("expected 0.7, got %v", got)
	}
	t.Setenv("TEMP", "warm")
	if got := GetEnvFloat("TEMP", 0.4); got != 0.4 {
		t.Fatalf("expected default on parse error, got %v", got)
	}
}

func TestGetEnvDurations(t *testing.T) {
	t.Setenv("TIMEOUT", "15s")
	if got := GetEnvDuration("TIMEOUT", time.Second); got != 15*time.Second {
		t.Fatalf("expected 15s, got %s", got)
	}
	t.Setenv("TTL_MS", "2500")
	if got := GetEnvMillis("TTL_MS", time.Minute); got != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s, got %s", got)
	}
	t.Setenv("TTL_MS", "-5")
	if got := GetEnvMillis("TTL_MS", time.Minute); got != time.Minute {
		t.Fatalf("expected default for negative ttl, got %s", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("PLATFORMS", " reddit, ,tiktok ,")
	got := GetEnvList("PLATFORMS", nil)
	if !reflect.DeepEqual(got, []string{"reddit", "tiktok"}) {
		t.Fatalf("unexpected list %v", got)
	}
	t.Setenv("PLATFORMS", "")
	if got := GetEnvList("PLATFORMS", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected default list, got %v", got)
	}
}

func TestLoadEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOOKOUT_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOOKOUT_TEST_VALUE", "")

	LoadEnv(logrus.New())

	if got := os.Getenv("LOOKOUT_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if GetLogLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level")
	}
	t.Setenv("LOG_LEVEL", "")
	if GetLogLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level by default")
	}
}
