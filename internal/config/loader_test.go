package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"SCHEDULER_HTTP_PORT",
	"SCHEDULER_SQLITE_PATH",
	"SCHEDULER_WRITE_TOKEN_HASH",
	"SCHEDULER_LOG_LEVEL",
	"SCHEDULER_BASE_TZ",
	"SCHEDULER_REDIS_ADDR",
	"SCHEDULER_REDIS_PASSWORD",
	"SCHEDULER_REDIS_DB",
	"SCHEDULER_REDIS_CHANNEL",
	"SCHEDULER_POLL_INTERVAL",
	"SCHEDULER_SNAPSHOT_ON_PUBLISH",
	"SCHEDULER_COMPLIANCE_CACHE_TTL",
	"SCHEDULER_LAWS_DAILY_OT_MIN",
	"SCHEDULER_LAWS_WEEKLY_OT_MIN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "roster.db" {
			t.Fatalf("unexpected default path: %q", cfg.SQLitePath)
		}
		if cfg.PollInterval != 30*time.Second {
			t.Fatalf("expected default poll interval 30s, got %s", cfg.PollInterval)
		}
		if cfg.RedisEnabled() {
			t.Fatalf("expected redis to be disabled by default")
		}
		if cfg.LawOverrides() != nil {
			t.Fatalf("expected no law overrides by default")
		}
		if cfg.SlogLevel() != slog.LevelInfo {
			t.Fatalf("expected info level, got %v", cfg.SlogLevel())
		}
	})

	t.Run("errors when the write token is required but missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		err = cfg.RequireWriteToken()
		if err == nil {
			t.Fatalf("expected error when the write token hash is missing")
		}
		expected := "必須の環境変数が設定されていません: SCHEDULER_WRITE_TOKEN_HASH"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}

		t.Setenv("SCHEDULER_WRITE_TOKEN_HASH", "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA")
		cfg, err = Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if err := cfg.RequireWriteToken(); err != nil {
			t.Fatalf("expected write token to be present: %v", err)
		}
	})

	t.Run("parses duration, numeric and nested fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_SQLITE_PATH", "/tmp/roster.db")
		t.Setenv("SCHEDULER_POLL_INTERVAL", "5s")
		t.Setenv("SCHEDULER_SNAPSHOT_ON_PUBLISH", "true")
		t.Setenv("SCHEDULER_REDIS_ADDR", "localhost:6379")
		t.Setenv("SCHEDULER_REDIS_DB", "2")
		t.Setenv("SCHEDULER_LAWS_DAILY_OT_MIN", "600")
		t.Setenv("SCHEDULER_LOG_LEVEL", "debug")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.PollInterval != 5*time.Second {
			t.Fatalf("expected poll interval 5s, got %s", cfg.PollInterval)
		}
		if !cfg.SnapshotOnPublish {
			t.Fatalf("expected snapshot on publish")
		}
		if opts := cfg.Notify(); opts.Addr != "localhost:6379" || opts.DB != 2 || opts.Channel == "" {
			t.Fatalf("unexpected notify options %+v", opts)
		}
		laws := cfg.LawOverrides()
		if laws == nil || laws.DailyOTMin == nil || *laws.DailyOTMin != 600 {
			t.Fatalf("expected daily overtime override 600, got %+v", laws)
		}
		if laws.WeeklyOTMin != nil {
			t.Fatalf("expected unset weekly override to stay nil")
		}
		if cfg.SlogLevel() != slog.LevelDebug {
			t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
		}
		if got := cfg.SQLite(); got.Path != "/tmp/roster.db" || got.JournalMode != "WAL" {
			t.Fatalf("unexpected sqlite config %+v", got)
		}
	})

	t.Run("reports every invalid variable", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "http")
		t.Setenv("SCHEDULER_POLL_INTERVAL", "soon")

		_, err := Load("")
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: SCHEDULER_HTTP_PORT, SCHEDULER_POLL_INTERVAL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "70000")
		t.Setenv("SCHEDULER_BASE_TZ", "Nowhere/Special")
		t.Setenv("SCHEDULER_LAWS_WEEKLY_OT_MIN", "-1")
		t.Setenv("SCHEDULER_LOG_LEVEL", "chatty")

		_, err := Load("")
		if err == nil {
			t.Fatalf("expected error for out of range values")
		}
		for _, name := range []string{"SCHEDULER_HTTP_PORT", "SCHEDULER_BASE_TZ", "SCHEDULER_LAWS_WEEKLY_OT_MIN", "SCHEDULER_LOG_LEVEL"} {
			if !strings.Contains(err.Error(), name) {
				t.Fatalf("expected %s in %q", name, err.Error())
			}
		}
	})

	t.Run("reads a config file below the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "roster.yaml")
		content := "http_port: 7070\nredis_channel: roster:test\nlaws:\n  weekly_ot_min: 2700\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("SCHEDULER_HTTP_PORT", "6060")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 6060 {
			t.Fatalf("expected environment to win, got %d", cfg.HTTPPort)
		}
		if cfg.RedisChannel != "roster:test" {
			t.Fatalf("expected channel from file, got %q", cfg.RedisChannel)
		}
		if laws := cfg.LawOverrides(); laws == nil || laws.WeeklyOTMin == nil || *laws.WeeklyOTMin != 2700 {
			t.Fatalf("expected weekly override from file, got %+v", laws)
		}
	})

	t.Run("fails on a missing config file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})
}
