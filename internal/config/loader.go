// Package config loads service settings from an optional config file and
// SCHEDULER_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/notify"
	"github.com/example/shift-roster/internal/persistence/sqlite/migration"
	"github.com/example/shift-roster/internal/timegrid"
)

const envPrefix = "SCHEDULER"

// Config captures configuration values for the roster service.
type Config struct {
	HTTPPort       int    `mapstructure:"http_port"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	WriteTokenHash string `mapstructure:"write_token_hash"`
	LogLevel       string `mapstructure:"log_level"`
	BaseTZ         string `mapstructure:"base_tz"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisChannel  string `mapstructure:"redis_channel"`

	PollInterval       time.Duration `mapstructure:"poll_interval"`
	SnapshotOnPublish  bool          `mapstructure:"snapshot_on_publish"`
	ComplianceCacheTTL time.Duration `mapstructure:"compliance_cache_ttl"`

	Laws compliance.LawsConfig `mapstructure:"laws"`
}

var (
	intKeys = []string{
		"http_port", "redis_db",
		"laws.daily_ot_min", "laws.daily_double_min", "laws.weekly_ot_min",
		"laws.require_meal_after", "laws.require_second_meal_after",
		"laws.rest_break_per_block", "laws.min_rest_between", "laws.min_rest_between_strong",
	}
	durationKeys = []string{"poll_interval", "compliance_cache_ttl"}
	boolKeys     = []string{"snapshot_on_publish"}
	stringKeys   = []string{
		"sqlite_path", "write_token_hash", "log_level", "base_tz",
		"redis_addr", "redis_password", "redis_channel",
	}
)

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads configuration. Values come from the environment first, then the
// config file at path (skipped when path is empty), then defaults.
//
// Invalid values are reported together, by environment variable name.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 8080)
	v.SetDefault("sqlite_path", "roster.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_tz", "America/Los_Angeles")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_channel", notify.DefaultChannel)
	v.SetDefault("poll_interval", "30s")
	v.SetDefault("snapshot_on_publish", false)
	v.SetDefault("compliance_cache_ttl", "5m")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are only seen by Unmarshal when bound.
	for _, key := range append(append([]string{}, intKeys...), stringKeys...) {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
		}
	}

	invalid := make([]string, 0)
	for _, key := range intKeys {
		if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
			if _, err := strconv.Atoi(raw); err != nil {
				invalid = append(invalid, EnvName(key))
			}
		}
	}
	for _, key := range durationKeys {
		if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
			if _, err := time.ParseDuration(raw); err != nil {
				invalid = append(invalid, EnvName(key))
			}
		}
	}
	for _, key := range boolKeys {
		if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
			if _, err := strconv.ParseBool(raw); err != nil {
				invalid = append(invalid, EnvName(key))
			}
		}
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("設定を解析できません: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	invalid := make([]string, 0)
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, EnvName("http_port"))
	}
	if strings.TrimSpace(c.SQLitePath) == "" || strings.Contains(c.SQLitePath, "?") {
		invalid = append(invalid, EnvName("sqlite_path"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, EnvName("log_level"))
	}
	if _, err := timegrid.LoadZone(c.BaseTZ); err != nil {
		invalid = append(invalid, EnvName("base_tz"))
	}
	if c.RedisDB < 0 {
		invalid = append(invalid, EnvName("redis_db"))
	}
	if c.PollInterval <= 0 {
		invalid = append(invalid, EnvName("poll_interval"))
	}
	if c.ComplianceCacheTTL < 0 {
		invalid = append(invalid, EnvName("compliance_cache_ttl"))
	}
	laws := map[string]*int{
		"laws.daily_ot_min":              c.Laws.DailyOTMin,
		"laws.daily_double_min":          c.Laws.DailyDoubleMin,
		"laws.weekly_ot_min":             c.Laws.WeeklyOTMin,
		"laws.require_meal_after":        c.Laws.RequireMealAfter,
		"laws.require_second_meal_after": c.Laws.RequireSecondMealAfter,
		"laws.rest_break_per_block":      c.Laws.RestBreakPerBlock,
		"laws.min_rest_between":          c.Laws.MinRestBetween,
		"laws.min_rest_between_strong":   c.Laws.MinRestBetweenStrong,
	}
	for _, key := range intKeys {
		if value, ok := laws[key]; ok && value != nil && *value < 0 {
			invalid = append(invalid, EnvName(key))
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// RequireWriteToken reports the write token hash as missing when unset.
// Only serving needs it.
func (c Config) RequireWriteToken() error {
	if strings.TrimSpace(c.WriteTokenHash) == "" {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", EnvName("write_token_hash"))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.New("unknown log level " + value)
}

// SQLite returns the connection settings for the configured database file.
func (c Config) SQLite() migration.SQLiteConfig {
	return migration.DefaultSQLiteConfig(c.SQLitePath)
}

// RedisEnabled reports whether live events should go through redis.
func (c Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// Notify returns the redis settings for live events.
func (c Config) Notify() notify.Options {
	return notify.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Channel:  c.RedisChannel,
	}
}

// LawOverrides returns the configured rule thresholds, or nil when none are set.
func (c Config) LawOverrides() *compliance.LawsConfig {
	if c.Laws == (compliance.LawsConfig{}) {
		return nil
	}
	laws := c.Laws
	return &laws
}
