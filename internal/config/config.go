// Package config defines the chewy application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/chewy/internal/availability"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/recurrence"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the top-level chewy configuration.
type Config struct {
	Server     ServerConfig   `yaml:"server"`
	DB         DBConfig       `yaml:"db"`
	Calendar   CalendarConfig `yaml:"calendar"`
	Auth       AuthConfig     `yaml:"auth"`
	Workday    WorkdayConfig  `yaml:"workday"`
	Timezone   string         `yaml:"timezone"`
	WindowDays int            `yaml:"window_days"`
	LogLevel   string         `yaml:"log_level"`
	LogFormat  string         `yaml:"log_format"` // "text" or "json"
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DBConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" (cgo) or "sqlite" (pure Go)
	Path   string `yaml:"path"`
}

type CalendarConfig struct {
	Dir            string `yaml:"dir"`
	ManagedMarker  string `yaml:"managed_marker"`
	SyncOnGenerate bool   `yaml:"sync_on_generate"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	AdminUser string `yaml:"admin_user"`
	AdminPass string `yaml:"admin_pass"` // bcrypt hash
}

// WorkdayConfig holds times of day as "HH:MM" and weekdays by name.
type WorkdayConfig struct {
	Start            string   `yaml:"start"`
	End              string   `yaml:"end"`
	Weekdays         []string `yaml:"weekdays"`
	RecurrenceAnchor string   `yaml:"recurrence_anchor"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":5000",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		DB: DBConfig{
			Driver: "sqlite3",
			Path:   "./chewy.db",
		},
		Calendar: CalendarConfig{
			Dir:           "./calendar",
			ManagedMarker: "chewy",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Workday: WorkdayConfig{
			Start:            "08:00",
			End:              "16:00",
			Weekdays:         []string{"mon", "tue", "wed", "thu", "fri"},
			RecurrenceAnchor: "09:00",
		},
		Timezone:   "Local",
		WindowDays: 7,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads a YAML config file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv returns a copy of base with CHEWY_* overrides applied.
func FromEnv(base *Config) *Config {
	cfg := *base
	cfg.Server.CORSOrigins = append([]string(nil), base.Server.CORSOrigins...)
	cfg.Workday.Weekdays = append([]string(nil), base.Workday.Weekdays...)

	if v, ok := getEnvString("CHEWY_ADDR"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := getEnvString("CHEWY_CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v, ok := getEnvString("CHEWY_DB_DRIVER"); ok {
		cfg.DB.Driver = v
	}
	if v, ok := getEnvString("CHEWY_DB_PATH"); ok {
		cfg.DB.Path = v
	}
	if v, ok := getEnvString("CHEWY_CALENDAR_DIR"); ok {
		cfg.Calendar.Dir = v
	}
	if v, ok := getEnvString("CHEWY_MANAGED_MARKER"); ok {
		cfg.Calendar.ManagedMarker = v
	}
	if v, ok := getEnvBool("CHEWY_SYNC_ON_GENERATE"); ok {
		cfg.Calendar.SyncOnGenerate = v
	}
	if v, ok := getEnvString("CHEWY_JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := getEnvString("CHEWY_ADMIN_USER"); ok {
		cfg.Auth.AdminUser = v
	}
	if v, ok := getEnvString("CHEWY_ADMIN_PASS"); ok {
		cfg.Auth.AdminPass = v
	}
	if v, ok := getEnvString("CHEWY_WORKDAY_START"); ok {
		cfg.Workday.Start = v
	}
	if v, ok := getEnvString("CHEWY_WORKDAY_END"); ok {
		cfg.Workday.End = v
	}
	if v, ok := getEnvString("CHEWY_WORKDAYS"); ok {
		cfg.Workday.Weekdays = splitList(v)
	}
	if v, ok := getEnvString("CHEWY_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvInt("CHEWY_WINDOW_DAYS"); ok && v > 0 {
		cfg.WindowDays = v
	}
	if v, ok := getEnvString("CHEWY_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("CHEWY_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	return &cfg
}

func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Timezone) {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) WorkCalendar() (availability.WorkCalendar, error) {
	start, err := model.ParseClock(c.Workday.Start)
	if err != nil {
		return availability.WorkCalendar{}, fmt.Errorf("%w: workday.start: %v", ErrInvalidConfig, err)
	}
	end, err := model.ParseClock(c.Workday.End)
	if err != nil {
		return availability.WorkCalendar{}, fmt.Errorf("%w: workday.end: %v", ErrInvalidConfig, err)
	}
	days := make([]time.Weekday, 0, len(c.Workday.Weekdays))
	for _, name := range c.Workday.Weekdays {
		d, err := model.ParseWeekday(name)
		if err != nil {
			return availability.WorkCalendar{}, fmt.Errorf("%w: workday.weekdays: %v", ErrInvalidConfig, err)
		}
		days = append(days, d)
	}
	loc, err := c.Location()
	if err != nil {
		return availability.WorkCalendar{}, err
	}
	cal := availability.WorkCalendar{DayStart: start, DayEnd: end, Weekdays: days, Location: loc}
	if err := cal.Validate(); err != nil {
		return availability.WorkCalendar{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cal, nil
}

func (c *Config) RecurrenceOptions() (recurrence.Options, error) {
	opts := recurrence.DefaultOptions()
	if strings.TrimSpace(c.Workday.RecurrenceAnchor) != "" {
		anchor, err := model.ParseClock(c.Workday.RecurrenceAnchor)
		if err != nil {
			return recurrence.Options{}, fmt.Errorf("%w: workday.recurrence_anchor: %v", ErrInvalidConfig, err)
		}
		opts.DefaultAnchor = anchor
	}
	loc, err := c.Location()
	if err != nil {
		return recurrence.Options{}, err
	}
	opts.Location = loc
	return opts, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Window(now time.Time) (time.Time, time.Time) {
	days := c.WindowDays
	if days <= 0 {
		days = 7
	}
	return now, now.AddDate(0, 0, days)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
