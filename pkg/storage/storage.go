// Package storage persists configuration across reboots in a SQLite
// database on flash. Absent rows are a normal condition: loads fall back
// to defaults, save errors surface only to the configuration caller.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// ScheduleConfig is the manually configured daily run window.
type ScheduleConfig struct {
	StartHour       int  `json:"startHour"`
	StartMinute     int  `json:"startMinute"`
	DurationHours   int  `json:"durationHours"`
	DurationMinutes int  `json:"durationMinutes"`
	Enabled         bool `json:"enabled"`
}

// SystemSettings are the operational thresholds and quotas.
type SystemSettings struct {
	MinRuntimeHours         int             `json:"minRuntimeHours"`
	MaxRuntimeHours         int             `json:"maxRuntimeHours"`
	BackwashIntervalDays    int             `json:"backwashIntervalDays"`
	BackwashDurationMinutes int             `json:"backwashDurationMinutes"`
	LowPriceThreshold       decimal.Decimal `json:"lowPriceThreshold"`
	HighPriceThreshold      decimal.Decimal `json:"highPriceThreshold"`
	TimezoneOffset          int             `json:"timezoneOffset"`
}

// WifiCredentials are kept for the provisioning surface; association is
// the operating system's job.
type WifiCredentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		StartHour:     8,
		StartMinute:   0,
		DurationHours: 4,
		Enabled:       true,
	}
}

func DefaultSettings() SystemSettings {
	return SystemSettings{
		MinRuntimeHours:         4,
		MaxRuntimeHours:         12,
		BackwashIntervalDays:    7,
		BackwashDurationMinutes: 5,
		LowPriceThreshold:       decimal.NewFromFloat(0.15),
		HighPriceThreshold:      decimal.NewFromFloat(0.30),
		TimezoneOffset:          0,
	}
}

const (
	configRowID = 1

	schemaScheduleConfig = `
CREATE TABLE IF NOT EXISTS schedule_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    start_hour INTEGER NOT NULL,
    start_minute INTEGER NOT NULL,
    duration_hours INTEGER NOT NULL,
    duration_minutes INTEGER NOT NULL,
    enabled BOOLEAN NOT NULL
);
`
	schemaSystemSettings = `
CREATE TABLE IF NOT EXISTS system_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    min_runtime_hours INTEGER NOT NULL,
    max_runtime_hours INTEGER NOT NULL,
    backwash_interval_days INTEGER NOT NULL,
    backwash_duration_minutes INTEGER NOT NULL,
    low_price_threshold TEXT NOT NULL,
    high_price_threshold TEXT NOT NULL,
    timezone_offset INTEGER NOT NULL
);
`
	schemaWifiCredentials = `
CREATE TABLE IF NOT EXISTS wifi_credentials (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    ssid TEXT NOT NULL,
    password TEXT NOT NULL
);
`
)

// Store is the persistence gateway.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database file and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite handles a single writer best.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	for _, schema := range []string{schemaScheduleConfig, schemaSystemSettings, schemaWifiCredentials} {
		if _, err := db.Exec(schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadScheduleConfig returns the persisted run window, or defaults when
// none has been saved yet.
func (s *Store) LoadScheduleConfig(ctx context.Context) (ScheduleConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT start_hour, start_minute, duration_hours, duration_minutes, enabled
		 FROM schedule_config WHERE id=?`, configRowID)

	var c ScheduleConfig
	err := row.Scan(&c.StartHour, &c.StartMinute, &c.DurationHours, &c.DurationMinutes, &c.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultScheduleConfig(), nil
	}
	if err != nil {
		return DefaultScheduleConfig(), fmt.Errorf("load schedule config: %w", err)
	}
	return c, nil
}

func (s *Store) SaveScheduleConfig(ctx context.Context, c ScheduleConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_config (id, start_hour, start_minute, duration_hours, duration_minutes, enabled)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			start_hour=excluded.start_hour,
			start_minute=excluded.start_minute,
			duration_hours=excluded.duration_hours,
			duration_minutes=excluded.duration_minutes,
			enabled=excluded.enabled`,
		configRowID, c.StartHour, c.StartMinute, c.DurationHours, c.DurationMinutes, c.Enabled)
	if err != nil {
		return fmt.Errorf("save schedule config: %w", err)
	}
	return nil
}

// LoadSettings returns the persisted settings, or defaults when none
// have been saved yet.
func (s *Store) LoadSettings(ctx context.Context) (SystemSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT min_runtime_hours, max_runtime_hours, backwash_interval_days,
		        backwash_duration_minutes, low_price_threshold, high_price_threshold, timezone_offset
		 FROM system_settings WHERE id=?`, configRowID)

	var c SystemSettings
	var low, high string
	err := row.Scan(&c.MinRuntimeHours, &c.MaxRuntimeHours, &c.BackwashIntervalDays,
		&c.BackwashDurationMinutes, &low, &high, &c.TimezoneOffset)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: %w", err)
	}

	if c.LowPriceThreshold, err = decimal.NewFromString(low); err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: bad low threshold %q: %w", low, err)
	}
	if c.HighPriceThreshold, err = decimal.NewFromString(high); err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: bad high threshold %q: %w", high, err)
	}
	return c, nil
}

func (s *Store) SaveSettings(ctx context.Context, c SystemSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_settings (id, min_runtime_hours, max_runtime_hours, backwash_interval_days,
			backwash_duration_minutes, low_price_threshold, high_price_threshold, timezone_offset)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			min_runtime_hours=excluded.min_runtime_hours,
			max_runtime_hours=excluded.max_runtime_hours,
			backwash_interval_days=excluded.backwash_interval_days,
			backwash_duration_minutes=excluded.backwash_duration_minutes,
			low_price_threshold=excluded.low_price_threshold,
			high_price_threshold=excluded.high_price_threshold,
			timezone_offset=excluded.timezone_offset`,
		configRowID, c.MinRuntimeHours, c.MaxRuntimeHours, c.BackwashIntervalDays,
		c.BackwashDurationMinutes, c.LowPriceThreshold.String(), c.HighPriceThreshold.String(),
		c.TimezoneOffset)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadWifiCredentials returns the stored credentials; empty credentials
// and no error when none are stored.
func (s *Store) LoadWifiCredentials(ctx context.Context) (WifiCredentials, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ssid, password FROM wifi_credentials WHERE id=?`, configRowID)

	var c WifiCredentials
	err := row.Scan(&c.SSID, &c.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return WifiCredentials{}, nil
	}
	if err != nil {
		return WifiCredentials{}, fmt.Errorf("load wifi credentials: %w", err)
	}
	return c, nil
}

func (s *Store) SaveWifiCredentials(ctx context.Context, c WifiCredentials) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wifi_credentials (id, ssid, password)
		 VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			ssid=excluded.ssid,
			password=excluded.password`,
		configRowID, c.SSID, c.Password)
	if err != nil {
		return fmt.Errorf("save wifi credentials: %w", err)
	}
	return nil
}
