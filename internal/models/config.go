package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Presale  PresaleConfigOptions
	Mirror   MirrorConfig
	HTTP     HTTPConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// PresaleConfigOptions holds engine-wide settings
type PresaleConfigOptions struct {
	ProgramId string
}

// MirrorConfig holds settings for replaying committed transfers into Formance
type MirrorConfig struct {
	Enabled         bool
	PollingInterval time.Duration
	BatchSize       int
	Formance        FormanceConfig
}

// FormanceConfig holds Formance Stack credentials
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// HTTPConfig holds the read-only HTTP surface settings
type HTTPConfig struct {
	ListenAddr string
}
