// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	Filename      string `yaml:"filename"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// BookingConfig holds the reservation policy. Zero values fall back to the
// defaults applied in Load.
type BookingConfig struct {
	MinDuration          time.Duration `yaml:"min_duration"`
	MaxDuration          time.Duration `yaml:"max_duration"`
	HoldWindow           time.Duration `yaml:"hold_window"`
	EditGrace            time.Duration `yaml:"edit_grace"`
	RescheduleMinLead    time.Duration `yaml:"reschedule_min_lead"`
	RescheduleFeePercent int           `yaml:"reschedule_fee_percent"`
	CancelCutoff         time.Duration `yaml:"cancel_cutoff"`
	FullRefundLead       time.Duration `yaml:"full_refund_lead"`
	PartialRefundPercent int           `yaml:"partial_refund_percent"`
	RecurringMinTier     string        `yaml:"recurring_min_tier"`
	Occupancy            string        `yaml:"occupancy"`
	Timezone             string        `yaml:"timezone"`
	HoldsPerMinute       int           `yaml:"holds_per_minute"`
}

type SchedulerConfig struct {
	HoldSweepCron  string `yaml:"hold_sweep_cron"`
	CompletionCron string `yaml:"completion_cron"`
	SweepBatchSize int    `yaml:"sweep_batch_size"`
}

type EventsConfig struct {
	AMQPURL  string `yaml:"-"` // Loaded from environment
	Exchange string `yaml:"exchange"`
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	FromAddress     string `yaml:"from_address"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Events    EventsConfig    `yaml:"events"`
	Email     EmailConfig     `yaml:"email"`

	Features struct {
		EnableDebug bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Events.AMQPURL = os.Getenv("AMQP_URL")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills policy defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset policy values with the facility defaults.
func (c *Config) ApplyDefaults() {
	b := &c.Booking
	if b.MinDuration == 0 {
		b.MinDuration = time.Hour
	}
	if b.MaxDuration == 0 {
		b.MaxDuration = 5 * time.Hour
	}
	if b.HoldWindow == 0 {
		b.HoldWindow = 5 * time.Minute
	}
	if b.EditGrace == 0 {
		b.EditGrace = 5 * time.Minute
	}
	if b.RescheduleMinLead == 0 {
		b.RescheduleMinLead = 24 * time.Hour
	}
	if b.RescheduleFeePercent == 0 {
		b.RescheduleFeePercent = 10
	}
	if b.CancelCutoff == 0 {
		b.CancelCutoff = 6 * time.Hour
	}
	if b.FullRefundLead == 0 {
		b.FullRefundLead = 24 * time.Hour
	}
	if b.PartialRefundPercent == 0 {
		b.PartialRefundPercent = 50
	}
	if b.RecurringMinTier == "" {
		b.RecurringMinTier = "gold"
	}
	if b.Occupancy == "" {
		b.Occupancy = "include_holds"
	}
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
	if b.HoldsPerMinute == 0 {
		b.HoldsPerMinute = 10
	}

	if c.Scheduler.HoldSweepCron == "" {
		c.Scheduler.HoldSweepCron = "* * * * *"
	}
	if c.Scheduler.CompletionCron == "" {
		c.Scheduler.CompletionCron = "*/5 * * * *"
	}
	if c.Scheduler.SweepBatchSize == 0 {
		c.Scheduler.SweepBatchSize = 500
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	b := c.Booking
	if b.MinDuration <= 0 || b.MaxDuration < b.MinDuration {
		return fmt.Errorf("booking durations must satisfy 0 < min <= max, got %s..%s", b.MinDuration, b.MaxDuration)
	}
	if b.CancelCutoff > b.FullRefundLead {
		return fmt.Errorf("booking cancel_cutoff %s must not exceed full_refund_lead %s", b.CancelCutoff, b.FullRefundLead)
	}
	if b.PartialRefundPercent < 0 || b.PartialRefundPercent > 100 {
		return fmt.Errorf("booking partial_refund_percent must be within 0..100")
	}
	if b.RescheduleFeePercent < 0 || b.RescheduleFeePercent > 100 {
		return fmt.Errorf("booking reschedule_fee_percent must be within 0..100")
	}
	switch b.RecurringMinTier {
	case "standard", "silver", "gold", "diamond":
	default:
		return fmt.Errorf("unknown booking recurring_min_tier: %s", b.RecurringMinTier)
	}
	switch b.Occupancy {
	case "include_holds", "confirmed_only":
	default:
		return fmt.Errorf("unknown booking occupancy policy: %s", b.Occupancy)
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}

	for name, expr := range map[string]string{
		"hold_sweep_cron": c.Scheduler.HoldSweepCron,
		"completion_cron": c.Scheduler.CompletionCron,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid scheduler %s %q: %w", name, expr, err)
		}
	}

	if c.Email.Enabled && c.Email.FromAddress == "" {
		return fmt.Errorf("email from_address is required when email is enabled")
	}

	return nil
}
