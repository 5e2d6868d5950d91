package config

import (
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SchedulerConfig tunes the background reconciler. It lives in a YAML file
// (memberd.yml) so batch sizes and job toggles can be changed without a
// restart.
type SchedulerConfig struct {
	RunInterval   time.Duration `mapstructure:"runInterval"`
	BatchSize     int           `mapstructure:"batchSize"`
	EnabledJobs   []string      `mapstructure:"enabledJobs"`
	ReminderDays  int           `mapstructure:"reminderDays"`
	ExpireRefunds bool          `mapstructure:"expireRefunds"`
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RunInterval:   time.Minute,
		BatchSize:     50,
		ReminderDays:  3,
		ExpireRefunds: true,
	}
}

func (c SchedulerConfig) WithDefaults() SchedulerConfig {
	defaults := DefaultSchedulerConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.ReminderDays <= 0 {
		c.ReminderDays = defaults.ReminderDays
	}
	return c
}

// SchedulerConfigHolder keeps the current SchedulerConfig and hot-reloads it
// when the backing file changes.
type SchedulerConfigHolder struct {
	current atomic.Value // holds SchedulerConfig
}

func NewSchedulerConfigHolder(cfg Config) (*SchedulerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("memberd")
	v.SetConfigType("yml")
	if path := strings.TrimSpace(cfg.SchedulerConfigPath); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/memberd")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEMBERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &SchedulerConfigHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultSchedulerConfig())
		return holder, nil
	}

	if err := holder.load(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(fsnotify.Event) {
		if err := holder.load(v); err != nil {
			log.Printf("scheduler config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *SchedulerConfigHolder) load(v *viper.Viper) error {
	var cfg SchedulerConfig
	if err := v.UnmarshalKey("scheduler", &cfg); err != nil {
		return err
	}
	h.current.Store(cfg.WithDefaults())
	return nil
}

// Set replaces the current configuration, bypassing the file watcher.
func (h *SchedulerConfigHolder) Set(cfg SchedulerConfig) {
	h.current.Store(cfg.WithDefaults())
}

func (h *SchedulerConfigHolder) Current() SchedulerConfig {
	if v, ok := h.current.Load().(SchedulerConfig); ok {
		return v
	}
	return DefaultSchedulerConfig()
}
