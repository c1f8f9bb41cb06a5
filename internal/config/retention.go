package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RetentionConfig controls how long soft-deleted records are kept before
// the cleanup job may purge them, and how often the job runs.
type RetentionConfig struct {
	SoftDeleteDays  int           `mapstructure:"softDeleteDays"`
	SweepInterval   time.Duration `mapstructure:"sweepInterval"`
	PurgeBatchLimit int           `mapstructure:"purgeBatchLimit"`
}

func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		SoftDeleteDays:  30,
		SweepInterval:   time.Hour,
		PurgeBatchLimit: 500,
	}
}

// Threshold returns the retention window as a duration.
func (c RetentionConfig) Threshold() time.Duration {
	return time.Duration(c.SoftDeleteDays) * 24 * time.Hour
}

// RetentionConfigHolder hot-reloads retention settings from a config file
// so the purge window can be tuned without a restart.
type RetentionConfigHolder struct {
	current atomic.Value // holds RetentionConfig
}

func NewRetentionConfigHolder() (*RetentionConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("retention")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/loopwork/config")
	v.AddConfigPath("/etc/loopwork")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOOPWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRetentionConfig()
	v.SetDefault("retention.softDeleteDays", defaults.SoftDeleteDays)
	v.SetDefault("retention.sweepInterval", defaults.SweepInterval)
	v.SetDefault("retention.purgeBatchLimit", defaults.PurgeBatchLimit)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg RetentionConfig
	if err := v.UnmarshalKey("retention", &cfg); err != nil {
		return nil, err
	}
	if err := validateRetentionConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RetentionConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RetentionConfig
		if err := v.UnmarshalKey("retention", &updated); err != nil {
			log.Printf("[retention-config] reload failed: %v", err)
			return
		}
		if err := validateRetentionConfig(updated); err != nil {
			log.Printf("[retention-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[retention-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RetentionConfigHolder) Get() RetentionConfig {
	return h.current.Load().(RetentionConfig)
}

func validateRetentionConfig(cfg RetentionConfig) error {
	if cfg.SoftDeleteDays <= 0 {
		return errors.New("retention.softDeleteDays must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("retention.sweepInterval must be positive")
	}
	if cfg.PurgeBatchLimit <= 0 {
		return errors.New("retention.purgeBatchLimit must be positive")
	}
	return nil
}
