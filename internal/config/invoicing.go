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

// InvoicingConfig controls legal-numbering presentation and the recurring
// billing cadence. The numeric sequence itself is owned by the allocator;
// only formatting and scheduling knobs live here.
type InvoicingConfig struct {
	// NumberPadWidth is the zero-padded width of the correlative suffix.
	NumberPadWidth int `mapstructure:"numberPadWidth"`
	// RectificativeSeriesPrefix separates corrective documents into their
	// own numbering stream within each fiscal year.
	RectificativeSeriesPrefix string `mapstructure:"rectificativeSeriesPrefix"`

	SchedulerInterval  time.Duration `mapstructure:"schedulerInterval"`
	SchedulerBatchSize int           `mapstructure:"schedulerBatchSize"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		NumberPadWidth:            6,
		RectificativeSeriesPrefix: "R-",
		SchedulerInterval:         time.Hour,
		SchedulerBatchSize:        50,
	}
}

// InvoicingConfigHolder serves the current invoicing config and hot-reloads
// it when the backing file changes. Emitted invoices are never renumbered
// on reload; new settings apply to subsequent emissions only.
type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

func NewInvoicingConfigHolder() (*InvoicingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/inmoflow/config")
	v.AddConfigPath("/etc/inmoflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INMOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.numberPadWidth", defaults.NumberPadWidth)
	v.SetDefault("invoicing.rectificativeSeriesPrefix", defaults.RectificativeSeriesPrefix)
	v.SetDefault("invoicing.schedulerInterval", defaults.SchedulerInterval)
	v.SetDefault("invoicing.schedulerBatchSize", defaults.SchedulerBatchSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &cfg); err != nil {
		return nil, err
	}
	if err := validateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Printf("[invoicing-config] reload failed: %v", err)
			return
		}
		if err := validateInvoicingConfig(updated); err != nil {
			log.Printf("[invoicing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invoicing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticInvoicingConfigHolder wraps a fixed config with no file
// watching. Embedders and tests use it to pin settings.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	return h.current.Load().(InvoicingConfig)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if cfg.NumberPadWidth <= 0 {
		return errors.New("invoicing.numberPadWidth must be positive")
	}
	if strings.TrimSpace(cfg.RectificativeSeriesPrefix) == "" {
		return errors.New("invoicing.rectificativeSeriesPrefix cannot be empty")
	}
	if cfg.SchedulerBatchSize <= 0 {
		return errors.New("invoicing.schedulerBatchSize must be positive")
	}
	return nil
}
