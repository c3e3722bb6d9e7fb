package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

const prefix = "INVSYNC"

const DefaultCacheTTL = 5 * time.Minute

var conf Config

// Parse reads the configuration file given as parameter.
func Parse(confFile string) (*Config, error) {
	setDefault()

	viper.SetEnvPrefix(prefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if len(confFile) > 0 {
		viper.SetConfigFile(confFile)

		err := viper.ReadInConfig()
		if err != nil {
			return &conf, fmt.Errorf("failed to read config file %v: %w", confFile, err)
		}
	}

	err := viper.Unmarshal(&conf)
	if err != nil {
		return &conf, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	err = Validate(conf)
	if err != nil {
		return &conf, err
	}

	return &conf, nil
}

// Validate checks the struct tags of the configuration.
func Validate(c Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for name := range c.Providers {
		if !name.Valid() {
			return fmt.Errorf("invalid config: unknown provider %q", name)
		}
	}

	return nil
}

// BackendConfig returns the back end configuration.
// Passwords and sensitive information should be hidden with by implementing Stringer.
func BackendConfig() Backend {
	return conf.Backend
}

// ProviderConfig returns the configuration of one provider, enabled by default.
func (c Config) ProviderConfig(provider entity.Provider) Provider {
	ret, ok := c.Providers[provider]
	if !ok {
		ret = Provider{Enabled: true}
	}

	if ret.TTL == 0 {
		ret.TTL = c.Cache.TTL
	}

	if ret.TTL == 0 {
		ret.TTL = DefaultCacheTTL
	}

	return ret
}

// EnabledProviders returns the enabled providers in display order.
func (c Config) EnabledProviders() []entity.Provider {
	ret := []entity.Provider{}

	for _, provider := range entity.Providers {
		if c.ProviderConfig(provider).Enabled {
			ret = append(ret, provider)
		}
	}

	return ret
}

func setDefault() {
	viper.SetDefault("logs.level", 4)
	viper.SetDefault("logs.encoder", EncoderTypeConsole)
	viper.SetDefault("gracefulDuration", "8s")
	viper.SetDefault("metrics.port", 7777)
	viper.SetDefault("backend.url", "http://localhost:8000/api")
	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("backend.retry.maxAttempt", 3)
	viper.SetDefault("backend.retry.delay", "500ms")
	viper.SetDefault("cache.type", CacheTypeMemory)
	viper.SetDefault("cache.ttl", DefaultCacheTTL)
	viper.SetDefault("cache.valkey.retention", "12h")
	viper.SetDefault("refresh.pollInterval", "2500ms")
	viper.SetDefault("refresh.autoInterval", "0s")
	viper.SetDefault("search.debounce", "200ms")
	viper.SetDefault("enrichment.concurrency", 3)
}
