package config

import (
	"time"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

type Config struct {
	GracefulDuration time.Duration
	Metrics          Metrics
	Logs             Logs
	Backend          Backend
	Cache            Cache
	Refresh          Refresh
	Search           Search
	Enrichment       Enrichment
	Environment      Environment
	Providers        map[entity.Provider]Provider `validate:"dive"`
	DeadLetterQueue  S3
}

type Metrics struct {
	Port int `validate:"gte=0,lte=65535"`
}

type Logs struct {
	Level   int
	Encoder EncoderType `validate:"oneof=json console"`
}

type EncoderType string

const (
	EncoderTypeJson    EncoderType = "json"
	EncoderTypeConsole EncoderType = "console"
)

type Backend struct {
	URL     string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
	Creds   BackendCreds
	Retry   Retry
}

type BackendCreds struct {
	Token string
}

func (c BackendCreds) String() string {
	if c.Token != "" {
		return "token set"
	}

	return "no token"
}

type Retry struct {
	MaxAttempt uint
	Delay      time.Duration
}

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeValkey CacheType = "valkey"
)

type Cache struct {
	Type   CacheType     `validate:"oneof=memory valkey"`
	TTL    time.Duration `validate:"gt=0"`
	Valkey Valkey
}

type Valkey struct {
	URL       string
	Creds     ValkeyCreds
	Retention time.Duration
}

type ValkeyCreds struct {
	Password string
}

func (c ValkeyCreds) String() string {
	if c.Password != "" {
		return "password set"
	}

	return "no password"
}

type Refresh struct {
	PollInterval time.Duration `validate:"gt=0"`
	AutoInterval time.Duration `validate:"gte=0"`
}

type Search struct {
	Debounce time.Duration `validate:"gte=0"`
}

type Enrichment struct {
	Concurrency int `validate:"gte=1"`
}

// Environment overrides the name prefix classification, e.g. {"s": "Sandbox"}.
type Environment struct {
	Prefixes map[string]string
}

type Provider struct {
	Enabled bool
	TTL     time.Duration `validate:"gte=0"`
	// Legacy reads live VM queries instead of the precomputed snapshot.
	Legacy bool
}

type S3 struct {
	Bucket       string
	KeyPrefix    string
	BaseEndpoint string
	Region       string
	UsePathStyle bool
	Creds        AWSCreds
}

type AWSCreds struct {
	AccessKeyID     string
	SecretAccessKey string
}

func (c AWSCreds) String() string {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return "creds set"
	}

	return "no creds"
}
