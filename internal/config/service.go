package config

import "time"

const (
	defaultGatewayTimeout        = 30 * time.Second
	defaultGatewayMaxAttempts    = 3
	defaultGatewayInitialBackoff = 1 * time.Second
	defaultIdempotencyTTL        = 24 * time.Hour
	defaultIdempotencySweep      = 1 * time.Hour
	defaultWebhookTopic          = "payment.webhook.events"
	defaultConsumerGroup         = "payment-webhook-group"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`
}

// GatewayConfig holds credentials and retry policy for the payment gateway
type GatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	APILoginID     string `yaml:"api_login_id"`
	TransactionKey string `yaml:"transaction_key"`
	// SignatureKey signs webhook payloads; leave empty only for local
	// development, validation is bypassed without it
	SignatureKey   string        `yaml:"signature_key"`
	Sandbox        bool          `yaml:"sandbox"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

func (c *GatewayConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultGatewayTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultGatewayMaxAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaultGatewayInitialBackoff
	}
}

// QueueConfig holds kafka broker settings for webhook event delivery
type QueueConfig struct {
	Brokers      []string `yaml:"brokers"`
	WebhookTopic string   `yaml:"webhook_topic"`
	GroupID      string   `yaml:"group_id"`
	Consumers    int      `yaml:"consumers"`
}

func (c *QueueConfig) applyDefaults() {
	if c.WebhookTopic == "" {
		c.WebhookTopic = defaultWebhookTopic
	}
	if c.GroupID == "" {
		c.GroupID = defaultConsumerGroup
	}
	if c.Consumers == 0 {
		c.Consumers = 1
	}
}

// RedisConfig holds settings for the transaction response cache
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// IdempotencyConfig bounds how long completed responses are replayable
type IdempotencyConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func (c *IdempotencyConfig) applyDefaults() {
	if c.TTL == 0 {
		c.TTL = defaultIdempotencyTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = defaultIdempotencySweep
	}
}
