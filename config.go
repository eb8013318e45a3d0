package accounts

import "time"

// Config holds the tunables of the Manager. The zero value of every duration
// falls back to the default, except ConfirmationCodeTTL where zero disables
// expiry.
type Config struct {
	PasswordPolicy      PasswordPolicy `json:"password_policy" mapstructure:"password_policy"`
	HashCost            int            `json:"hash_cost" mapstructure:"hash_cost"`
	TokenBytes          int            `json:"token_bytes" mapstructure:"token_bytes"`
	ResetTokenTTL       time.Duration  `json:"reset_token_ttl" mapstructure:"reset_token_ttl"`
	ConfirmationCodeTTL time.Duration  `json:"confirmation_code_ttl" mapstructure:"confirmation_code_ttl"`
	NotificationTimeout time.Duration  `json:"notification_timeout" mapstructure:"notification_timeout"`
	OperationTimeout    time.Duration  `json:"operation_timeout" mapstructure:"operation_timeout"`
}

// DefaultConfig returns the configuration used when none is provided
func DefaultConfig() Config {
	return Config{
		PasswordPolicy:      DefaultPasswordPolicy(),
		HashCost:            DefaultHashCost,
		TokenBytes:          DefaultTokenBytes,
		ResetTokenTTL:       24 * time.Hour,
		ConfirmationCodeTTL: 0,
		NotificationTimeout: 30 * time.Second,
		OperationTimeout:    10 * time.Second,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	c.PasswordPolicy = c.PasswordPolicy.normalized()
	if c.HashCost == 0 {
		c.HashCost = def.HashCost
	}
	if c.TokenBytes < minTokenBytes {
		c.TokenBytes = def.TokenBytes
	}
	if c.ResetTokenTTL < 0 {
		c.ResetTokenTTL = 0
	} else if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = def.ResetTokenTTL
	}
	if c.ConfirmationCodeTTL < 0 {
		c.ConfirmationCodeTTL = 0
	}
	if c.NotificationTimeout <= 0 {
		c.NotificationTimeout = def.NotificationTimeout
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = def.OperationTimeout
	}
	return c
}
