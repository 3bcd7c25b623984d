// Provider configuration - credentials for the messaging providers.
//
// DESIGN: Every provider block is optional; a channel is only registered at
// startup when its provider is fully configured. A half-configured provider
// (account SID without auth token) is a startup error, not a runtime one.
package config

import "fmt"

// ProvidersConfig contains all messaging provider credentials.
type ProvidersConfig struct {
	Twilio   TwilioConfig   `yaml:"twilio"`
	Telegram TelegramConfig `yaml:"telegram"`
	Resend   ResendConfig   `yaml:"resend"`
}

// TwilioConfig drives the SMS and WhatsApp channels.
type TwilioConfig struct {
	AccountSID   string `yaml:"account_sid"`
	AuthToken    string `yaml:"auth_token"`
	FromNumber   string `yaml:"from_number"`   // SMS sending number
	WhatsAppFrom string `yaml:"whatsapp_from"` // WhatsApp-enabled number (optional)
	BaseURL      string `yaml:"base_url"`      // Override for tests; empty = production
}

// Configured reports whether the Twilio credentials are present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" || c.AuthToken != "" || c.FromNumber != ""
}

// TelegramConfig drives the Telegram channel.
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	DefaultChatID string `yaml:"default_chat_id"` // Used when a request carries no chat id
	BaseURL       string `yaml:"base_url"`        // Override for tests; empty = production
}

// Configured reports whether the Telegram bot is present.
func (c TelegramConfig) Configured() bool {
	return c.BotToken != ""
}

// ResendConfig drives the email channel.
type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // Override for tests; empty = production
}

// Configured reports whether the Resend key is present.
func (c ResendConfig) Configured() bool {
	return c.APIKey != ""
}

// Validate rejects half-configured providers.
func (p ProvidersConfig) Validate() error {
	if p.Twilio.Configured() {
		if p.Twilio.AccountSID == "" {
			return fmt.Errorf("providers.twilio.account_sid is required")
		}
		if p.Twilio.AuthToken == "" {
			return fmt.Errorf("providers.twilio.auth_token is required")
		}
		if p.Twilio.FromNumber == "" {
			return fmt.Errorf("providers.twilio.from_number is required")
		}
	}
	return nil
}
