// Package settings persists the per-channel alert configuration.
//
// DESIGN: The dashboard kept these in localStorage; here they live in one
// JSON file next to the relay's data. Save validates recipient formats
// before anything touches disk and writes atomically (temp file + rename),
// so a rejected or interrupted save leaves the previous configuration
// untouched - no partial writes.
//
// Validation is a config-time concern: a recipient rejected here never
// reaches a sender, which is why validation rejections do not appear in the
// delivery log.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/channel"
)

// Settings holds the configuration for every alert channel.
type Settings struct {
	Email    channel.Config `json:"email"`
	SMS      channel.Config `json:"sms"`
	WhatsApp channel.Config `json:"whatsapp"`
	Telegram channel.Config `json:"telegram"`
}

// Store owns the settings file.
type Store struct {
	path     string
	validate *validator.Validate
	mu       sync.RWMutex
	current  Settings
}

// NewStore opens the settings store at path, loading the existing file when
// present. A missing file yields zero-value settings (everything disabled).
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path is required")
	}

	s := &Store{path: path, validate: validator.New()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings '%s': %w", path, err)
	}
	if err := json.Unmarshal(data, &s.current); err != nil {
		return nil, fmt.Errorf("failed to parse settings '%s': %w", path, err)
	}
	return s, nil
}

// Load returns the current settings.
func (s *Store) Load() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ChannelConfig returns one channel's configuration. Unknown channels are
// disabled, which the dispatcher treats as "never invoke".
func (s *Store) ChannelConfig(name string) channel.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case channel.Email:
		return s.current.Email
	case channel.SMS:
		return s.current.SMS
	case channel.WhatsApp:
		return s.current.WhatsApp
	case channel.Telegram:
		return s.current.Telegram
	default:
		return channel.Config{}
	}
}

// Save validates and persists new settings. On validation failure nothing is
// written and the previous settings remain in effect.
func (s *Store) Save(next Settings) error {
	if err := s.validateSettings(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}

	s.current = next
	return nil
}

// validateSettings checks recipient formats. Empty recipients are allowed -
// an enabled channel with no recipient simply fails closed at dispatch time.
func (s *Store) validateSettings(st Settings) error {
	if st.SMS.Recipient != "" {
		if err := s.validate.Var(st.SMS.Recipient, "e164"); err != nil {
			return &channel.ValidationError{
				Reason: "Invalid phone number format. Use E.164 format (e.g., +1234567890)",
			}
		}
	}
	if st.WhatsApp.Recipient != "" {
		if err := s.validate.Var(st.WhatsApp.Recipient, "e164"); err != nil {
			return &channel.ValidationError{
				Reason: "Invalid phone number format. Use E.164 format (e.g., +1234567890)",
			}
		}
	}
	if st.Email.Recipient != "" {
		if err := s.validate.Var(st.Email.Recipient, "email"); err != nil {
			return &channel.ValidationError{Reason: "Invalid email address"}
		}
	}
	// Telegram chat ids have no meaningful format to enforce.
	return nil
}
