// Package secrets stores the Discord bot token in the OS keychain.
package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service  = "com.discrec.app"
	tokenKey = "discord-bot-token"
)

// ErrNotFound is returned when no token has been stored yet.
var ErrNotFound = errors.New("no token stored")

// Store reads and writes named secrets. Satisfied by the keychain-backed
// implementation; tests substitute in-memory fakes.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keychain is a Store backed by the platform keychain (Keychain Access,
// Windows Credential Manager, or the Secret Service on Linux).
type Keychain struct{}

func (Keychain) Get(key string) (string, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from keychain: %w", key, err)
	}
	return v, nil
}

func (Keychain) Set(key, value string) error {
	if err := keyring.Set(service, key, value); err != nil {
		return fmt.Errorf("failed to store %s in keychain: %w", key, err)
	}
	return nil
}

func (Keychain) Delete(key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s from keychain: %w", key, err)
	}
	return nil
}

// BotToken reads the Discord bot token from s.
func BotToken(s Store) (string, error) {
	return s.Get(tokenKey)
}

// SetBotToken stores the Discord bot token in s.
func SetBotToken(s Store, token string) error {
	return s.Set(tokenKey, token)
}

// DeleteBotToken removes the stored Discord bot token from s.
func DeleteBotToken(s Store) error {
	return s.Delete(tokenKey)
}
