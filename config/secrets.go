package config

import (
	"errors"
	"log"
	"os"

	"github.com/zalando/go-keyring"
)

// GetProviderSecret returns the payment provider secret key.
// The environment variable wins over the keyring entry.
func GetProviderSecret() string {
	if v := os.Getenv(ProviderSecretEnv); v != "" {
		return v
	}
	secret, err := keyring.Get(KeyringService, ProviderSecretKeyEntry)
	if err != nil {
		// First run has no entry yet
		if !errors.Is(err, keyring.ErrNotFound) {
			log.Printf("failed to retrieve provider secret from keyring: %v", err)
		}
		return ""
	}
	return secret
}

// SetProviderSecret stores the payment provider secret key in the keyring.
func SetProviderSecret(secret string) error {
	return keyring.Set(KeyringService, ProviderSecretKeyEntry, secret)
}

// ClearProviderSecret removes the stored secret key.
func ClearProviderSecret() error {
	err := keyring.Delete(KeyringService, ProviderSecretKeyEntry)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
