// Package payment relays charge requests to a card-payment provider and prices
// print orders.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/passfoto/PassFoto/util/log"
)

// ErrInvalidAmount is returned for a non-positive amount. Nothing is sent to
// the provider.
var ErrInvalidAmount = errors.New("amount must be a positive integer in minor units")

// ProviderError is any downstream failure while creating a payment intent.
// Message is the provider's own text and is meant to be shown as is.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Intent is the provider-side payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Provider creates payment intents.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// CreatePaymentIntent asks the provider for a card payment intent of
	// amount minor units. Failures must be *ProviderError.
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
}

// ChargeIntent is what the relay hands back to the client.
type ChargeIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// Relay forwards charge requests to a Provider unchanged.
type Relay struct {
	provider Provider
	currency string
}

// NewRelay creates a Relay charging in currency.
func NewRelay(provider Provider, currency string) *Relay {
	return &Relay{provider: provider, currency: currency}
}

// Currency returns the relay's charge currency.
func (r *Relay) Currency() string {
	return r.currency
}

// CreateChargeIntent creates a payment intent for amountMinorUnits and returns
// its client secret. A failed attempt is returned as is; there are no retries.
func (r *Relay) CreateChargeIntent(ctx context.Context, amountMinorUnits int64) (*ChargeIntent, error) {
	if amountMinorUnits <= 0 {
		return nil, ErrInvalidAmount
	}

	intent, err := r.provider.CreatePaymentIntent(ctx, amountMinorUnits, r.currency)
	if err != nil {
		var perr *ProviderError
		if !errors.As(err, &perr) {
			perr = &ProviderError{Provider: r.provider.Name(), Message: err.Error(), Err: err}
		}
		log.Printf("Payment intent for %d %s failed: %v", amountMinorUnits, r.currency, perr)
		return nil, perr
	}
	if intent == nil || intent.ClientSecret == "" {
		return nil, &ProviderError{Provider: r.provider.Name(), Message: "provider returned no client secret"}
	}

	log.Debugf("Payment intent %s created for %d %s", intent.ID, amountMinorUnits, r.currency)
	return &ChargeIntent{ClientSecret: intent.ClientSecret}, nil
}
