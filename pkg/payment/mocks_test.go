package payment

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the Provider interface.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	args := m.Called(ctx, amount, currency)
	intent, _ := args.Get(0).(*Intent)
	return intent, args.Error(1)
}
