package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// StripeName is the registry name of the Stripe provider.
const StripeName = "stripe"

const stripeIntentsPath = "/v1/payment_intents"

func init() {
	RegisterProvider(StripeName, func(cfg ProviderConfig, client *http.Client) Provider {
		return NewStripeProvider(cfg, client)
	})
}

// StripeProvider creates card payment intents through the Stripe REST API.
type StripeProvider struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewStripeProvider creates a new StripeProvider.
func NewStripeProvider(cfg ProviderConfig, client *http.Client) *StripeProvider {
	if client == nil {
		client = http.DefaultClient
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.stripe.com"
	}
	return &StripeProvider{
		baseURL:    strings.TrimRight(base, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: client,
	}
}

func (p *StripeProvider) Name() string {
	return StripeName
}

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePaymentIntent posts a card-only payment intent.
func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	if p.secretKey == "" {
		return nil, &ProviderError{Provider: StripeName, Message: "secret key is not configured"}
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+stripeIntentsPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Provider: StripeName, Message: "building request failed", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: StripeName, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ProviderError{Provider: StripeName, StatusCode: resp.StatusCode, Message: "reading response failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, stripeError(resp.StatusCode, body)
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, &ProviderError{Provider: StripeName, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return &Intent{ID: intent.ID, ClientSecret: intent.ClientSecret, Status: intent.Status}, nil
}

func stripeError(status int, body []byte) *ProviderError {
	var e stripeErrorBody
	msg := ""
	if err := json.Unmarshal(body, &e); err == nil {
		msg = e.Error.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("unexpected response: %s", http.StatusText(status))
	}
	return &ProviderError{Provider: StripeName, StatusCode: status, Message: msg}
}
