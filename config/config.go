package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Package config provides configuration management for the PassFoto service

// Config struct to hold all configuration data
type Config struct {
	ListenAddr     string        `json:"listen_addr"`
	DPI            float64       `json:"dpi"`
	CropAnchor     string        `json:"crop_anchor"`
	FaceModelPath  string        `json:"face_model_path"`
	Language       string        `json:"default_language"`
	Payment        PaymentConfig `json:"payment"`
	Sheet          SheetConfig   `json:"sheet"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// PaymentConfig holds pricing and payment provider settings.
type PaymentConfig struct {
	Provider       string  `json:"provider"`
	ProviderURL    string  `json:"provider_url"`
	Currency       string  `json:"currency"`
	UnitPriceMinor int64   `json:"unit_price_minor"`
	MaxQuantity    int     `json:"max_quantity"`
	RateLimit      float64 `json:"rate_limit"`
	RateBurst      int     `json:"rate_burst"`
}

// SheetConfig describes the paper prints are laid out on.
type SheetConfig struct {
	WidthMM   float64 `json:"width_mm"`
	HeightMM  float64 `json:"height_mm"`
	DPI       float64 `json:"dpi"`
	MarginMM  float64 `json:"margin_mm"`
	GapMM     float64 `json:"gap_mm"`
	CutGuides bool    `json:"cut_guides"`
}

var (
	instance *Config
	once     sync.Once
)

// GetConfig returns the singleton instance of Config.
func GetConfig() *Config {
	once.Do(func() {
		instance = Default()
		if err := instance.loadFromFile(GetFilename()); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Error loading config, using defaults: %v", err)
			}
			instance = Default()
		}
	})
	return instance
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	c := &Config{}
	c.setDefaultValues()
	return c
}

// Load reads a config file, filling anything it leaves unset with defaults.
func Load(filename string) (*Config, error) {
	c := Default()
	if err := c.loadFromFile(filename); err != nil {
		return nil, err
	}
	return c, nil
}

// GetFilename returns the path to the user's config file
func GetFilename() string {
	return filepath.Join(GetPath(), "config.json")
}

// GetPath returns the path to the user's config directory
func GetPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Error getting user home directory: %v", err)
	}
	return filepath.Join(homeDir, "."+strings.ToLower(AppName))
}

// loadFromFile loads configuration from the specified file
func (c *Config) loadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}

	c.fillZeroValues()
	return c.Validate()
}

// setDefaultValues sets default values for the configuration
func (c *Config) setDefaultValues() {
	c.ListenAddr = DefaultListenAddr
	c.DPI = DefaultDPI
	c.CropAnchor = DefaultCropAnchor
	c.FaceModelPath = ""
	c.Language = DefaultLanguage
	c.RequestTimeout = 30 * time.Second
	c.Payment = PaymentConfig{
		Provider:       DefaultProvider,
		ProviderURL:    DefaultProviderURL,
		Currency:       DefaultCurrency,
		UnitPriceMinor: DefaultUnitPriceMinor,
		MaxQuantity:    DefaultMaxQuantity,
		RateLimit:      DefaultPaymentRateLimit,
		RateBurst:      DefaultPaymentRateBurst,
	}
	c.Sheet = SheetConfig{
		WidthMM:   DefaultSheetWidthMM,
		HeightMM:  DefaultSheetHeightMM,
		DPI:       DefaultSheetDPI,
		MarginMM:  DefaultSheetMarginMM,
		GapMM:     DefaultSheetGapMM,
		CutGuides: true,
	}
}

// fillZeroValues restores defaults for fields a partial config file zeroed out.
func (c *Config) fillZeroValues() {
	d := Default()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.DPI == 0 {
		c.DPI = d.DPI
	}
	if c.CropAnchor == "" {
		c.CropAnchor = d.CropAnchor
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.Payment.Provider == "" {
		c.Payment.Provider = d.Payment.Provider
	}
	if c.Payment.ProviderURL == "" {
		c.Payment.ProviderURL = d.Payment.ProviderURL
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = d.Payment.Currency
	}
	if c.Payment.UnitPriceMinor == 0 {
		c.Payment.UnitPriceMinor = d.Payment.UnitPriceMinor
	}
	if c.Payment.MaxQuantity == 0 {
		c.Payment.MaxQuantity = d.Payment.MaxQuantity
	}
	if c.Payment.RateLimit == 0 {
		c.Payment.RateLimit = d.Payment.RateLimit
	}
	if c.Payment.RateBurst == 0 {
		c.Payment.RateBurst = d.Payment.RateBurst
	}
	if c.Sheet.WidthMM == 0 && c.Sheet.HeightMM == 0 {
		c.Sheet = d.Sheet
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.DPI <= 0:
		return fmt.Errorf("dpi must be positive, got %v", c.DPI)
	case c.Payment.UnitPriceMinor <= 0:
		return fmt.Errorf("unit price must be positive, got %d", c.Payment.UnitPriceMinor)
	case c.Payment.MaxQuantity < 1:
		return fmt.Errorf("max quantity must be at least 1, got %d", c.Payment.MaxQuantity)
	case c.Sheet.WidthMM <= 0 || c.Sheet.HeightMM <= 0 || c.Sheet.DPI <= 0:
		return fmt.Errorf("sheet size and dpi must be positive")
	}
	return nil
}

// Save saves the current configuration to the given file.
func (c *Config) Save(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config data: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
