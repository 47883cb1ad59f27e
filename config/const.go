package config

import "strings"

// AppVersion is the version of the service.
var AppVersion = "0.3.0" // Overridden with -ldflags "-X" during release builds

// AppName is the name of the service.
const AppName = "PassFoto"

// LogWinSubDir is the sub directory for the log files on windows.
var LogWinSubDir = AppName

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension for the log files.
var LogExt = ".log"

// Keyring entries
const (
	KeyringService         = AppName
	ProviderSecretKeyEntry = "payment_provider_secret_key"
)

// ProviderSecretEnv overrides the keyring entry when set.
const ProviderSecretEnv = "STRIPE_SECRET_KEY"

// Physical and pricing defaults.
const (
	DefaultListenAddr     = "127.0.0.1:5000"
	DefaultDPI            = 96.0
	DefaultUnitPriceMinor = 100
	DefaultCurrency       = "usd"
	DefaultMaxQuantity    = 15
	DefaultProvider       = "stripe"
	DefaultProviderURL    = "https://api.stripe.com"
	DefaultCropAnchor     = "center"
	DefaultLanguage       = "en"

	// 4x6 inch photo paper.
	DefaultSheetWidthMM  = 101.6
	DefaultSheetHeightMM = 152.4
	DefaultSheetDPI      = 300.0
	DefaultSheetMarginMM = 3.0
	DefaultSheetGapMM    = 2.0

	DefaultPaymentRateLimit = 2.0 // requests per second
	DefaultPaymentRateBurst = 5
)
