package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/passfoto/PassFoto/asset"
	"github.com/passfoto/PassFoto/config"
	"github.com/passfoto/PassFoto/pkg/api"
	"github.com/passfoto/PassFoto/pkg/country"
	"github.com/passfoto/PassFoto/pkg/i18n"
	"github.com/passfoto/PassFoto/pkg/payment"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/pkg/session"
	"github.com/passfoto/PassFoto/util/log"
)

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.GetConfig(), nil
	}
	return config.Load(path)
}

// newEngine builds the engine with the configured crop anchor.
func newEngine(anchorName, faceModelPath string) (*photo.Engine, error) {
	var model []byte
	if faceModelPath != "" {
		data, err := os.ReadFile(faceModelPath)
		if err != nil {
			return nil, fmt.Errorf("reading face model: %w", err)
		}
		model = data
	}
	if anchorName == photo.AnchorFace && model == nil {
		log.Printf("Crop anchor %q has no face model configured; using %q", photo.AnchorFace, photo.AnchorCenter)
	}
	anchor, err := photo.NewAnchor(anchorName, model)
	if err != nil {
		return nil, err
	}
	return photo.NewEngine(anchor), nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default ~/.passfoto/config.json)")
	addr := fs.String("addr", "", "listen address, overrides the config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	am := asset.NewManager()
	countries, err := country.LoadEmbedded(am)
	if err != nil {
		return err
	}
	catalog, err := i18n.LoadEmbedded(am)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg.CropAnchor, cfg.FaceModelPath)
	if err != nil {
		return err
	}

	secret := config.GetProviderSecret()
	if secret == "" {
		log.Printf("No payment secret key found in $%s or the keyring; payments will fail", config.ProviderSecretEnv)
	}
	provider, err := payment.NewProvider(cfg.Payment.Provider, payment.ProviderConfig{
		BaseURL:   cfg.Payment.ProviderURL,
		SecretKey: secret,
	}, &http.Client{Timeout: cfg.RequestTimeout})
	if err != nil {
		return err
	}

	passport := countries.DefaultPassport()
	dpi := cfg.DPI
	sessions := session.NewManager(func(ctx context.Context, c *photo.CapturedImage, spec photo.OutputSpec) (*photo.ProcessedImage, error) {
		return engine.Transform(ctx, c, spec, dpi)
	}, session.Selection{
		PhotoType:  country.Passport,
		Country:    passport.Code,
		Background: passport.Background,
		Spec:       passport.Spec(""),
	})

	server := api.NewServer(api.Options{
		Addr:      cfg.ListenAddr,
		Version:   config.AppVersion,
		Language:  cfg.Language,
		DPI:       cfg.DPI,
		Engine:    engine,
		Relay:     payment.NewRelay(provider, cfg.Payment.Currency),
		Pricing:   payment.Pricing{UnitPrice: cfg.Payment.UnitPriceMinor, MaxQuantity: cfg.Payment.MaxQuantity, Currency: cfg.Payment.Currency},
		Countries: countries,
		Catalog:   catalog,
		Sessions:  sessions,
		Sheet: photo.SheetSpec{
			WidthMM:   cfg.Sheet.WidthMM,
			HeightMM:  cfg.Sheet.HeightMM,
			DPI:       cfg.Sheet.DPI,
			MarginMM:  cfg.Sheet.MarginMM,
			GapMM:     cfg.Sheet.GapMM,
			CutGuides: cfg.Sheet.CutGuides,
		},
		PaymentRate:  cfg.Payment.RateLimit,
		PaymentBurst: cfg.Payment.RateBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Printf("Received %v, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
