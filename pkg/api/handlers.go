package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/passfoto/PassFoto/pkg/i18n"
	"github.com/passfoto/PassFoto/pkg/payment"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/util/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"version": s.opts.Version,
	})
}

// handleCreatePaymentIntent relays {amount} to the payment provider and
// answers {clientSecret}, or {error} with the provider's message.
func (s *Server) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Amount json.RawMessage `json:"amount"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	if err := dec.Decode(&req); err != nil || len(req.Amount) == 0 || string(req.Amount) == "null" {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}
	// Only a bare integer literal; "300" and 2.5 are both refused.
	var amount int64
	if err := json.Unmarshal(req.Amount, &amount); err != nil {
		writeError(w, http.StatusBadRequest, payment.ErrInvalidAmount.Error())
		return
	}

	intent, err := s.opts.Relay.CreateChargeIntent(r.Context(), amount)
	if err != nil {
		var perr *payment.ProviderError
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &perr):
			writeError(w, http.StatusInternalServerError, perr.Message)
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// handleQuote prices ?quantity=n prints.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "quantity must be a number")
			return
		}
		quantity = n
	}
	writeJSON(w, http.StatusOK, s.opts.Pricing.Quote(quantity))
}

type countryEntry struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	WidthMM         float64 `json:"widthMm"`
	HeightMM        float64 `json:"heightMm"`
	WidthPx         int     `json:"widthPx"`
	HeightPx        int     `json:"heightPx"`
	Background      string  `json:"background"`
	BackgroundLabel string  `json:"backgroundLabel"`
	Passport        bool    `json:"passport"`
}

type backgroundEntry struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// handleCountries lists the country table in ?lang=, with pixel sizes at the
// server resolution, and the background colors a user can pick from.
func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	lang := s.language(r, r.URL.Query().Get("lang"))
	passport := s.opts.Countries.DefaultPassport().Code

	all := s.opts.Countries.All()
	out := make([]countryEntry, 0, len(all))
	for _, c := range all {
		wPx, hPx, err := c.Spec("").PixelSize(s.opts.DPI)
		if err != nil {
			log.Printf("Skipping country %s: %v", c.Code, err)
			continue
		}
		out = append(out, countryEntry{
			Code:            c.Code,
			Name:            c.Name(lang),
			WidthMM:         c.WidthMM,
			HeightMM:        c.HeightMM,
			WidthPx:         wPx,
			HeightPx:        hPx,
			Background:      c.Background,
			BackgroundLabel: s.opts.Catalog.Lookup(lang, "color."+c.Background),
			Passport:        c.Code == passport,
		})
	}
	names := photo.BackgroundNames()
	backgrounds := make([]backgroundEntry, 0, len(names))
	for _, name := range names {
		backgrounds = append(backgrounds, backgroundEntry{Name: name, Label: s.opts.Catalog.Lookup(lang, "color."+name)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"language":    lang,
		"countries":   out,
		"backgrounds": backgrounds,
	})
}

// handleI18n returns the message catalog for /i18n/{lang} and the languages
// on offer.
func (s *Server) handleI18n(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	lang := strings.Trim(strings.TrimPrefix(r.URL.Path, "/i18n/"), "/")
	if lang != "" && lang != "auto" && !s.opts.Catalog.Supports(lang) {
		writeError(w, http.StatusNotFound, "language not supported")
		return
	}
	lang = s.language(r, lang)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"language":  lang,
		"languages": s.opts.Catalog.Languages(),
		"messages":  s.opts.Catalog.Messages(lang),
	})
}

// language resolves an explicit code, or "auto" and "" through
// Accept-Language.
func (s *Server) language(r *http.Request, lang string) string {
	if lang != "" && lang != "auto" && s.opts.Catalog.Supports(lang) {
		return lang
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return s.opts.Catalog.Match(accept)
	}
	if s.opts.Language != "" && s.opts.Catalog.Supports(s.opts.Language) {
		return s.opts.Language
	}
	return i18n.Fallback
}
