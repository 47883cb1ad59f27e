// Package i18n serves the static UI message catalogs.
package i18n

import (
	"encoding/json"
	"fmt"

	"github.com/passfoto/PassFoto/asset"
	"golang.org/x/text/language"
)

// Fallback is the language every lookup falls back to.
const Fallback = "en"

// Catalog maps language code -> message key -> text. It is read-only after
// construction.
type Catalog struct {
	messages map[string]map[string]string
	langs    []string
	matcher  language.Matcher
}

// New builds a Catalog from per-language message maps. The fallback language
// must be present.
func New(messages map[string]map[string]string, langs []string) (*Catalog, error) {
	if _, ok := messages[Fallback]; !ok {
		return nil, fmt.Errorf("catalog has no %q messages", Fallback)
	}

	// The matcher prefers the first tag on ties, so the fallback goes first.
	ordered := []string{Fallback}
	for _, l := range langs {
		if l != Fallback {
			ordered = append(ordered, l)
		}
	}
	tags := make([]language.Tag, 0, len(ordered))
	for _, l := range ordered {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", l, err)
		}
		tags = append(tags, tag)
	}

	return &Catalog{messages: messages, langs: ordered, matcher: language.NewMatcher(tags)}, nil
}

// LoadEmbedded builds the catalog from the locales in the asset package.
func LoadEmbedded(am *asset.Manager) (*Catalog, error) {
	langs := am.Locales()
	messages := make(map[string]map[string]string, len(langs))
	for _, l := range langs {
		data, err := am.GetLocale(l)
		if err != nil {
			return nil, err
		}
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing locale %s: %w", l, err)
		}
		messages[l] = m
	}
	return New(messages, langs)
}

// Languages returns the supported language codes, fallback first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.langs))
	copy(out, c.langs)
	return out
}

// Supports reports whether lang has its own catalog.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// Lookup returns the text for key in lang, then in the fallback language,
// then the key itself.
func (c *Catalog) Lookup(lang, key string) string {
	if msg, ok := c.messages[lang][key]; ok {
		return msg
	}
	if msg, ok := c.messages[Fallback][key]; ok {
		return msg
	}
	return key
}

// Messages returns the full catalog for lang with fallback entries filled in.
func (c *Catalog) Messages(lang string) map[string]string {
	out := make(map[string]string, len(c.messages[Fallback]))
	for k, v := range c.messages[Fallback] {
		out[k] = v
	}
	for k, v := range c.messages[lang] {
		out[k] = v
	}
	return out
}

// Match picks the best supported language for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Fallback
	}
	_, index, confidence := c.matcher.Match(tags...)
	if confidence == language.No {
		return Fallback
	}
	return c.langs[index]
}
