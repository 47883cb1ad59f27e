// Package country holds the static table of passport and visa photo
// requirements per country.
package country

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/passfoto/PassFoto/asset"
	"github.com/passfoto/PassFoto/pkg/photo"
)

// ErrUnknownCountry is returned for a code missing from the table.
var ErrUnknownCountry = errors.New("unknown country")

// PhotoType selects between a passport photo and a visa photo.
type PhotoType string

// Photo types
const (
	Passport PhotoType = "passport"
	Visa     PhotoType = "visa"
)

// Country is one row of the requirements table.
type Country struct {
	Code       string            `json:"code"`
	Names      map[string]string `json:"names"`
	WidthMM    float64           `json:"width_mm"`
	HeightMM   float64           `json:"height_mm"`
	Background string            `json:"background"`
}

// Name returns the display name in lang, falling back to English and then
// the code.
func (c Country) Name(lang string) string {
	if n, ok := c.Names[lang]; ok && n != "" {
		return n
	}
	if n, ok := c.Names["en"]; ok && n != "" {
		return n
	}
	return c.Code
}

// Spec returns the output spec for this country. An empty background uses the
// recommended one.
func (c Country) Spec(background string) photo.OutputSpec {
	if background == "" {
		background = c.Background
	}
	return photo.OutputSpec{WidthMM: c.WidthMM, HeightMM: c.HeightMM, Background: background}
}

// Table is the immutable country table.
type Table struct {
	defaultPassport string
	countries       []Country
	byCode          map[string]int
}

type tableFile struct {
	DefaultPassport string    `json:"default_passport"`
	Countries       []Country `json:"countries"`
}

// Parse builds a Table from its JSON form.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing country table: %w", err)
	}

	t := &Table{
		defaultPassport: strings.ToUpper(f.DefaultPassport),
		byCode:          make(map[string]int, len(f.Countries)),
	}
	for _, c := range f.Countries {
		c.Code = strings.ToUpper(c.Code)
		if c.Code == "" {
			return nil, fmt.Errorf("country table: entry without code")
		}
		if _, dup := t.byCode[c.Code]; dup {
			return nil, fmt.Errorf("country table: duplicate code %s", c.Code)
		}
		if err := c.Spec("").Validate(); err != nil {
			return nil, fmt.Errorf("country %s: %w", c.Code, err)
		}
		if _, err := photo.ParseColor(c.Background); err != nil {
			return nil, fmt.Errorf("country %s: %w", c.Code, err)
		}
		t.byCode[c.Code] = len(t.countries)
		t.countries = append(t.countries, c)
	}
	if len(t.countries) == 0 {
		return nil, fmt.Errorf("country table is empty")
	}
	if t.defaultPassport == "" {
		t.defaultPassport = t.countries[0].Code
	}
	if _, ok := t.byCode[t.defaultPassport]; !ok {
		return nil, fmt.Errorf("default passport country %s: %w", t.defaultPassport, ErrUnknownCountry)
	}
	return t, nil
}

// LoadEmbedded parses the table shipped in the asset package.
func LoadEmbedded(am *asset.Manager) (*Table, error) {
	data, err := am.GetData("countries.json")
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// All returns the countries in table order.
func (t *Table) All() []Country {
	out := make([]Country, len(t.countries))
	copy(out, t.countries)
	return out
}

// Lookup finds a country by code, ignoring case.
func (t *Table) Lookup(code string) (Country, error) {
	i, ok := t.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, fmt.Errorf("%q: %w", code, ErrUnknownCountry)
	}
	return t.countries[i], nil
}

// DefaultPassport returns the country used for passport photos.
func (t *Table) DefaultPassport() Country {
	return t.countries[t.byCode[t.defaultPassport]]
}

// Resolve picks the country for a photo type. Passport photos ignore code.
func (t *Table) Resolve(pt PhotoType, code string) (Country, error) {
	switch pt {
	case Passport, "":
		return t.DefaultPassport(), nil
	case Visa:
		return t.Lookup(code)
	default:
		return Country{}, fmt.Errorf("unknown photo type %q", pt)
	}
}
