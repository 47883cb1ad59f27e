package asset

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/passfoto/PassFoto/util/log"
)

//go:embed data/*.json locales/*.json
var assets embed.FS

// Manager manages the loading of embedded data assets.
type Manager struct{}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{}
}

// GetData loads an embedded data file by name.
func (am *Manager) GetData(name string) ([]byte, error) {
	data, err := assets.ReadFile("data/" + name)
	if err != nil {
		log.Println("Error loading data:", err)
		return nil, err
	}
	return data, nil
}

// GetLocale loads the message catalog for a language code.
func (am *Manager) GetLocale(lang string) ([]byte, error) {
	if lang == "" || strings.ContainsAny(lang, "/\\.") {
		return nil, fmt.Errorf("invalid locale name %q", lang)
	}
	data, err := assets.ReadFile("locales/" + lang + ".json")
	if err != nil {
		log.Println("Error loading locale:", err)
		return nil, err
	}
	return data, nil
}

// Locales lists the embedded language codes in sorted order.
func (am *Manager) Locales() []string {
	entries, err := assets.ReadDir("locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		name := e.Name()
		langs = append(langs, strings.TrimSuffix(name, path.Ext(name)))
	}
	sort.Strings(langs)
	return langs
}
