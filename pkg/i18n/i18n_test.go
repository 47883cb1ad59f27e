package i18n

import (
	"testing"

	"github.com/passfoto/PassFoto/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadEmbedded(asset.NewManager())
	require.NoError(t, err)
	return c
}

func TestLookup(t *testing.T) {
	c := loadCatalog(t)

	assert.Equal(t, "Capture Photo", c.Lookup("en", "capturePhoto"))
	assert.Equal(t, "تصویر لیں", c.Lookup("ur", "capturePhoto"))

	// Missing in Urdu, present in English.
	assert.Equal(t, "Processing...", c.Lookup("ur", "processing"))
	// Unknown language.
	assert.Equal(t, "Pay Now", c.Lookup("de", "payNow"))
	// Unknown key.
	assert.Equal(t, "noSuchKey", c.Lookup("en", "noSuchKey"))
}

func TestMessages(t *testing.T) {
	c := loadCatalog(t)

	ur := c.Messages("ur")
	assert.Equal(t, "زبان", ur["language"])
	assert.Equal(t, "Light Grey", ur["color.lightgrey"])
	assert.Len(t, ur, len(c.Messages("en")))
}

func TestMatch(t *testing.T) {
	c := loadCatalog(t)

	tests := []struct {
		header string
		want   string
	}{
		{"ur-PK,ur;q=0.9,en;q=0.8", "ur"},
		{"en-US,en;q=0.9", "en"},
		{"fr-FR", "en"},
		{"de;q=0.9, ur;q=0.5", "ur"},
		{"", "en"},
		{"%%%", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Match(tt.header))
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(map[string]map[string]string{"ur": {}}, []string{"ur"})
	assert.Error(t, err)

	c, err := New(map[string]map[string]string{"en": {"a": "b"}}, []string{"en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, c.Languages())
	assert.True(t, c.Supports("en"))
	assert.False(t, c.Supports("ur"))
}
