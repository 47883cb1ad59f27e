package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestRunCountries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runCountries([]string{"-lang", "en"}, &buf))

	out := buf.String()
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "51x51")
	assert.Contains(t, out, "192x192")
	assert.Contains(t, out, "132x170")
	assert.Contains(t, out, "Light Grey")
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runVersion(nil, &buf))
	assert.Contains(t, buf.String(), "PassFoto")
}

func TestRunRender(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "frame.png")

	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0644))

	require.NoError(t, runRender([]string{"-in", in, "-type", "visa", "-country", "UK"}))

	f, err := os.Open(filepath.Join(dir, "frame_uk.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 132, cfg.Width)
	assert.Equal(t, 170, cfg.Height)

	assert.Error(t, runRender([]string{"-in", in, "-type", "visa", "-country", "ZZ"}))
	assert.Error(t, runRender(nil))
}

func TestRunSecret(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, runSecret([]string{"set", "sk_test_cli"}))
	secret, err := keyring.Get("PassFoto", "payment_provider_secret_key")
	require.NoError(t, err)
	assert.Equal(t, "sk_test_cli", secret)

	require.NoError(t, runSecret([]string{"clear"}))
	_, err = keyring.Get("PassFoto", "payment_provider_secret_key")
	assert.ErrorIs(t, err, keyring.ErrNotFound)

	assert.Error(t, runSecret(nil))
	assert.Error(t, runSecret([]string{"rotate"}))
}
