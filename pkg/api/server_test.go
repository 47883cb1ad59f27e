package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/passfoto/PassFoto/asset"
	"github.com/passfoto/PassFoto/pkg/country"
	"github.com/passfoto/PassFoto/pkg/i18n"
	"github.com/passfoto/PassFoto/pkg/payment"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDPI = 96

type testEnv struct {
	server   *Server
	handler  http.Handler
	sessions *session.Manager
}

func newTestEnv(t *testing.T, provider http.HandlerFunc, opts ...func(*Options)) *testEnv {
	t.Helper()

	am := asset.NewManager()
	countries, err := country.LoadEmbedded(am)
	require.NoError(t, err)
	catalog, err := i18n.LoadEmbedded(am)
	require.NoError(t, err)

	if provider == nil {
		provider = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_test"}`))
		}
	}
	stub := httptest.NewServer(provider)
	t.Cleanup(stub.Close)
	stripe := payment.NewStripeProvider(payment.ProviderConfig{BaseURL: stub.URL, SecretKey: "sk_test"}, stub.Client())

	engine := photo.NewEngine(nil)
	passport := countries.DefaultPassport()
	sessions := session.NewManager(func(ctx context.Context, c *photo.CapturedImage, spec photo.OutputSpec) (*photo.ProcessedImage, error) {
		return engine.Transform(ctx, c, spec, testDPI)
	}, session.Selection{
		PhotoType:  country.Passport,
		Country:    passport.Code,
		Background: passport.Background,
		Spec:       passport.Spec(""),
	})

	o := Options{
		Version:   "test",
		DPI:       testDPI,
		Engine:    engine,
		Relay:     payment.NewRelay(stripe, "usd"),
		Pricing:   payment.Pricing{UnitPrice: 100, MaxQuantity: 15, Currency: "usd"},
		Countries: countries,
		Catalog:   catalog,
		Sessions:  sessions,
		Sheet:     photo.SheetSpec{WidthMM: 101.6, HeightMM: 152.4, DPI: 30, MarginMM: 3, GapMM: 2},
	}
	for _, fn := range opts {
		fn(&o)
	}

	s := NewServer(o)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return &testEnv{server: s, handler: s.Handler(), sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func framePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.NRGBA{R: 200, G: 150, B: 120, A: 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "running")
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodOptions, "/create-payment-intent", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCreatePaymentIntent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "300", r.PostForm.Get("amount"))
			_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_abc"}`))
		})
		rr := env.do(t, http.MethodPost, "/create-payment-intent", []byte(`{"amount":300}`))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "pi_1_secret_abc", decode(t, rr)["clientSecret"])
	})

	t.Run("Provider failure", func(t *testing.T) {
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key provided"}}`))
		})
		rr := env.do(t, http.MethodPost, "/create-payment-intent", []byte(`{"amount":300}`))
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Invalid API Key provided", decode(t, rr)["error"])
	})

	t.Run("Bad requests", func(t *testing.T) {
		called := false
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
		for _, body := range []string{`{}`, `{"amount":null}`, `{"amount":0}`, `{"amount":-5}`, `{"amount":2.5}`, `{"amount":"300"}`, `{"amount":true}`, `not json`} {
			rr := env.do(t, http.MethodPost, "/create-payment-intent", []byte(body))
			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
			assert.NotEmpty(t, decode(t, rr)["error"], body)
		}
		assert.False(t, called)

		rr := env.do(t, http.MethodGet, "/create-payment-intent", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("Rate limited", func(t *testing.T) {
		env := newTestEnv(t, nil, func(o *Options) {
			o.PaymentRate = 0.001
			o.PaymentBurst = 1
		})
		rr := env.do(t, http.MethodPost, "/create-payment-intent", []byte(`{"amount":100}`))
		assert.Equal(t, http.StatusOK, rr.Code)
		rr = env.do(t, http.MethodPost, "/create-payment-intent", []byte(`{"amount":100}`))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/quote?quantity=3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.EqualValues(t, 3, body["quantity"])
	assert.EqualValues(t, 300, body["amount"])
	assert.Equal(t, "usd", body["currency"])

	rr = env.do(t, http.MethodGet, "/quote?quantity=99", nil)
	assert.EqualValues(t, 15, decode(t, rr)["quantity"])

	rr = env.do(t, http.MethodGet, "/quote?quantity=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCountries(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/countries?lang=en", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Language    string            `json:"language"`
		Countries   []countryEntry    `json:"countries"`
		Backgrounds []backgroundEntry `json:"backgrounds"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "en", body.Language)

	byCode := make(map[string]countryEntry)
	for _, c := range body.Countries {
		byCode[c.Code] = c
	}
	require.Contains(t, byCode, "USA")
	assert.Equal(t, 192, byCode["USA"].WidthPx)
	assert.True(t, byCode["USA"].Passport)
	require.Contains(t, byCode, "UK")
	assert.Equal(t, 132, byCode["UK"].WidthPx)
	assert.Equal(t, 170, byCode["UK"].HeightPx)
	assert.Equal(t, "lightgrey", byCode["UK"].Background)
	assert.Equal(t, "Light Grey", byCode["UK"].BackgroundLabel)

	assert.Equal(t, []backgroundEntry{
		{Name: "blue", Label: "Blue"},
		{Name: "green", Label: "Green"},
		{Name: "lightgrey", Label: "Light Grey"},
		{Name: "red", Label: "Red"},
		{Name: "white", Label: "White"},
		{Name: "yellow", Label: "Yellow"},
	}, body.Backgrounds)
}

func TestI18n(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/i18n/ur", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "ur", body["language"])
	assert.Equal(t, []interface{}{"en", "ur"}, body["languages"])

	rr = env.do(t, http.MethodGet, "/i18n/auto", nil, "Accept-Language", "ur-PK,ur;q=0.9,en;q=0.5")
	assert.Equal(t, "ur", decode(t, rr)["language"])

	rr = env.do(t, http.MethodGet, "/i18n/auto", nil, "Accept-Language", "de-DE")
	assert.Equal(t, "en", decode(t, rr)["language"])

	rr = env.do(t, http.MethodGet, "/i18n/xx", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func createSession(t *testing.T, env *testEnv) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	id, _ := decode(t, rr)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func waitIdle(t *testing.T, env *testEnv, id string) {
	t.Helper()
	sess, ok := env.sessions.Get(id)
	require.True(t, ok)
	sess.Wait()
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	id := createSession(t, env)

	rr := env.do(t, http.MethodGet, "/sessions/"+id+"/preview", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodPost, "/sessions/"+id+"/capture", framePNG(t, 640, 480))
	require.Equal(t, http.StatusAccepted, rr.Code)
	body := decode(t, rr)
	assert.EqualValues(t, 1, body["version"])
	assert.EqualValues(t, 640, body["width"])
	waitIdle(t, env, id)

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	cfg, err := png.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 192, cfg.Width)
	assert.Equal(t, 192, cfg.Height)

	rr = env.do(t, http.MethodPut, "/sessions/"+id+"/spec", []byte(`{"photoType":"visa","country":"UK"}`))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.EqualValues(t, 2, decode(t, rr)["version"])
	waitIdle(t, env, id)

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-Preview-Version"))
	cfg, err = png.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 132, cfg.Width)
	assert.Equal(t, 170, cfg.Height)

	rr = env.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/preview", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	id := createSession(t, env)

	rr := env.do(t, http.MethodPost, "/sessions/"+id+"/capture", []byte("not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Capture failed, please try again.", decode(t, rr)["error"])

	rr = env.do(t, http.MethodPut, "/sessions/"+id+"/spec", []byte(`{"photoType":"visa","country":"XX"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPut, "/sessions/"+id+"/spec", []byte(`{"photoType":"visa","country":"UK","background":"plaid"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/sheet", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodGet, "/sessions/missing/preview", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/capture", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCaptureOverPixelLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	id := createSession(t, env)

	// A 1x1 PNG whose header claims 20000x20000.
	data := framePNG(t, 1, 1)
	binary.BigEndian.PutUint32(data[16:], 20000)
	binary.BigEndian.PutUint32(data[20:], 20000)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))

	rr := env.do(t, http.MethodPost, "/sessions/"+id+"/capture", data)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "20000x20000")

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/preview", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodPost, "/sessions/"+id+"/capture", framePNG(t, 64, 48))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.EqualValues(t, 1, decode(t, rr)["version"])
	waitIdle(t, env, id)
}

func TestSheet(t *testing.T) {
	env := newTestEnv(t, nil)
	id := createSession(t, env)

	rr := env.do(t, http.MethodPost, "/sessions/"+id+"/capture", framePNG(t, 320, 240))
	require.Equal(t, http.StatusAccepted, rr.Code)
	waitIdle(t, env, id)

	// 51x51mm at 30 DPI fits two per 4x6in sheet.
	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/sheet?quantity=3&page=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-Sheet-Count"))
	cfg, err := png.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 180, cfg.Height)

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/sheet?quantity=3&page=3", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/sheet?quantity=0", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestWebSocketPreviewEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	server := httptest.NewServer(env.handler)
	defer server.Close()

	id := createSession(t, env)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + id

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	// The client is registered once the upgrade returns; give the handler a moment.
	require.Eventually(t, func() bool {
		env.server.clientsMu.Lock()
		defer env.server.clientsMu.Unlock()
		return len(env.server.clients) == 1
	}, time.Second, 10*time.Millisecond)

	rr := env.do(t, http.MethodPost, "/sessions/"+id+"/capture", framePNG(t, 640, 480))
	require.Equal(t, http.StatusAccepted, rr.Code)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var u session.Update
	require.NoError(t, ws.ReadJSON(&u))
	assert.Equal(t, session.PreviewUpdated, u.Kind)
	assert.Equal(t, id, u.SessionID)
	assert.EqualValues(t, 1, u.Version)
	assert.Equal(t, 192, u.Width)
}

func TestWebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)
	server := httptest.NewServer(env.handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
