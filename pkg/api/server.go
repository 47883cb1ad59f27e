package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/passfoto/PassFoto/pkg/country"
	"github.com/passfoto/PassFoto/pkg/i18n"
	"github.com/passfoto/PassFoto/pkg/payment"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/pkg/session"
	"github.com/passfoto/PassFoto/util"
	"github.com/passfoto/PassFoto/util/log"
	"golang.org/x/time/rate"
)

// maxCaptureBytes caps an uploaded frame.
const maxCaptureBytes = 20 << 20

// Options wires the server to its collaborators.
type Options struct {
	Addr      string
	Version   string
	Language  string // used when the request names no supported language
	DPI       float64
	Engine    *photo.Engine
	Relay     *payment.Relay
	Pricing   payment.Pricing
	Countries *country.Table
	Catalog   *i18n.Catalog
	Sessions  *session.Manager
	Sheet     photo.SheetSpec

	// PaymentRate and PaymentBurst throttle /create-payment-intent. A zero
	// rate disables the limit.
	PaymentRate  float64
	PaymentBurst int
}

// Server represents the PassFoto REST/WebSocket server.
type Server struct {
	opts       Options
	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	limiter    *rate.Limiter
	closing    *util.SafeFlag

	// WebSocket clients and the session each one follows
	clients   map[*websocket.Conn]string
	clientsMu sync.Mutex
}

// NewServer creates a new API server and subscribes it to session updates.
func NewServer(opts Options) *Server {
	s := &Server{
		opts: opts,
		mux:  http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		closing: util.NewSafeBool(),
		clients: make(map[*websocket.Conn]string),
	}
	if opts.PaymentRate > 0 {
		burst := opts.PaymentBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.PaymentRate), burst)
	}
	if opts.Sessions != nil {
		opts.Sessions.Subscribe(s.Broadcast)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.enableCORS(s.handleHealth))
	s.mux.HandleFunc("/create-payment-intent", s.enableCORS(s.rateLimited(s.handleCreatePaymentIntent)))
	s.mux.HandleFunc("/quote", s.enableCORS(s.handleQuote))
	s.mux.HandleFunc("/countries", s.enableCORS(s.handleCountries))
	s.mux.HandleFunc("/i18n/", s.enableCORS(s.handleI18n))
	s.mux.HandleFunc("/sessions", s.enableCORS(s.handleCreateSession))
	s.mux.HandleFunc("/sessions/", s.enableCORS(s.handleSession))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// enableCORS adds CORS headers to the handler.
func (s *Server) enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "X-Sheet-Count")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// rateLimited rejects requests beyond the configured payment rate.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}
		next(w, r)
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Listening on %s", s.opts.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and drops all sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.closing.Set(true)

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
	s.clientsMu.Unlock()

	if s.opts.Sessions != nil {
		s.opts.Sessions.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Broadcast sends a preview update to every client following its session.
func (s *Server) Broadcast(u session.Update) {
	if s.closing.Value() {
		return
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for client, id := range s.clients {
		if id != u.SessionID {
			continue
		}
		if err := client.WriteJSON(u); err != nil {
			log.Printf("Failed to send update to client: %v", err)
			client.Close()
			delete(s.clients, client)
		}
	}
}
