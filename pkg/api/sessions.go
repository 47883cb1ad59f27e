package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/passfoto/PassFoto/pkg/country"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/pkg/session"
	"github.com/passfoto/PassFoto/util/log"
)

// handleCreateSession starts a session: POST /sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := s.opts.Sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        sess.ID(),
		"selection": sess.Snapshot().Selection,
	})
}

// handleSession routes /sessions/{id}[/{action}].
// Supported patterns:
// 1. DELETE /sessions/{id}
// 2. POST   /sessions/{id}/capture
// 3. PUT    /sessions/{id}/spec
// 4. GET    /sessions/{id}/preview
// 5. GET    /sessions/{id}/sheet?quantity=n&page=p
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		if !allowMethod(w, r, http.MethodDelete) {
			return
		}
		if !s.opts.Sessions.Remove(id) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sess, ok := s.opts.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch parts[1] {
	case "capture":
		if allowMethod(w, r, http.MethodPost) {
			s.handleCapture(w, r, sess)
		}
	case "spec":
		if allowMethod(w, r, http.MethodPut) {
			s.handleSpec(w, r, sess)
		}
	case "preview":
		if allowMethod(w, r, http.MethodGet) {
			s.handlePreview(w, r, sess)
		}
	case "sheet":
		if allowMethod(w, r, http.MethodGet) {
			s.handleSheet(w, r, sess)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCaptureBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "capture is too large")
		return
	}

	capture, err := photo.NewCapturedImage(data)
	if err != nil {
		s.writeCaptureError(w, r, err)
		return
	}

	version, err := sess.Capture(capture)
	if err != nil {
		writeError(w, http.StatusGone, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"version": version,
		"width":   capture.Width,
		"height":  capture.Height,
	})
}

func (s *Server) handleSpec(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		PhotoType  country.PhotoType `json:"photoType"`
		Country    string            `json:"country"`
		Background string            `json:"background"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sel, err := s.resolveSelection(req.PhotoType, req.Country, req.Background)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	version, err := sess.Select(sel)
	if err != nil {
		writeError(w, http.StatusGone, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"version":   version,
		"selection": sel,
	})
}

// resolveSelection turns the user's choice into a concrete spec. An empty
// background takes the country's recommended colour.
func (s *Server) resolveSelection(pt country.PhotoType, code, background string) (session.Selection, error) {
	c, err := s.opts.Countries.Resolve(pt, code)
	if err != nil {
		return session.Selection{}, err
	}
	spec := c.Spec(background)
	if _, err := photo.ParseColor(spec.Background); err != nil {
		return session.Selection{}, err
	}
	if pt == "" {
		pt = country.Passport
	}
	return session.Selection{
		PhotoType:  pt,
		Country:    c.Code,
		Background: spec.Background,
		Spec:       spec,
	}, nil
}

// handlePreview serves the latest applied render.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	st := sess.Snapshot()
	w.Header().Set("X-Preview-Version", strconv.FormatUint(st.Applied, 10))

	switch {
	case st.Err != nil:
		s.writeCaptureError(w, r, st.Err)
	case st.Result == nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(st.Result.PNG)
	}
}

// handleSheet renders page p of a print order of n copies.
func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	quantity, err := intParam(r, "quantity", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit := s.opts.Pricing.MaxQuantity; limit > 0 && quantity > limit {
		quantity = limit
	}

	st := sess.Snapshot()
	if st.Capture == nil {
		writeError(w, http.StatusConflict, s.opts.Catalog.Lookup(s.language(r, ""), "errorNoPhoto"))
		return
	}

	sheets, layout, err := s.opts.Engine.RenderSheets(r.Context(), st.Capture, st.Selection.Spec, quantity, s.opts.Sheet)
	if err != nil {
		s.writeCaptureError(w, r, err)
		return
	}
	if page < 1 || page > len(sheets) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d of %d", page, len(sheets)))
		return
	}

	data, err := s.opts.Engine.EncodeImage(r.Context(), sheets[page-1], imaging.PNG)
	if err != nil {
		log.Printf("Encoding sheet failed: %v", err)
		writeError(w, http.StatusInternalServerError, "encoding sheet failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Sheet-Count", strconv.Itoa(layout.Sheets))
	_, _ = w.Write(data)
}

// writeCaptureError maps engine errors to a status. A bad capture gets the
// localized retake message.
func (s *Server) writeCaptureError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *photo.DecodeError
	switch {
	case errors.As(err, &derr):
		writeError(w, http.StatusUnprocessableEntity, s.opts.Catalog.Lookup(s.language(r, ""), "errorCaptureFailed"))
	case errors.Is(err, photo.ErrInvalidDimensions), errors.Is(err, photo.ErrInvalidQuantity), errors.Is(err, photo.ErrUnknownColor):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("Rendering failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

// handleWebSocket upgrades the connection and follows ?session={id}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if _, ok := s.opts.Sessions.Get(id); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.clientsMu.Lock()
	s.clients[conn] = id
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	for {
		// Client messages are keepalives only.
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
