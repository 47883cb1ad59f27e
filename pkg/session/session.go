// Package session keeps the per-user capture state and re-renders the preview
// whenever the capture or the requested photo changes.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/passfoto/PassFoto/pkg/country"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/util"
	"github.com/passfoto/PassFoto/util/log"
)

// ErrClosed is returned for events sent to a closed session.
var ErrClosed = errors.New("session is closed")

// TransformFunc renders one (capture, spec) pair.
type TransformFunc func(ctx context.Context, capture *photo.CapturedImage, spec photo.OutputSpec) (*photo.ProcessedImage, error)

// Selection is the photo the user asked for and the spec it resolved to.
type Selection struct {
	PhotoType  country.PhotoType `json:"photoType"`
	Country    string            `json:"country"`
	Background string            `json:"background"`
	Spec       photo.OutputSpec  `json:"spec"`
}

// Event is an input to dispatch.
type Event interface {
	isEvent()
}

// CaptureEvent replaces the captured frame.
type CaptureEvent struct {
	Capture *photo.CapturedImage
}

// SpecEvent replaces the requested photo.
type SpecEvent struct {
	Selection Selection
}

// ResultEvent carries a finished transform back into the session.
type ResultEvent struct {
	Version uint64
	Result  *photo.ProcessedImage
	Err     error
}

func (CaptureEvent) isEvent() {}
func (SpecEvent) isEvent()    {}
func (ResultEvent) isEvent()  {}

// UpdateKind says how an applied result turned out.
type UpdateKind string

// Update kinds
const (
	PreviewUpdated UpdateKind = "preview_updated"
	PreviewFailed  UpdateKind = "preview_failed"
)

// Update is sent to listeners each time a result is applied.
type Update struct {
	SessionID string     `json:"session"`
	Kind      UpdateKind `json:"type"`
	Version   uint64     `json:"version"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Listener receives applied updates in increasing version order. It is called
// outside the session lock.
type Listener func(Update)

// State is a snapshot of a session.
type State struct {
	ID        string
	Version   uint64 // latest input version
	Applied   uint64 // version of Result or Err, 0 if nothing was applied yet
	Capture   *photo.CapturedImage
	Selection Selection
	Result    *photo.ProcessedImage
	Err       error
	UpdatedAt time.Time
}

// Pending reports whether a newer input is still being rendered.
func (s State) Pending() bool {
	return s.Capture != nil && s.Applied != s.Version
}

// Session is the state of one user. All mutations go through dispatch.
type Session struct {
	id        string
	mu        sync.Mutex
	state     State
	versions  *util.Sequence
	transform TransformFunc
	listener  Listener
	notifyMu  sync.Mutex
	notified  uint64 // highest version passed to listener
	cancel    context.CancelFunc
	ctx       context.Context
	inflight  sync.WaitGroup
	closed    *util.SafeFlag
}

func newSession(id string, sel Selection, transform TransformFunc, listener Listener) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:        id,
		state:     State{ID: id, Selection: sel, UpdatedAt: time.Now()},
		versions:  util.NewSequence(),
		transform: transform,
		listener:  listener,
		ctx:       ctx,
		cancel:    cancel,
		closed:    util.NewSafeBool(),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Capture stores a new frame and returns the version that will render it.
func (s *Session) Capture(capture *photo.CapturedImage) (uint64, error) {
	st, err := s.Send(CaptureEvent{Capture: capture})
	return st.Version, err
}

// Select stores a new photo selection and returns the version that will
// render it.
func (s *Session) Select(sel Selection) (uint64, error) {
	st, err := s.Send(SpecEvent{Selection: sel})
	return st.Version, err
}

// Send dispatches ev and returns the state right after it.
func (s *Session) Send(ev Event) (State, error) {
	if s.closed.Value() {
		return s.Snapshot(), ErrClosed
	}
	st, update := s.dispatch(ev)
	if update != nil {
		s.notify(*update)
	}
	return st, nil
}

// notify passes u to the listener unless a newer version already went out.
// Two results can be applied back to back and reach here in either order.
func (s *Session) notify(u Update) {
	if s.listener == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if u.Version <= s.notified {
		log.Debugf("Session %s: not announcing v%d after v%d", s.id, u.Version, s.notified)
		return
	}
	s.notified = u.Version
	s.listener(u)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until every started transform has reported back.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close drops the session. Running transforms see a cancelled context and
// their results are discarded.
func (s *Session) Close() {
	if s.closed.Value() {
		return
	}
	s.closed.Set(true)
	s.cancel()
}

// dispatch is the only place the state changes. An applied ResultEvent
// yields an Update for listeners.
func (s *Session) dispatch(ev Event) (State, *Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case CaptureEvent:
		s.state.Capture = e.Capture
		s.bump()
	case SpecEvent:
		s.state.Selection = e.Selection
		s.bump()
	case ResultEvent:
		if !s.versions.IsLatest(e.Version) {
			log.Debugf("Session %s: dropping result v%d, latest is v%d", s.state.ID, e.Version, s.versions.Value())
			return s.state, nil
		}
		s.state.Applied = e.Version
		s.state.Result = e.Result
		s.state.Err = e.Err
		s.state.UpdatedAt = time.Now()
		return s.state, s.updateFor(e)
	}
	return s.state, nil
}

// bump records a new input version and starts rendering it. Must hold mu.
func (s *Session) bump() {
	v := s.versions.Next()
	s.state.Version = v
	s.state.UpdatedAt = time.Now()

	capture, spec := s.state.Capture, s.state.Selection.Spec
	if capture == nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		res, err := s.transform(s.ctx, capture, spec)
		if s.closed.Value() {
			return
		}
		if err != nil {
			log.Debugf("Session %s: transform v%d failed: %v", s.id, v, err)
		}
		_, _ = s.Send(ResultEvent{Version: v, Result: res, Err: err})
	}()
}

func (s *Session) updateFor(e ResultEvent) *Update {
	u := &Update{SessionID: s.state.ID, Version: e.Version}
	switch {
	case e.Err != nil:
		u.Kind = PreviewFailed
		u.Error = e.Err.Error()
	case e.Result == nil:
		return nil
	default:
		u.Kind = PreviewUpdated
		u.Width, u.Height = e.Result.Width, e.Result.Height
	}
	return u
}
