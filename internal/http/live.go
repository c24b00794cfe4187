package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"receipts/internal/core"
	applog "receipts/internal/log"
	"receipts/internal/spending"
)

// A live session is one open event stream following a period controller.
// The client that opened it steers it with PUT requests naming the same
// session, and the session ends when the stream disconnects.

const keepAliveInterval = 25 * time.Second

var validSession = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var errSessionTaken = errors.New("session already streaming")

type liveSession struct {
	ctrl   *spending.PeriodController
	cancel context.CancelFunc
}

type liveSessions struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	closed   bool
}

func newLiveSessions() *liveSessions {
	return &liveSessions{sessions: make(map[string]*liveSession)}
}

func (l *liveSessions) add(name string, s *liveSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return http.ErrServerClosed
	}
	if _, ok := l.sessions[name]; ok {
		return errSessionTaken
	}
	l.sessions[name] = s
	return nil
}

func (l *liveSessions) get(name string) (*liveSession, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[name]
	return s, ok
}

// remove deletes name only while it still maps to s.
func (l *liveSessions) remove(name string, s *liveSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessions[name] == s {
		delete(l.sessions, name)
	}
}

func (l *liveSessions) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// closeAll ends every stream and refuses new ones.
func (l *liveSessions) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for _, s := range l.sessions {
		s.cancel()
	}
}

type stateView struct {
	Period    string        `json:"period"`
	Dimension dimensionView `json:"dimension"`
}

func stateOf(st spending.PeriodState) stateView {
	return stateView{Period: st.Period.String(), Dimension: dimensionOfView(st.Dimension)}
}

type liveEvent struct {
	stateView
	Report *reportView `json:"report,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func sessionName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("session")
	if !validSession.MatchString(name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid session %q", name))
		return "", false
	}
	return name, true
}

// handleLiveStream opens a server-sent event stream of spending reports.
// It starts on ?period= (default month) and ?dimension=/?id=.
func (s *Server) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	name, ok := sessionName(w, r)
	if !ok {
		return
	}
	dim, p, ok := spendingQuery(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ctrl, err := spending.NewPeriodController(ctx, s.spending, dim)
	if err != nil {
		writeInternal(w, r, "open live session failed", err)
		return
	}
	defer ctrl.Close()
	if p != core.DefaultPeriod {
		if err := ctrl.SwitchPeriod(p); err != nil {
			writeInternal(w, r, "open live session failed", err)
			return
		}
	}

	sess := &liveSession{ctrl: ctrl, cancel: cancel}
	switch err := s.sessions.add(name, sess); {
	case errors.Is(err, errSessionTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	defer s.sessions.remove(name, sess)

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentSpending).With(applog.FieldSession, name)
	logger.InfoContext(ctx, "Live session opened", applog.FieldPeriod, p.String(), applog.FieldDimension, dim.String())
	defer logger.InfoContext(r.Context(), "Live session closed")

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		logger.WarnContext(ctx, "Streaming unsupported", applog.FieldError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	loc := s.spending.Location()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case u, ok := <-ctrl.Updates():
			if !ok {
				return
			}
			ev := liveEvent{stateView: stateOf(u.Key)}
			kind := "report"
			if u.Value.Err != nil {
				kind = "error"
				ev.Error = "report failed"
			} else {
				view := reportOf(u.Value.Value, loc)
				ev.Report = &view
			}
			if err := writeEvent(w, kind, ev); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func (s *Server) liveSession(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	name, ok := sessionName(w, r)
	if !ok {
		return nil, false
	}
	sess, ok := s.sessions.get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no live session %q", name))
		return nil, false
	}
	return sess, true
}

func (s *Server) handleLiveState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.ctrl.State()))
}

type periodRequest struct {
	Period string `json:"period"`
}

// handleLivePeriod switches the period of a live session. Once it answers,
// the stream carries no report for the previous period.
func (s *Server) handleLivePeriod(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	var req periodRequest
	if !body(w, r, &req) {
		return
	}
	p, err := core.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.ctrl.SwitchPeriod(p); err != nil {
		writeError(w, http.StatusGone, "live session ended")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.ctrl.State()))
}

type dimensionRequest struct {
	Dimension string `json:"dimension"`
	ID        int64  `json:"id"`
}

func (s *Server) handleLiveDimension(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	var req dimensionRequest
	if !body(w, r, &req) {
		return
	}
	dim, err := dimensionOf(req.Dimension, req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.ctrl.SwitchDimension(dim); err != nil {
		writeError(w, http.StatusGone, "live session ended")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.ctrl.State()))
}
