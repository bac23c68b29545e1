// Package api is the HTTP surface of the bridge. The rendering host pulls
// the processed event list, streams notifications over SSE, and receives
// the OAuth redirect on behalf of the user.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"github.com/sevenofnine/google-calendar-bridge/internal/googlecal"
	"github.com/sevenofnine/google-calendar-bridge/internal/security"
	"google.golang.org/api/calendar/v3"
)

// Bridge is what the server needs from the application core.
type Bridge interface {
	Events() []domain.DisplayEvent
	RawEvents() map[string][]*calendar.Event
	Subscriptions() []domain.CalendarSubscription
	Subscribe() (<-chan domain.Notification, func())
	SubmitAuthCode(ctx context.Context, code string) error
	AuthState() googlecal.State
}

type Server struct {
	bridge  Bridge
	auth    security.BearerAuth
	log     *slog.Logger
	httpSrv *http.Server
}

type Options struct {
	Bridge Bridge
	Auth   security.BearerAuth
	Logger *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{bridge: opts.Bridge, auth: opts.Auth, log: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/calendars", s.handleCalendars)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/events/raw", s.handleRawEvents)
	mux.HandleFunc("/v1/notifications", s.handleNotifications)
	mux.HandleFunc("/oauth2/callback", s.handleOAuthCallback)
	s.httpSrv = &http.Server{Handler: s.wrapAuth(mux), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) ServeTCP(ctx context.Context, bind string) error {
	if bind == "" {
		return errors.New("bind required")
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	go s.shutdownOnContext(ctx)
	return s.httpSrv.Serve(ln)
}

func (s *Server) ServeUnix(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("socket path required")
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return err
	}
	go s.shutdownOnContext(ctx)
	return s.httpSrv.Serve(ln)
}

func (s *Server) wrapAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Authorize(r) {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) shutdownOnContext(ctx context.Context) {
	<-ctx.Done()
	timeout, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(timeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"auth_state": string(s.bridge.AuthState()),
	})
}

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.bridge.Subscriptions())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.bridge.Events())
}

func (s *Server) handleRawEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.bridge.RawEvents())
}

// handleNotifications streams the hub as server-sent events, one message
// per notification, until the client disconnects.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch, cancel := s.bridge.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				s.log.Error("encoding notification failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Type, payload)
			flusher.Flush()
		}
	}
}

// handleOAuthCallback is the redirect target of the authorization flow. The
// state parameter must match the one sent with the authorization URL.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		writeErr(w, http.StatusBadRequest, "authorization denied: "+msg)
		return
	}
	if q.Get("state") != googlecal.ModuleName {
		writeErr(w, http.StatusBadRequest, "state mismatch")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeErr(w, http.StatusBadRequest, "missing code")
		return
	}
	if err := s.bridge.SubmitAuthCode(r.Context(), code); err != nil {
		s.log.Error("authorization code rejected", "err", err)
		var authErr *googlecal.AuthError
		if errors.As(err, &authErr) {
			writeErr(w, http.StatusBadGateway, err.Error())
			return
		}
		// Out-of-state or duplicate callbacks are a client error, not a
		// flow failure.
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Authentication successful! Please return to the console.\n"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
