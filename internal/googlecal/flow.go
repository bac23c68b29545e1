// Package googlecal owns the Google Calendar side of the bridge: parsing
// OAuth client credentials, driving the authorization state machine, and
// issuing the windowed event queries the pollers run on.
package googlecal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevenofnine/google-calendar-bridge/internal/auth"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ModuleName doubles as the OAuth state token so the redirect callback can
// be matched back to this bridge.
const ModuleName = "google-calendar-bridge"

type State string

const (
	StateUnauthenticated         State = "UNAUTHENTICATED"
	StateAwaitingCredentialsFile State = "AWAITING_CREDENTIALS_FILE"
	StateAwaitingToken           State = "AWAITING_TOKEN"
	StateAwaitingUserCode        State = "AWAITING_USER_CODE"
	StateAuthorized              State = "AUTHORIZED"
	StateFailed                  State = "FAILED"
)

// StartResult reports where the flow landed after Start: either already
// AUTHORIZED from a stored token, or AWAITING_USER_CODE with the URL the
// user must visit.
type StartResult struct {
	State          State
	AuthURL        string
	CredentialType CredentialType
}

// Flow is the authorization state machine. It is driven at most twice:
// Start, and HandleAuthCode if Start reported a pending user code. Once
// AUTHORIZED the client handle is held for the process lifetime.
type Flow struct {
	credentialsPath string
	store           auth.Store
	log             *slog.Logger
	endpoint        oauth2.Endpoint

	// newService is a test seam; production builds a calendar.Service
	// from the token source.
	newService func(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error)

	mu      sync.Mutex
	state   State
	cfg     *oauth2.Config
	ctype   CredentialType
	service *calendar.Service
	failure *AuthError
}

type FlowOptions struct {
	CredentialsPath string
	Store           auth.Store
	Logger          *slog.Logger
	// Endpoint overrides the Google OAuth endpoint, for tests.
	Endpoint   oauth2.Endpoint
	NewService func(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error)
}

func NewFlow(opts FlowOptions) *Flow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newService := opts.NewService
	if newService == nil {
		newService = func(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error) {
			return calendar.NewService(ctx, option.WithTokenSource(ts))
		}
	}
	return &Flow{
		credentialsPath: opts.CredentialsPath,
		store:           opts.Store,
		log:             logger,
		endpoint:        opts.Endpoint,
		newService:      newService,
		state:           StateUnauthenticated,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Failure returns the terminal failure, if any.
func (f *Flow) Failure() *AuthError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

// Service returns the authorized client handle. It is only available once
// the flow reached AUTHORIZED.
func (f *Flow) Service() (*calendar.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateAuthorized || f.service == nil {
		return nil, fmt.Errorf("authorization flow is not in state %s", StateAuthorized)
	}
	return f.service, nil
}

// Start reads the credentials file and either applies a stored token or
// produces the authorization URL the user must visit. Configuration
// failures are terminal and never retried automatically.
func (f *Flow) Start(ctx context.Context) (StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = StateAwaitingCredentialsFile
	cfg, ctype, err := LoadCredentials(f.credentialsPath)
	if err != nil {
		return StartResult{}, f.failLocked(err)
	}
	f.cfg = cfg
	f.ctype = ctype
	if f.endpoint.TokenURL != "" {
		f.cfg.Endpoint = f.endpoint
	}

	f.state = StateAwaitingToken
	tok, err := f.store.Load()
	switch {
	case err == nil:
		if err := f.authorizeLocked(ctx, tok); err != nil {
			return StartResult{}, f.failLocked(err)
		}
		return StartResult{State: StateAuthorized, CredentialType: ctype}, nil
	case errors.Is(err, auth.ErrNotFound):
		f.state = StateAwaitingUserCode
		url := cfg.AuthCodeURL(ModuleName, oauth2.AccessTypeOffline)
		f.log.Info("authorization needed", "credential_type", string(ctype))
		return StartResult{State: StateAwaitingUserCode, AuthURL: url, CredentialType: ctype}, nil
	default:
		// An unreadable token file is treated like an absent one; the
		// user re-authorizes and the save overwrites it.
		f.log.Warn("stored token unusable, requesting a new one", "err", err)
		f.state = StateAwaitingUserCode
		url := cfg.AuthCodeURL(ModuleName, oauth2.AccessTypeOffline)
		return StartResult{State: StateAwaitingUserCode, AuthURL: url, CredentialType: ctype}, nil
	}
}

// HandleAuthCode exchanges the out-of-band authorization code for a token,
// persists it, and authorizes the client. A failed save is logged but does
// not revert the authorization.
func (f *Flow) HandleAuthCode(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateAwaitingUserCode {
		return fmt.Errorf("unexpected authorization code in state %s", f.state)
	}
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return f.failLocked(&AuthError{Type: ErrorTokenExchange, Err: err})
	}
	if err := f.store.Save(tok); err != nil {
		f.log.Error("persisting token failed", "err", err)
	}
	if err := f.authorizeLocked(ctx, tok); err != nil {
		return f.failLocked(err)
	}
	return nil
}

func (f *Flow) authorizeLocked(ctx context.Context, tok *oauth2.Token) error {
	svc, err := f.newService(ctx, f.cfg.TokenSource(ctx, tok))
	if err != nil {
		return &AuthError{Type: ErrorTokenExchange, Err: err}
	}
	f.service = svc
	f.state = StateAuthorized
	f.log.Info("authorization complete", "credential_type", string(f.ctype))
	return nil
}

func (f *Flow) failLocked(err error) error {
	f.state = StateFailed
	var authErr *AuthError
	if errors.As(err, &authErr) {
		f.failure = authErr
	} else {
		f.failure = &AuthError{Type: ErrorTokenExchange, Err: err}
	}
	return f.failure
}
