// Package app wires the bridge together: it drives the authorization flow,
// launches one poll scheduler per configured calendar, keeps the raw
// snapshot and notification hub, and serves both through the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sevenofnine/google-calendar-bridge/internal/api"
	"github.com/sevenofnine/google-calendar-bridge/internal/config"
	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"github.com/sevenofnine/google-calendar-bridge/internal/googlecal"
	"github.com/sevenofnine/google-calendar-bridge/internal/pipeline"
	"github.com/sevenofnine/google-calendar-bridge/internal/poller"
	"github.com/sevenofnine/google-calendar-bridge/internal/security"
	"github.com/sevenofnine/google-calendar-bridge/internal/tray"
	"google.golang.org/api/calendar/v3"
)

type Application struct {
	cfg       config.Config
	flow      *googlecal.Flow
	hub       *Hub
	snapshots *SnapshotStore
	builder   *pipeline.Builder
	subs      []domain.CalendarSubscription
	tray      tray.App
	logger    *slog.Logger

	active    atomic.Bool
	startOnce sync.Once
	pollWG    sync.WaitGroup

	mu     sync.Mutex
	runCtx context.Context
}

func New(cfg config.Config, flow *googlecal.Flow, tr tray.App, logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	if tr == nil {
		tr = tray.NewNoop()
	}
	return &Application{
		cfg:       cfg,
		flow:      flow,
		hub:       NewHub(logger),
		snapshots: NewSnapshotStore(),
		builder: pipeline.NewBuilder(pipeline.Options{
			MaximumEntries:      cfg.Display.MaximumEntries,
			MaximumNumberOfDays: cfg.Display.MaximumNumberOfDays,
			LimitDays:           cfg.Display.LimitDays,
			HidePrivate:         cfg.Display.HidePrivate,
			HideOngoing:         cfg.Display.HideOngoing,
			HideDuplicates:      cfg.HideDuplicatesEnabled(),
			SliceMultiDayEvents: cfg.Display.SliceMultiDayEvents,
			ExcludedEvents:      cfg.Display.ExcludedEvents,
			Location:            cfg.Location(),
		}, logger),
		subs:   cfg.Subscriptions(),
		tray:   tr,
		logger: logger,
	}
}

func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()
	a.active.Store(true)
	defer a.active.Store(false)

	server := api.New(api.Options{
		Bridge: a,
		Auth: security.BearerAuth{
			Enabled: a.cfg.RequireBearerToken,
			Token:   a.cfg.BearerToken,
			Exempt:  []string{"/healthz", "/oauth2/callback"},
		},
		Logger: a.logger,
	})

	errCh := make(chan error, 3)
	wg := sync.WaitGroup{}

	if a.cfg.BindAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.ServeTCP(ctx, a.cfg.BindAddress); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("tcp server: %w", err)
			}
		}()
	}
	if a.cfg.UnixSocketPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.ServeUnix(ctx, a.cfg.UnixSocketPath); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("unix server: %w", err)
			}
		}()
	}
	if a.cfg.EnableTray {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.tray.Run(ctx); err != nil {
				errCh <- fmt.Errorf("tray: %w", err)
			}
		}()
	}

	a.authorize(ctx)

	select {
	case err := <-errCh:
		cancel()
		wg.Wait()
		a.pollWG.Wait()
		return err
	case <-ctx.Done():
		wg.Wait()
		a.pollWG.Wait()
		return nil
	}
}

// authorize drives the flow's first step and translates the outcome into
// host notifications. A terminal configuration failure leaves the process
// serving its API so the host can render the error.
func (a *Application) authorize(ctx context.Context) {
	res, err := a.flow.Start(ctx)
	if err != nil {
		a.notifyAuthFailure(err)
		return
	}
	switch res.State {
	case googlecal.StateAuthorized:
		a.onAuthorized(ctx)
	case googlecal.StateAwaitingUserCode:
		a.tray.SetStatus("Authorization needed")
		a.logger.Info("waiting for authorization code", "auth_url", res.AuthURL)
		a.hub.Publish(domain.Notification{
			Type: domain.NotifyAuthNeeded,
			AuthNeeded: &domain.AuthNeededNotfn{
				URL:            res.AuthURL,
				CredentialType: string(res.CredentialType),
			},
		})
	}
}

// SubmitAuthCode completes the authorization flow with the code delivered
// to the OAuth redirect endpoint. Only genuine flow failures are announced;
// a stray or repeated callback is rejected without touching the published
// authorization state.
func (a *Application) SubmitAuthCode(ctx context.Context, code string) error {
	if err := a.flow.HandleAuthCode(ctx, code); err != nil {
		var authErr *googlecal.AuthError
		if errors.As(err, &authErr) {
			a.notifyAuthFailure(authErr)
		} else {
			a.logger.Warn("rejected authorization code", "err", err)
		}
		return err
	}
	a.onAuthorized(a.runContext())
	return nil
}

func (a *Application) notifyAuthFailure(err error) {
	errType := string(googlecal.ErrorTokenExchange)
	var authErr *googlecal.AuthError
	if errors.As(err, &authErr) {
		errType = string(authErr.Type)
	}
	a.tray.SetStatus("Authorization failed")
	a.logger.Error("authorization failed", "error_type", errType, "err", err)
	a.hub.Publish(domain.Notification{
		Type:       domain.NotifyAuthFailed,
		AuthFailed: &domain.AuthFailedNotfn{ErrorType: errType},
	})
}

// onAuthorized announces readiness and starts the pollers, exactly once.
func (a *Application) onAuthorized(ctx context.Context) {
	a.startOnce.Do(func() {
		svc, err := a.flow.Service()
		if err != nil {
			a.logger.Error("authorized flow has no service", "err", err)
			return
		}
		source := googlecal.NewSource(svc)

		a.tray.SetStatus("Authorized")
		a.hub.Publish(domain.Notification{Type: domain.NotifyServiceReady})

		for _, sub := range a.subs {
			sched := poller.New(poller.Options{
				Subscription: sub,
				Source:       source,
				Notify:       a.hub.Publish,
				Store:        a.snapshots.Store,
				Active:       &a.active,
				Logger:       a.logger,
			})
			a.pollWG.Add(1)
			go func() {
				defer a.pollWG.Done()
				sched.Run(ctx)
			}()
		}
		a.logger.Info("service ready", "calendars", len(a.subs))
	})
}

func (a *Application) runContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runCtx != nil {
		return a.runCtx
	}
	return context.Background()
}

// Events runs the display pipeline over the current snapshot.
func (a *Application) Events() []domain.DisplayEvent {
	return a.builder.Build(a.snapshots.Batches(a.subs))
}

// RawEvents exposes the unprocessed snapshot per calendar.
func (a *Application) RawEvents() map[string][]*calendar.Event {
	return a.snapshots.Raw()
}

func (a *Application) Subscriptions() []domain.CalendarSubscription {
	return a.subs
}

func (a *Application) Subscribe() (<-chan domain.Notification, func()) {
	return a.hub.Subscribe()
}

func (a *Application) AuthState() googlecal.State {
	return a.flow.State()
}
