package tray

import "context"

// App is the optional desktop presence of the bridge. SetStatus reflects
// the authorization and polling state in the menu.
type App interface {
	Run(ctx context.Context) error
	SetStatus(status string)
}

type Noop struct{}

func NewNoop() App { return Noop{} }

func (Noop) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (Noop) SetStatus(string) {}
