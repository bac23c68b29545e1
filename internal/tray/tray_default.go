//go:build !systray

package tray

// New returns the headless tray unless the systray build tag is set.
func New(title string, quit func()) App {
	return NewNoop()
}
