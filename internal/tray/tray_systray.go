//go:build systray

package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"
)

type Systray struct {
	Title string
	Quit  func()

	mu     sync.Mutex
	status string
	item   *systray.MenuItem
}

func New(title string, quit func()) App {
	return &Systray{Title: title, Quit: quit, status: "Starting"}
}

func (s *Systray) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if s.item != nil {
		s.item.SetTitle(status)
	}
}

func (s *Systray) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() {
		systray.SetTitle(s.Title)
		s.mu.Lock()
		s.item = systray.AddMenuItem(s.status, "Bridge status")
		s.item.Disable()
		s.mu.Unlock()
		mQuit := systray.AddMenuItem("Quit", "Quit Google Calendar Bridge")
		go func() {
			<-mQuit.ClickedCh
			if s.Quit != nil {
				s.Quit()
			}
			systray.Quit()
		}()
	}, func() {
		close(done)
	})
	<-done
	return nil
}
