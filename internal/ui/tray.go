// Package ui shows the agent in the system tray: the number of saved clips,
// the state of the current crop and a few actions.
package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/heimdex/heimdex-clips/internal/events"
	"github.com/heimdex/heimdex-clips/internal/store"
)

type Tray struct {
	store  *store.Store
	logger *slog.Logger

	statusItem *systray.MenuItem
	clipsItem  *systray.MenuItem
	clearItem  *systray.MenuItem

	mu          sync.Mutex
	status      string
	clips       int
	unsubscribe func()

	onOpen func()
	onQuit func()
}

type TrayConfig struct {
	Store  *store.Store
	Logger *slog.Logger
	OnOpen func()
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		store:  cfg.Store,
		logger: cfg.Logger,
		status: "Idle",
		onOpen: cfg.OnOpen,
		onQuit: cfg.OnQuit,
	}
}

// Run blocks on the platform event loop; it must be called from main.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clips")
	systray.SetTooltip("Heimdex Clips")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem(statusTitle(t.status), "Current crop")
	t.statusItem.Disable()
	t.clipsItem = systray.AddMenuItem(clipsTitle(t.clips), "Saved clips")
	t.clipsItem.Disable()
	t.mu.Unlock()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Clips", "Open the clips screen")
	t.clearItem = systray.AddMenuItem("Discard Selection", "Forget the video being trimmed")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Clips")

	t.unsubscribe = t.store.Subscribe(t.onStoreChange)
	t.onStoreChange(t.store.State())

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				if t.onOpen != nil {
					t.onOpen()
				}
			case <-t.clearItem.ClickedCh:
				t.logger.Info("selection discarded from tray")
				t.store.CleanSelectedVideo()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.logger.Info("system tray exiting")
}

func (t *Tray) onStoreChange(s store.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clips = len(s.CroppedVideos)
	if t.clipsItem != nil {
		t.clipsItem.SetTitle(clipsTitle(t.clips))
	}
	if t.clearItem != nil {
		if s.SelectedVideo != nil {
			t.clearItem.Enable()
		} else {
			t.clearItem.Disable()
		}
	}
}

// Publish receives crop events so the status line follows the mutation.
func (t *Tray) Publish(ev events.Event) {
	status, ok := statusForEvent(ev.Type)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	if t.statusItem != nil {
		t.statusItem.SetTitle(statusTitle(status))
	}
}

func statusForEvent(eventType string) (string, bool) {
	switch eventType {
	case events.TypeCropStarted:
		return "Cropping...", true
	case events.TypeClipAdded:
		return "Idle", true
	case events.TypeCropFailed:
		return "Last crop failed", true
	}
	return "", false
}

func statusTitle(status string) string {
	return "Status: " + status
}

func clipsTitle(n int) string {
	if n == 1 {
		return "1 clip"
	}
	return fmt.Sprintf("%d clips", n)
}
