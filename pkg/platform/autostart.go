package platform

import (
	"log"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
)

// listenerEntry describes the login item that starts the background listener
func listenerEntry(execPath string) *autostart.App {
	return &autostart.App{
		Name:        "transit-snoozer-listener",
		DisplayName: "Transit Snoozer listener",
		Exec:        []string{execPath, "listen"},
	}
}

// SetListenerAutostart makes the listener start at login, or stops it from
// doing so. Nothing changes when the entry is already in the wanted state.
func SetListenerAutostart(enable bool) error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return err
	}

	app := listenerEntry(execPath)
	switch {
	case enable && !app.IsEnabled():
		if err := app.Enable(); err != nil {
			log.Printf("Failed to enable listener autostart: %v", err)
			return err
		}
		log.Println("Listener autostart enabled")
	case !enable && app.IsEnabled():
		if err := app.Disable(); err != nil {
			log.Printf("Failed to disable listener autostart: %v", err)
			return err
		}
		log.Println("Listener autostart disabled")
	}
	return nil
}

// ListenerAutostartEnabled reports whether the login item exists
func ListenerAutostartEnabled() bool {
	execPath, err := os.Executable()
	if err != nil {
		return false
	}
	return listenerEntry(execPath).IsEnabled()
}
