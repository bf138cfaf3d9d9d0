//go:build !darwin

package platform

// IsAppActive always reports true outside macOS
func IsAppActive() bool {
	return true
}

func BringToFront() {}

func HideFromDock() {}
