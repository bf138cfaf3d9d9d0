package alarm

import (
	"strings"
	"sync"
)

// DismissalMemory remembers the title of the notification behind the most
// recently stopped alarm. Transit apps keep that notification on screen, so
// without it the next update would fire the alarm again straight away.
type DismissalMemory struct {
	mu    sync.RWMutex
	title string
}

// NormalizeTitle lower-cases and trims a notification title
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Remember stores the normalized title, replacing any previous one
func (m *DismissalMemory) Remember(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = NormalizeTitle(title)
}

// Matches reports whether title equals the remembered one. An empty memory
// never matches.
func (m *DismissalMemory) Matches(title string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.title != "" && m.title == NormalizeTitle(title)
}

// Clear forgets the remembered title
func (m *DismissalMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = ""
}

// Fingerprint returns the stored normalized title
func (m *DismissalMemory) Fingerprint() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.title
}
