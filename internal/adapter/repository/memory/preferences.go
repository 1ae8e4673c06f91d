// Package memory implements the repository ports on top of the Fyne
// preferences store, which keeps values in memory and flushes them to the
// application's preferences file.
package memory

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

const (
	keyVolume   = "preferences.volume"
	keyLastItem = "preferences.last_item"
)

// PreferencesRepository implements ports.PreferencesRepository using Fyne preferences.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a new preferences repository.
// The preferences parameter should be obtained from fyne.App.Preferences().
func NewPreferencesRepository(prefs fyne.Preferences) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveVolume persists the volume level.
func (r *PreferencesRepository) SaveVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.NewServiceError("PreferencesRepository", "SaveVolume", "volume out of range", domain.ErrInvalidVolume)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetFloat(keyVolume, volume)
	return nil
}

// LoadVolume retrieves the saved volume level. A negative stored value means
// nothing was saved.
func (r *PreferencesRepository) LoadVolume() (float64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	volume := r.prefs.FloatWithFallback(keyVolume, -1)
	if volume < 0 {
		return 0, false, nil
	}
	return min(volume, 1), true, nil
}

// SaveLastItem remembers the most recently opened item.
func (r *PreferencesRepository) SaveLastItem(itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyLastItem, itemID)
	return nil
}

// LoadLastItem returns the most recently opened item, or "".
func (r *PreferencesRepository) LoadLastItem() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(keyLastItem), nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyVolume)
	r.prefs.RemoveValue(keyLastItem)
	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
