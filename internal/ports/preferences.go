package ports

// PreferencesRepository persists desktop preferences between runs.
// Playback position is deliberately not part of it.
//
// Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveVolume persists the volume level (0.0 to 1.0).
	SaveVolume(volume float64) error

	// LoadVolume returns the saved volume and whether one was saved.
	LoadVolume() (float64, bool, error)

	// SaveLastItem remembers the most recently opened item id.
	SaveLastItem(itemID string) error

	// LoadLastItem returns the most recently opened item id, or "".
	LoadLastItem() (string, error)

	// Clear removes all saved preferences.
	Clear() error
}
