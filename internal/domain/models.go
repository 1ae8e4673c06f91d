// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the archive player: the catalog
// of disks and tracks resolved from an item manifest, and the playback session state.
package domain

import (
	"sync"
	"time"
)

// DefaultSpriteSpan is the play length used for a track whose duration is still unknown.
const DefaultSpriteSpan = 300 * time.Second

// DefaultDiskNum is the identifier given to a disk that carries no identifier of its own.
const DefaultDiskNum = "1"

// Track is a single logical track within a disk's audio file.
type Track struct {
	// DiskNum is the identifier of the disk the track belongs to
	DiskNum string

	// DiskTrackIndex is the 0-based position of the track on its disk
	DiskTrackIndex int

	// GlobalIndex is the 0-based position of the track across all disks
	GlobalIndex int

	// Title is the cue title, or "Track <n>" when the cue has none
	Title string

	// Performer is the cue performer, falling back to the disk performer
	Performer string

	// Offset is where the track starts within the disk audio
	Offset time.Duration

	// Duration is the track length; only meaningful when DurationKnown is set
	Duration time.Duration

	// DurationKnown is false for the last track of a disk until the disk audio
	// reports its total length
	DurationKnown bool

	// AudioURL is the absolute URL of the disk audio (empty when unresolvable)
	AudioURL string
}

// Sprite returns the time range of the disk audio that plays this track.
// Tracks without a known duration play for fallback.
func (t Track) Sprite(fallback time.Duration) Sprite {
	length := fallback
	if t.DurationKnown {
		length = t.Duration
	}
	return Sprite{Start: t.Offset, Length: length}
}

// Sprite is a sub-range of an audio resource.
type Sprite struct {
	Start  time.Duration
	Length time.Duration
}

// End returns the file-absolute end of the range.
func (s Sprite) End() time.Duration {
	return s.Start + s.Length
}

// Disk describes one physical disk of the item: one audio file plus its cue sheet.
type Disk struct {
	DiskNum   string
	AudioURL  string
	StreamURL string
	Title     string
	Performer string

	// FirstTrack is the global index of the disk's first track
	FirstTrack int

	// TrackCount is the number of tracks on the disk
	TrackCount int
}

// LastTrack returns the global index of the disk's final track, or -1 for an empty disk.
func (d Disk) LastTrack() int {
	if d.TrackCount == 0 {
		return -1
	}
	return d.FirstTrack + d.TrackCount - 1
}

// AccessOnsiteOnly is the manifest "use" value for items that may only be heard on site.
const AccessOnsiteOnly = "access is onsite only"

// RightsStatement is the copyright line shown next to the player.
type RightsStatement struct {
	Text     string
	LinkText string
	LinkURL  string
}

// AccessNotice is shown instead of the player when the asset store cannot be reached.
type AccessNotice struct {
	Message  string
	LinkText string
	LinkURL  string
}

// DefaultAccessNotice is the visit-in-person notice used when metadata cannot be loaded.
var DefaultAccessNotice = AccessNotice{
	Message: "A recording of this item has been digitised by the National Library of Scotland. " +
		"You can listen to the audio in the National Library of Scotland Reading Rooms in Edinburgh or Glasgow.",
	LinkText: "National Library of Scotland Reading Rooms",
	LinkURL:  "https://www.nls.uk/visit/",
}

// CatalogInfo holds the item-level facts of a catalog.
type CatalogInfo struct {
	ItemID            string
	AlbumTitle        string
	AlbumPerformer    string
	CoverURL          string
	PDFURL            string
	AccessRestriction string
}

// Catalog is the resolved, in-memory representation of one item's manifest.
// Everything but the last-track durations is fixed at construction; those are
// written once through ResolveDuration and read under the same lock.
type Catalog struct {
	CatalogInfo

	disks []Disk

	mu     sync.RWMutex
	tracks []Track
}

// NewCatalog creates a catalog from already-built disks and tracks.
func NewCatalog(info CatalogInfo, disks []Disk, tracks []Track) *Catalog {
	return &Catalog{
		CatalogInfo: info,
		disks:       append([]Disk(nil), disks...),
		tracks:      append([]Track(nil), tracks...),
	}
}

// Len returns the number of tracks across all disks.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}

// Track returns a copy of the track at a global index.
func (c *Catalog) Track(index int) (Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.tracks) {
		return Track{}, false
	}
	return c.tracks[index], true
}

// Tracks returns a copy of all tracks in global order.
func (c *Catalog) Tracks() []Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Track(nil), c.tracks...)
}

// Disks returns a copy of the disks in manifest order.
func (c *Catalog) Disks() []Disk {
	return append([]Disk(nil), c.disks...)
}

// DiskTracks returns the tracks of one disk.
func (c *Catalog) DiskTracks(d Disk) []Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d.TrackCount == 0 || d.FirstTrack < 0 || d.FirstTrack+d.TrackCount > len(c.tracks) {
		return nil
	}
	return append([]Track(nil), c.tracks[d.FirstTrack:d.FirstTrack+d.TrackCount]...)
}

// ResolveDuration sets the duration of a disk's last track from the total length
// of the disk audio. It reports false, leaving the catalog unchanged, when the
// index is not the last track of a disk.
func (c *Catalog) ResolveDuration(index int, total time.Duration) (Track, bool) {
	if !c.isLastOfDisk(index) {
		return Track{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := &c.tracks[index]
	t.Duration = max(0, total-t.Offset)
	t.DurationKnown = true
	return *t, true
}

func (c *Catalog) isLastOfDisk(index int) bool {
	for _, d := range c.disks {
		if d.LastTrack() == index {
			return true
		}
	}
	return false
}

// HasPDF reports whether the item has accompanying liner notes.
func (c *Catalog) HasPDF() bool {
	return c.PDFURL != ""
}

// RightsStatement returns the copyright statement for the item's access restriction.
func (c *Catalog) RightsStatement() RightsStatement {
	if c.AccessRestriction == AccessOnsiteOnly {
		return RightsStatement{
			Text: "This work is protected by copyright. You may only use this work as permitted by copyright legislation " +
				"or by the terms of a licence from the copyright owner(s).",
			LinkText: "our copyright page",
			LinkURL:  "https://www.nls.uk/tools-for-research/copyright/#statements-and-licences",
		}
	}
	return RightsStatement{Text: "global access placeholder"}
}

// PlayerState is the lifecycle state of a playback session.
type PlayerState int

const (
	// StateIdle means no sound is active
	StateIdle PlayerState = iota

	// StateLoading means the disk audio is being acquired
	StateLoading

	// StatePlaying means a sprite is audible
	StatePlaying

	// StatePaused means a sprite is paused and can be resumed
	StatePaused

	// StateStopped means the last track of the playlist finished
	StateStopped
)

// String returns a human-readable representation of the state.
func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Progress is a playback position within the current sprite.
type Progress struct {
	Current  time.Duration
	Total    time.Duration
	Fraction float64
}

// NewProgress computes the fraction for a position, clamped to [0, 1].
func NewProgress(current, total time.Duration) Progress {
	p := Progress{Current: max(0, current), Total: total}
	if total > 0 {
		p.Fraction = min(1, float64(p.Current)/float64(total))
	}
	return p
}

// SessionSnapshot is an immutable view of a playback session.
type SessionSnapshot struct {
	SessionID    string
	State        PlayerState
	CurrentIndex int
	IsPlaying    bool
	Volume       float64
	HasTrack     bool
	Track        Track
	Progress     Progress
	LastError    string
}
