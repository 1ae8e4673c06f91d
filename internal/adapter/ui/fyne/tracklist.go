package fyne

import (
	"fmt"
	"strconv"
	"strings"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/timecode"
)

// tracklistRow is either a disk heading or a track line.
type tracklistRow struct {
	header bool
	disk   domain.Disk
	track  domain.Track
}

// buildRows lays out the catalog grouped by disk. With a query, only matching
// tracks are kept, and a disk heading appears only above surviving tracks.
// Headings are omitted altogether for single-disk items.
func buildRows(catalog *domain.Catalog, query string) []tracklistRow {
	if catalog == nil {
		return nil
	}
	query = strings.ToLower(strings.TrimSpace(query))
	disks := catalog.Disks()

	var rows []tracklistRow
	for _, disk := range disks {
		headed := len(disks) < 2
		for _, track := range catalog.DiskTracks(disk) {
			if !matchesSearch(track, query) {
				continue
			}
			if !headed {
				rows = append(rows, tracklistRow{header: true, disk: disk})
				headed = true
			}
			rows = append(rows, tracklistRow{disk: disk, track: track})
		}
	}
	return rows
}

// matchesSearch checks the track title and performer against a lowercase query.
func matchesSearch(track domain.Track, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(track.Title), query) ||
		strings.Contains(strings.ToLower(track.Performer), query)
}

func diskHeading(d domain.Disk) string {
	if d.Title != "" {
		return fmt.Sprintf("Disk %s: %s", d.DiskNum, d.Title)
	}
	return "Disk " + d.DiskNum
}

func durationText(t domain.Track) string {
	if !t.DurationKnown {
		return "--:--"
	}
	return timecode.Format(t.Duration)
}

// Tracklist shows a catalog's tracks grouped by disk, with a search filter.
// All methods must run on the Fyne thread.
type Tracklist struct {
	list        *widget.List
	searchEntry *widget.Entry
	content     fyneapp.CanvasObject

	catalog   *domain.Catalog
	rows      []tracklistRow
	durations map[int]string
	current   int

	onSelected func(index int)
}

// NewTracklist creates an empty tracklist. onSelected receives global track indices.
func NewTracklist(onSelected func(index int)) *Tracklist {
	t := &Tracklist{
		durations:  map[int]string{},
		current:    -1,
		onSelected: onSelected,
	}

	t.searchEntry = widget.NewEntry()
	t.searchEntry.SetPlaceHolder("Search tracks...")
	t.searchEntry.OnChanged = func(query string) {
		t.filter(query)
	}

	t.list = widget.NewList(
		func() int {
			return len(t.rows)
		},
		func() fyneapp.CanvasObject {
			return widgets.NewTrackRow(t.activate)
		},
		func(i widget.ListItemID, obj fyneapp.CanvasObject) {
			t.updateCell(i, obj)
		},
	)

	t.content = container.NewBorder(t.searchEntry, nil, nil, nil, t.list)
	return t
}

// Content returns the canvas object to place in a window.
func (t *Tracklist) Content() fyneapp.CanvasObject {
	return t.content
}

// SetCatalog replaces the listed catalog and clears the search.
func (t *Tracklist) SetCatalog(catalog *domain.Catalog) {
	t.catalog = catalog
	t.current = -1
	t.durations = map[int]string{}
	t.searchEntry.SetText("")
	t.filter("")
}

// SetDuration overrides one track's duration text.
func (t *Tracklist) SetDuration(index int, text string) {
	t.durations[index] = text
	if row := t.rowOf(index); row >= 0 {
		t.list.RefreshItem(row)
	}
}

// Highlight marks the current track and scrolls it into view.
func (t *Tracklist) Highlight(index int) {
	previous := t.current
	t.current = index
	if row := t.rowOf(previous); row >= 0 {
		t.list.RefreshItem(row)
	}
	if row := t.rowOf(index); row >= 0 {
		t.list.RefreshItem(row)
		t.list.ScrollTo(row)
	}
}

func (t *Tracklist) filter(query string) {
	t.rows = buildRows(t.catalog, query)
	t.list.Refresh()
}

func (t *Tracklist) updateCell(i widget.ListItemID, obj fyneapp.CanvasObject) {
	cell, ok := obj.(*widgets.TrackRow)
	if !ok || i < 0 || i >= len(t.rows) {
		return
	}

	row := t.rows[i]
	if row.header {
		cell.SetHeader(diskHeading(row.disk))
		return
	}

	track := row.track
	duration, ok := t.durations[track.GlobalIndex]
	if !ok {
		duration = durationText(track)
	}
	cell.SetTrack(track.GlobalIndex, strconv.Itoa(track.DiskTrackIndex+1)+".", track.Title, duration,
		track.GlobalIndex == t.current)
}

func (t *Tracklist) activate(index int) {
	if t.onSelected != nil {
		t.onSelected(index)
	}
}

// rowOf finds the visible row of a global track index, or -1.
func (t *Tracklist) rowOf(index int) int {
	if index < 0 {
		return -1
	}
	for i, row := range t.rows {
		if !row.header && row.track.GlobalIndex == index {
			return i
		}
	}
	return -1
}
