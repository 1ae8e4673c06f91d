package httpapi

import (
	"time"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/timecode"
)

// Durations travel as float seconds plus an "m:ss" rendering for display.

type trackDTO struct {
	Index           int      `json:"index"`
	Disk            string   `json:"disk"`
	DiskTrack       int      `json:"disk_track"`
	Title           string   `json:"title"`
	Performer       string   `json:"performer,omitempty"`
	OffsetSeconds   float64  `json:"offset_seconds"`
	DurationSeconds *float64 `json:"duration_seconds"`
	DurationText    string   `json:"duration_text"`
	AudioURL        string   `json:"audio_url,omitempty"`
}

func newTrackDTO(t domain.Track) trackDTO {
	dto := trackDTO{
		Index:         t.GlobalIndex,
		Disk:          t.DiskNum,
		DiskTrack:     t.DiskTrackIndex,
		Title:         t.Title,
		Performer:     t.Performer,
		OffsetSeconds: t.Offset.Seconds(),
		AudioURL:      t.AudioURL,
	}
	if t.DurationKnown {
		secs := t.Duration.Seconds()
		dto.DurationSeconds = &secs
		dto.DurationText = timecode.Format(t.Duration)
	}
	return dto
}

type diskDTO struct {
	Disk       string `json:"disk"`
	Title      string `json:"title,omitempty"`
	Performer  string `json:"performer,omitempty"`
	AudioURL   string `json:"audio_url,omitempty"`
	StreamURL  string `json:"stream_url,omitempty"`
	FirstTrack int    `json:"first_track"`
	TrackCount int    `json:"track_count"`
}

type linkDTO struct {
	Text     string `json:"text"`
	LinkText string `json:"link_text,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
}

type catalogDTO struct {
	ItemID            string     `json:"item_id"`
	AlbumTitle        string     `json:"album_title"`
	AlbumPerformer    string     `json:"album_performer"`
	CoverURL          string     `json:"cover_url,omitempty"`
	PDFURL            string     `json:"pdf_url,omitempty"`
	AccessRestriction string     `json:"access_restriction,omitempty"`
	Rights            linkDTO    `json:"rights"`
	Disks             []diskDTO  `json:"disks"`
	Tracks            []trackDTO `json:"tracks"`
}

func newCatalogDTO(c *domain.Catalog) catalogDTO {
	rights := c.RightsStatement()
	dto := catalogDTO{
		ItemID:            c.ItemID,
		AlbumTitle:        c.AlbumTitle,
		AlbumPerformer:    c.AlbumPerformer,
		CoverURL:          c.CoverURL,
		PDFURL:            c.PDFURL,
		AccessRestriction: c.AccessRestriction,
		Rights:            linkDTO{Text: rights.Text, LinkText: rights.LinkText, LinkURL: rights.LinkURL},
		Disks:             []diskDTO{},
		Tracks:            []trackDTO{},
	}
	for _, d := range c.Disks() {
		dto.Disks = append(dto.Disks, diskDTO{
			Disk:       d.DiskNum,
			Title:      d.Title,
			Performer:  d.Performer,
			AudioURL:   d.AudioURL,
			StreamURL:  d.StreamURL,
			FirstTrack: d.FirstTrack,
			TrackCount: d.TrackCount,
		})
	}
	for _, t := range c.Tracks() {
		dto.Tracks = append(dto.Tracks, newTrackDTO(t))
	}
	return dto
}

type progressDTO struct {
	CurrentSeconds float64 `json:"current_seconds"`
	TotalSeconds   float64 `json:"total_seconds"`
	Fraction       float64 `json:"fraction"`
	Text           string  `json:"text"`
}

func newProgressDTO(p domain.Progress) progressDTO {
	return progressDTO{
		CurrentSeconds: p.Current.Seconds(),
		TotalSeconds:   p.Total.Seconds(),
		Fraction:       p.Fraction,
		Text:           timecode.Format(p.Current) + " / " + timecode.Format(p.Total),
	}
}

type sessionDTO struct {
	SessionID    string      `json:"session_id"`
	State        string      `json:"state"`
	CurrentIndex int         `json:"current_index"`
	IsPlaying    bool        `json:"is_playing"`
	Volume       float64     `json:"volume"`
	Track        *trackDTO   `json:"track"`
	Progress     progressDTO `json:"progress"`
	LastError    string      `json:"last_error,omitempty"`
}

func newSessionDTO(s domain.SessionSnapshot) sessionDTO {
	dto := sessionDTO{
		SessionID:    s.SessionID,
		State:        s.State.String(),
		CurrentIndex: s.CurrentIndex,
		IsPlaying:    s.IsPlaying,
		Volume:       s.Volume,
		Progress:     newProgressDTO(s.Progress),
		LastError:    s.LastError,
	}
	if s.HasTrack {
		t := newTrackDTO(s.Track)
		dto.Track = &t
	}
	return dto
}

type noticeDTO struct {
	Error  string  `json:"error"`
	Notice linkDTO `json:"notice"`
}

type errorDTO struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type seekRequest struct {
	Fraction *float64 `json:"fraction" validate:"required,gte=0,lte=1"`
}

type volumeRequest struct {
	Level *float64 `json:"level" validate:"required,gte=0,lte=1"`
}

// eventDTO is the data of one server-sent event.
type eventDTO struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// newEventDTO flattens a domain event. Events that carry a whole catalog are
// reduced to counts; clients fetch /api/catalog for the details.
func newEventDTO(event domain.Event) eventDTO {
	dto := eventDTO{Type: string(event.Type()), Timestamp: event.Timestamp()}

	switch e := event.(type) {
	case domain.CatalogLoadedEvent:
		dto.Data = map[string]any{"item_id": e.Catalog.ItemID, "tracks": e.Catalog.Len()}
	case domain.CatalogFailedEvent:
		dto.Data = map[string]any{"item_id": e.ItemID, "error": errString(e.Error)}
	case domain.TrackDurationResolvedEvent:
		dto.Data = newTrackDTO(e.Track)
	case domain.TrackLoadingEvent:
		dto.Data = newTrackDTO(e.Track)
	case domain.TrackStartedEvent:
		dto.Data = newTrackDTO(e.Track)
	case domain.TrackPausedEvent:
		dto.Data = map[string]any{"track": newTrackDTO(e.Track), "position_seconds": e.Position.Seconds()}
	case domain.TrackStoppedEvent:
		dto.Data = newTrackDTO(e.Track)
	case domain.TrackCompletedEvent:
		dto.Data = newTrackDTO(e.Track)
	case domain.TrackProgressEvent:
		dto.Data = map[string]any{"index": e.Index, "progress": newProgressDTO(e.Progress)}
	case domain.TrackErrorEvent:
		dto.Data = map[string]any{"track": newTrackDTO(e.Track), "error": errString(e.Error)}
	case domain.StateChangedEvent:
		dto.Data = map[string]any{"from": e.From.String(), "to": e.To.String(), "index": e.Index}
	case domain.VolumeChangedEvent:
		dto.Data = map[string]any{"volume": e.Volume}
	case domain.PlaylistUpdatedEvent:
		dto.Data = map[string]any{"tracks": len(e.Tracks), "current_index": e.CurrentIndex}
	case domain.PlaylistFinishedEvent:
		dto.Data = newTrackDTO(e.LastTrack)
	}
	return dto
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
