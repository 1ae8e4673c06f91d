package manifest

import (
	"fmt"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/resolver"
	"github.com/tejashwikalptaru/archiveplayer/internal/timecode"
)

// Catalog builds the playable catalog of the manifest.
//
// Tracks are numbered across disks in disk-then-track order. Every track but
// the last of its disk gets its duration from the next track's offset; the
// last one stays unknown until the disk audio reports its length.
func (m *Manifest) Catalog(itemID string, res *resolver.Resolver) *domain.Catalog {
	info := domain.CatalogInfo{
		ItemID:            itemID,
		AccessRestriction: m.Use,
	}
	if len(m.Disks) > 0 {
		info.AlbumTitle = m.Disks[0].Cue.Title
		info.AlbumPerformer = m.Disks[0].Cue.Performer
	}
	if p, ok := m.CoverPath(); ok {
		info.CoverURL, _ = res.Resolve(p)
	}
	if p, ok := m.PDFPath(); ok {
		info.PDFURL, _ = res.Resolve(p)
	}

	disks := make([]domain.Disk, 0, len(m.Disks))
	var tracks []domain.Track

	for _, md := range m.Disks {
		diskNum := md.DiskNum()
		audioURL, _ := res.ResolveDisk(md.File, diskNum)
		streamURL, _ := res.ResolveDisk(md.Stream, diskNum)

		disk := domain.Disk{
			DiskNum:    diskNum,
			AudioURL:   audioURL,
			StreamURL:  streamURL,
			Title:      md.Cue.Title,
			Performer:  md.Cue.Performer,
			FirstTrack: len(tracks),
			TrackCount: len(md.Cue.Tracks),
		}

		diskTracks := make([]domain.Track, len(md.Cue.Tracks))
		for i, ct := range md.Cue.Tracks {
			t := domain.Track{
				DiskNum:        diskNum,
				DiskTrackIndex: i,
				GlobalIndex:    disk.FirstTrack + i,
				Title:          ct.Title,
				Performer:      ct.Performer,
				Offset:         timecode.ParseDuration(ct.Index),
				AudioURL:       audioURL,
			}
			if t.Title == "" {
				t.Title = fmt.Sprintf("Track %d", i+1)
			}
			if t.Performer == "" {
				t.Performer = md.Cue.Performer
			}
			diskTracks[i] = t
		}
		for i := 0; i < len(diskTracks)-1; i++ {
			diskTracks[i].Duration = max(0, diskTracks[i+1].Offset-diskTracks[i].Offset)
			diskTracks[i].DurationKnown = true
		}

		disks = append(disks, disk)
		tracks = append(tracks, diskTracks...)
	}

	return domain.NewCatalog(info, disks, tracks)
}
