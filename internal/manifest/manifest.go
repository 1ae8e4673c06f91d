// Package manifest decodes an item's metadata.json.
//
// The manifest is produced by the digitisation pipeline. Its "scans" object is
// keyed by scan id, and the order of those keys matters for cover and PDF
// selection, so Scans decodes into an ordered slice instead of a map.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// FileName is the manifest's name under the item root.
const FileName = "metadata.json"

// Manifest is the decoded metadata.json document.
type Manifest struct {
	Use   string `json:"use"`
	Scans Scans  `json:"scans"`
	Disks []Disk `json:"disks"`
}

// Scan is one rendition of the item's printed material.
type Scan struct {
	ID    string   `json:"-"`
	Files []string `json:"files"`
	Width Number   `json:"width"`
}

// HasFiles reports whether the scan lists at least one file.
func (s Scan) HasFiles() bool {
	return len(s.Files) > 0
}

// Scans keeps scan entries in document order.
type Scans []Scan

// UnmarshalJSON decodes a JSON object into scans, preserving key order.
// A null entry becomes a scan without files.
func (s *Scans) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("scans: expected object, got %v", tok)
	}

	var scans Scans
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("scans[%q]: %w", key, err)
		}

		scan := Scan{}
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &scan); err != nil {
				return fmt.Errorf("scans[%q]: %w", key, err)
			}
		}
		scan.ID = key
		scans = append(scans, scan)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = scans
	return nil
}

// Disk is one manifest disk entry.
type Disk struct {
	Disk   Identifier `json:"disk"`
	File   string     `json:"file"`
	Stream string     `json:"stream"`
	Cue    Cue        `json:"cue"`
}

// DiskNum returns the disk identifier, defaulting to "1".
func (d Disk) DiskNum() string {
	if d.Disk == "" {
		return domain.DefaultDiskNum
	}
	return string(d.Disk)
}

// Cue is the embedded cue sheet of a disk.
type Cue struct {
	Title     string     `json:"TITLE"`
	Performer string     `json:"PERFORMER"`
	Tracks    []CueTrack `json:"tracks"`
}

// CueTrack is one track of a cue sheet. Index is an mm:ss:ff timecode.
type CueTrack struct {
	Title     string `json:"TITLE"`
	Performer string `json:"PERFORMER"`
	Index     string `json:"INDEX"`
}

// Identifier accepts a JSON string or number. Zero and null decode as empty.
type Identifier string

// UnmarshalJSON implements json.Unmarshaler.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Identifier(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("disk identifier: %w", err)
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		*id = ""
		return nil
	}
	*id = Identifier(n.String())
	return nil
}

// Number is an optional numeric field that may also arrive as a numeric string.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	if isNull(data) {
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		// Non-numeric widths do not take part in cover selection.
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Parse decodes manifest bytes. Any failure is a *domain.ParseError naming source.
func Parse(source string, data []byte) (*Manifest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, domain.NewParseError(source, errors.New("manifest root is not a JSON object"))
	}

	var m Manifest
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, domain.NewParseError(source, err)
	}
	return &m, nil
}

// CoverPath returns the item-relative path of the cover image.
//
// Scan "30" is the standard 1000px rendition and wins when it has files.
// Otherwise the widest scan with files and a width is used, the first one on
// ties, and failing that the first scan with any files.
func (m *Manifest) CoverPath() (string, bool) {
	for _, s := range m.Scans {
		if s.ID == "30" && s.HasFiles() {
			return scanPath(s, s.Files[0]), true
		}
	}

	var best *Scan
	for i := range m.Scans {
		s := &m.Scans[i]
		if !s.HasFiles() || !s.Width.Valid || s.Width.Value == 0 {
			continue
		}
		if best == nil || s.Width.Value > best.Width.Value {
			best = s
		}
	}
	if best != nil {
		return scanPath(*best, best.Files[0]), true
	}

	for _, s := range m.Scans {
		if s.HasFiles() {
			return scanPath(s, s.Files[0]), true
		}
	}
	return "", false
}

// PDFPath returns the item-relative path of the first PDF across all scans.
func (m *Manifest) PDFPath() (string, bool) {
	for _, s := range m.Scans {
		for _, f := range s.Files {
			if strings.HasSuffix(strings.ToLower(f), ".pdf") {
				return scanPath(s, f), true
			}
		}
	}
	return "", false
}

func scanPath(s Scan, file string) string {
	return "scans/" + s.ID + "/" + file
}

func isNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
