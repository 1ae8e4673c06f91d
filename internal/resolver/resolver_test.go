package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := NewFromRoot("https://host/audio/ID")

	tests := []struct {
		name    string
		path    string
		disk    string
		want    string
		present bool
	}{
		{"disk file", "a.mp3", "2", "https://host/audio/ID/disks/disk 2/a.mp3", true},
		{"item file", "metadata.json", "", "https://host/audio/ID/metadata.json", true},
		{"leading slash", "/scans/30/c.jpg", "", "https://host/audio/ID/scans/30/c.jpg", true},
		{"absolute passes through", "https://cdn.example.org/x.mp3", "1", "https://cdn.example.org/x.mp3", true},
		{"scheme is case-insensitive", "HTTP://cdn.example.org/x.mp3", "", "HTTP://cdn.example.org/x.mp3", true},
		{"empty path", "", "1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var ok bool
			if tt.disk != "" {
				got, ok = r.ResolveDisk(tt.path, tt.disk)
			} else {
				got, ok = r.Resolve(tt.path)
			}
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSingleSeparator(t *testing.T) {
	r := NewFromRoot("https://host/audio/ID/")

	got, ok := r.Resolve("/metadata.json")
	assert.True(t, ok)
	assert.Equal(t, "https://host/audio/ID/metadata.json", got)
}

func TestNewConcatenatesBaseAndItem(t *testing.T) {
	r := New("https://bucket.example.org/audio/", "126418962")
	assert.Equal(t, "https://bucket.example.org/audio/126418962", r.Root())

	got, _ := r.ResolveDisk("disk1.mp3", "1")
	assert.Equal(t, "https://bucket.example.org/audio/126418962/disks/disk 1/disk1.mp3", got)
}

func TestResolveFtpIsNotAbsolute(t *testing.T) {
	r := NewFromRoot("https://host/ID")
	got, _ := r.Resolve("ftp://elsewhere/x")
	assert.Equal(t, "https://host/ID/ftp://elsewhere/x", got)
}
