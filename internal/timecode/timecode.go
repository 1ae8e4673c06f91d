// Package timecode converts cue-sheet timecodes to playback offsets.
//
// Cue sheets address positions as minutes:seconds:frames, with 75 frames to
// the second (the CD-DA sector rate).
package timecode

import (
	"fmt"
	"strings"
	"time"
)

// FramesPerSecond is the number of cue-sheet frames in one second.
const FramesPerSecond = 75

// Parse converts an "mm:ss:ff" timecode into seconds.
//
// Leading and trailing whitespace is ignored. A label before the timecode
// ("01 00:02:15") is dropped when its separating space comes before the first
// colon. Missing or non-numeric fields count as zero, so Parse never fails:
// "" and "bad:format" both yield 0.
func Parse(tc string) float64 {
	cleaned := strings.TrimSpace(tc)
	if cleaned == "" {
		return 0
	}

	if space := strings.Index(cleaned, " "); space >= 0 && space < strings.Index(cleaned, ":") {
		cleaned = cleaned[space+1:]
	}

	parts := strings.Split(cleaned, ":")
	field := func(i int) float64 {
		if i >= len(parts) {
			return 0
		}
		return float64(leadingInt(parts[i]))
	}

	return field(0)*60 + field(1) + field(2)/FramesPerSecond
}

// ParseDuration is Parse expressed as a time.Duration.
func ParseDuration(tc string) time.Duration {
	return time.Duration(Parse(tc) * float64(time.Second))
}

// Format renders a duration as m:ss, the way track lengths and progress are shown.
// Negative durations render as 0:00.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// leadingInt reads an optionally signed run of decimal digits at the start of
// s, after leading whitespace. Anything else yields 0.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\r\n")
	sign := 1
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return sign * n
}
