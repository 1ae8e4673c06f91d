package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
	"github.com/tejashwikalptaru/archiveplayer/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	loads  int
	plays  []int
	ends   []int
	errors []error
}

func (r *recorder) handlers() ports.SoundHandlers {
	return ports.SoundHandlers{
		OnLoad:  func() { r.mu.Lock(); r.loads++; r.mu.Unlock() },
		OnPlay:  func(id int) { r.mu.Lock(); r.plays = append(r.plays, id); r.mu.Unlock() },
		OnEnd:   func(id int) { r.mu.Lock(); r.ends = append(r.ends, id); r.mu.Unlock() },
		OnError: func(err error) { r.mu.Lock(); r.errors = append(r.errors, err); r.mu.Unlock() },
	}
}

func (r *recorder) snapshot() (loads int, plays, ends []int, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads, append([]int(nil), r.plays...), append([]int(nil), r.ends...), append([]error(nil), r.errors...)
}

func load(t *testing.T, e *Engine, r *recorder) *Sound {
	t.Helper()
	snd, err := e.Load(context.Background(), "https://host/disk1.mp3", r.handlers())
	require.NoError(t, err)
	return snd.(*Sound)
}

var sprite = domain.Sprite{Start: 30 * time.Second, Length: 10 * time.Second}

func TestLoadFiresOnLoad(t *testing.T) {
	e := NewEngine()
	r := &recorder{}

	snd := load(t, e, r)

	loads, _, _, _ := r.snapshot()
	assert.Equal(t, 1, loads)
	assert.Equal(t, "https://host/disk1.mp3", snd.Source())
	assert.Equal(t, 1, e.LoadCount())
	assert.Equal(t, 1, e.ActiveSounds())
	assert.Same(t, snd, e.Last())
}

func TestManualLoad(t *testing.T) {
	e := NewEngine()
	e.SetManualLoad(true)
	r := &recorder{}

	snd := load(t, e, r)
	_, err := snd.Play(sprite)
	assert.ErrorIs(t, err, domain.ErrNotLoaded)

	snd.CompleteLoad()
	snd.CompleteLoad()
	loads, _, _, _ := r.snapshot()
	assert.Equal(t, 1, loads, "OnLoad fires once")
}

func TestLoadErrors(t *testing.T) {
	e := NewEngine()
	e.SetFailLoad(errors.New("no route"))
	_, err := e.Load(context.Background(), "x", ports.SoundHandlers{})
	var aerr *domain.AudioEngineError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "load", aerr.Op)

	e.SetFailLoad(nil)
	e.SetLoadError(errors.New("corrupt"))
	r := &recorder{}
	load(t, e, r)

	loads, _, _, errs := r.snapshot()
	assert.Equal(t, 0, loads)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "corrupt")
}

func TestPlayPauseResume(t *testing.T) {
	e := NewEngine()
	r := &recorder{}
	snd := load(t, e, r)

	id, err := snd.Play(sprite)
	require.NoError(t, err)
	assert.True(t, snd.Playing())
	assert.Equal(t, []domain.Sprite{sprite}, snd.Plays())

	snd.Advance(4 * time.Second)
	require.NoError(t, snd.Pause())
	assert.False(t, snd.Playing())
	snd.Advance(time.Second)
	assert.Equal(t, 4*time.Second, snd.Position(), "paused sounds do not advance")

	require.NoError(t, snd.Resume())
	assert.True(t, snd.Playing())

	_, plays, _, _ := r.snapshot()
	assert.Equal(t, []int{id, id}, plays, "resume reports the same play id")
}

func TestAdvancePastEndFiresOnEnd(t *testing.T) {
	e := NewEngine()
	r := &recorder{}
	snd := load(t, e, r)

	id, err := snd.Play(sprite)
	require.NoError(t, err)
	snd.Advance(11 * time.Second)

	_, _, ends, _ := r.snapshot()
	assert.Equal(t, []int{id}, ends)
	assert.False(t, snd.Playing())
}

func TestStopDoesNotFireOnEnd(t *testing.T) {
	e := NewEngine()
	r := &recorder{}
	snd := load(t, e, r)

	_, err := snd.Play(sprite)
	require.NoError(t, err)
	require.NoError(t, snd.Stop())

	_, _, ends, _ := r.snapshot()
	assert.Empty(t, ends)
	assert.Equal(t, time.Duration(0), snd.Position())
}

func TestSeekClampsToSprite(t *testing.T) {
	e := NewEngine()
	snd := load(t, e, &recorder{})
	_, err := snd.Play(sprite)
	require.NoError(t, err)

	require.NoError(t, snd.Seek(7*time.Second))
	assert.Equal(t, 7*time.Second, snd.Position())

	require.NoError(t, snd.Seek(time.Hour))
	assert.Equal(t, sprite.Length, snd.Position())

	require.NoError(t, snd.Seek(-time.Second))
	assert.Equal(t, time.Duration(0), snd.Position())
}

func TestVolume(t *testing.T) {
	e := NewEngine()
	snd := load(t, e, &recorder{})

	require.NoError(t, snd.SetVolume(0.25))
	assert.InDelta(t, 0.25, snd.Volume(), 1e-9)
	assert.ErrorIs(t, snd.SetVolume(1.5), domain.ErrInvalidVolume)
	assert.ErrorIs(t, snd.SetVolume(-0.1), domain.ErrInvalidVolume)
}

func TestUnload(t *testing.T) {
	e := NewEngine()
	snd := load(t, e, &recorder{})

	require.NoError(t, snd.Unload())
	assert.True(t, snd.Unloaded())
	assert.Equal(t, 0, e.ActiveSounds())

	assert.ErrorIs(t, snd.Unload(), domain.ErrInvalidHandle)
	_, err := snd.Play(sprite)
	assert.ErrorIs(t, err, domain.ErrInvalidHandle)
}

func TestFailPlay(t *testing.T) {
	e := NewEngine()
	snd := load(t, e, &recorder{})
	e.SetFailPlay(errors.New("device busy"))

	_, err := snd.Play(sprite)
	assert.ErrorContains(t, err, "device busy")
	assert.False(t, snd.Playing())
}

func TestRealtimeSpriteEndsByItself(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	e := NewEngine()
	e.SetRealtime(true)
	r := &recorder{}
	snd := load(t, e, r)

	id, err := snd.Play(domain.Sprite{Start: time.Minute, Length: 30 * time.Millisecond})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, _, ends, _ := r.snapshot()
		return len(ends) == 1 && ends[0] == id
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Shutdown())
}

func TestRealtimePauseHoldsPosition(t *testing.T) {
	e := NewEngine()
	e.SetRealtime(true)
	r := &recorder{}
	snd := load(t, e, r)

	_, err := snd.Play(domain.Sprite{Length: time.Hour})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, snd.Pause())

	held := snd.Position()
	assert.Greater(t, held, time.Duration(0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, held, snd.Position())

	require.NoError(t, e.Shutdown())
	_, _, ends, _ := r.snapshot()
	assert.Empty(t, ends)
}

func TestShutdownUnloadsAll(t *testing.T) {
	e := NewEngine()
	load(t, e, &recorder{})
	load(t, e, &recorder{})
	require.Equal(t, 2, e.ActiveSounds())

	require.NoError(t, e.Shutdown())
	assert.Equal(t, 0, e.ActiveSounds())

	_, err := e.Load(context.Background(), "x", ports.SoundHandlers{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}
