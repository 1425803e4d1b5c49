// ABOUTME: Reference-counted preview playback manager
// ABOUTME: Starts voices on a shared device and suspends it when nothing plays
package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/audio/encode"
	"github.com/op1kit/op1drum/pkg/audio/resample"
)

// DefaultPollInterval is how often a voice checks whether it finished
const DefaultPollInterval = 20 * time.Millisecond

// Manager owns the output device and the count of playing voices. The
// device is resumed when the first voice starts and suspended when the
// last one ends.
type Manager struct {
	dev          Device
	sampleRate   int
	pollInterval time.Duration

	mu        sync.Mutex
	opened    bool
	suspended bool
	active    int
	volume    int
	muted     bool
	voices    map[*Voice]struct{}
}

// NewManager creates a manager playing mono audio at sampleRate
func NewManager(dev Device, sampleRate int) *Manager {
	return &Manager{
		dev:          dev,
		sampleRate:   sampleRate,
		pollInterval: DefaultPollInterval,
		volume:       100,
		voices:       make(map[*Voice]struct{}),
	}
}

// SetPollInterval changes how often voices check for completion
func (m *Manager) SetPollInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollInterval = d
}

// Voice is one sample being played
type Voice struct {
	player Player
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Stop ends playback early
func (v *Voice) Stop() {
	v.once.Do(func() { close(v.stop) })
}

// Done is closed when the voice has finished and released the device
func (v *Voice) Done() <-chan struct{} {
	return v.done
}

// Wait blocks until the voice finishes
func (v *Voice) Wait() {
	<-v.done
}

// Play starts sample on the device. The voice ends when the sample has been
// played, Stop is called or ctx is cancelled.
func (m *Manager) Play(ctx context.Context, sample *audio.Sample) (*Voice, error) {
	if sample == nil || sample.Frames() == 0 {
		return nil, fmt.Errorf("nothing to play")
	}
	pcm := sample.Data
	if sample.Format.SampleRate != m.sampleRate {
		pcm = resample.New(sample.Format.SampleRate, m.sampleRate).Resample(pcm)
	}

	m.mu.Lock()
	if err := m.acquire(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	player := m.dev.NewPlayer(bytes.NewReader(encode.PCM16(pcm, binary.LittleEndian)))
	player.SetVolume(volumeMultiplier(m.volume, m.muted))
	v := &Voice{
		player: player,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.voices[v] = struct{}{}
	interval := m.pollInterval
	m.mu.Unlock()

	player.Play()
	go m.watch(ctx, v, interval)
	return v, nil
}

func (m *Manager) watch(ctx context.Context, v *Voice, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for v.player.IsPlaying() {
		select {
		case <-ctx.Done():
			m.finish(v)
			return
		case <-v.stop:
			m.finish(v)
			return
		case <-ticker.C:
		}
	}
	m.finish(v)
}

func (m *Manager) finish(v *Voice) {
	if err := v.player.Close(); err != nil {
		log.Printf("Failed to close player: %v", err)
	}

	m.mu.Lock()
	delete(m.voices, v)
	m.release()
	m.mu.Unlock()

	close(v.done)
}

// acquire opens or resumes the device for a new voice; m.mu must be held
func (m *Manager) acquire() error {
	if !m.opened {
		if err := m.dev.Open(m.sampleRate, 1); err != nil {
			return fmt.Errorf("failed to open output: %w", err)
		}
		m.opened = true
	}
	if m.active == 0 && m.suspended {
		if err := m.dev.Resume(); err != nil {
			return fmt.Errorf("failed to resume output: %w", err)
		}
		m.suspended = false
	}
	m.active++
	return nil
}

// release drops a voice and suspends the idle device; m.mu must be held
func (m *Manager) release() {
	m.active--
	if m.active > 0 {
		return
	}
	if err := m.dev.Suspend(); err != nil {
		log.Printf("Failed to suspend output: %v", err)
		return
	}
	m.suspended = true
}

// Active returns the number of playing voices
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Suspended reports whether the device is currently suspended
func (m *Manager) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// SetVolume sets the volume (0-100) for voices started afterwards
func (m *Manager) SetVolume(volume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = max(0, min(100, volume))
}

// SetMuted sets mute state for voices started afterwards
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

// StopAll stops every voice and waits for them to finish
func (m *Manager) StopAll() {
	m.mu.Lock()
	voices := make([]*Voice, 0, len(m.voices))
	for v := range m.voices {
		voices = append(voices, v)
	}
	m.mu.Unlock()

	for _, v := range voices {
		v.Stop()
		v.Wait()
	}
}

// Close stops all voices and releases the device
func (m *Manager) Close() error {
	m.StopAll()
	return m.dev.Close()
}

// volumeMultiplier maps a 0-100 volume to a player gain
func volumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
