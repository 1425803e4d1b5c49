// ABOUTME: TUI initialization and editor commands
// ABOUTME: Wraps the bubbletea program and runs loads, previews and exports off the UI loop
package ui

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/audio/output"
	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

// Previewer plays decoded slots. *output.Manager implements it.
type Previewer interface {
	Play(ctx context.Context, sample *audio.Sample) (*output.Voice, error)
	StopAll()
	SetVolume(volume int)
	SetMuted(muted bool)
}

// Env holds what the editor talks to. Player may be nil when no audio
// device is available.
type Env struct {
	Bridge *bridge.Bridge
	Player Previewer

	// ReadFile defaults to os.ReadFile
	ReadFile func(string) ([]byte, error)
	// WriteFile defaults to os.WriteFile
	WriteFile func(string, []byte, os.FileMode) error
}

type loadedMsg struct {
	token    int
	path     string
	data     []byte
	sample   *audio.Sample
	waveform []float32
	err      error
}

type exportedMsg struct {
	path string
	size int
	err  error
}

type statusMsg string

// NewModel creates an editor with paths queued for loading into the first
// slots. Paths beyond the last slot are ignored.
func NewModel(env *Env, paths []string, kit bridge.KitOptions, outputPath string) Model {
	if env == nil {
		env = &Env{}
	}
	m := Model{
		env:    env,
		kit:    kit,
		output: outputPath,
		volume: 100,
		status: "Ready",
	}
	if m.kit.FX == "" {
		m.kit.FX = op1.FXTypes[0]
	}
	if m.kit.LFO == "" {
		m.kit.LFO = "element"
	}
	m.fxIndex = indexOf(op1.FXTypes, m.kit.FX)
	m.lfoIndex = indexOf(op1.LFOTypes, m.kit.LFO)

	for i, p := range paths {
		if i >= op1.Slots {
			log.Printf("Ignoring %s: all %d slots are used", p, op1.Slots)
			continue
		}
		m.slots[i] = m.newSlot(p)
	}
	return m
}

// Run creates the editor program
func Run(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// loadCmd reads and decodes a file through the bridge
func (e *Env) loadCmd(token int, path string) tea.Cmd {
	return func() tea.Msg {
		msg := loadedMsg{token: token, path: path}
		read := e.ReadFile
		if read == nil {
			read = os.ReadFile
		}

		data, err := read(path)
		if err != nil {
			msg.err = err
			return msg
		}
		sample, err := e.decode(data)
		if err != nil {
			log.Printf("Failed to decode %s: %v", path, err)
			msg.err = err
			return msg
		}

		msg.data = data
		msg.sample = sample
		msg.waveform = audio.Waveform(sample.Data, sparkWidth)
		return msg
	}
}

// decode runs one file through the bridge and copies the PCM out
func (e *Env) decode(data []byte) (*audio.Sample, error) {
	if e.Bridge == nil {
		return nil, fmt.Errorf("no bridge")
	}
	h, err := e.Bridge.Decode(data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := e.Bridge.Release(h); err != nil {
			log.Printf("Failed to release sample: %v", err)
		}
	}()

	rate, err := e.Bridge.SampleRate(h)
	if err != nil {
		return nil, err
	}
	pcm, err := e.Bridge.SamplePCM(h)
	if err != nil {
		return nil, err
	}
	return &audio.Sample{
		Format:         audio.Format{SampleRate: rate, Channels: 1, BitDepth: 16},
		SourceChannels: 1,
		Data:           pcm,
	}, nil
}

// exportCmd exports files and writes the kit to path
func (e *Env) exportCmd(files []bridge.File, kit bridge.KitOptions, path string) tea.Cmd {
	return func() tea.Msg {
		if e.Bridge == nil {
			return exportedMsg{path: path, err: fmt.Errorf("no bridge")}
		}
		out, err := e.Bridge.Export(files, kit)
		if err != nil {
			log.Printf("Export failed: %v", err)
			return exportedMsg{path: path, err: err}
		}

		write := e.WriteFile
		if write == nil {
			write = os.WriteFile
		}
		if err := write(path, out, 0o644); err != nil {
			return exportedMsg{path: path, err: err}
		}
		log.Printf("Wrote %s (%d samples, %d bytes)", path, len(files), len(out))
		return exportedMsg{path: path, size: len(out)}
	}
}

// playCmd starts a preview; the voice finishes on its own
func (e *Env) playCmd(sample *audio.Sample) tea.Cmd {
	if e.Player == nil {
		return func() tea.Msg { return statusMsg("No audio output") }
	}
	return func() tea.Msg {
		if _, err := e.Player.Play(context.Background(), sample); err != nil {
			log.Printf("Preview failed: %v", err)
			return statusMsg(fmt.Sprintf("Preview failed: %v", err))
		}
		return nil
	}
}

func (e *Env) stopAll() {
	if e.Player != nil {
		e.Player.StopAll()
	}
}

func (e *Env) setVolume(volume int, muted bool) {
	if e.Player != nil {
		e.Player.SetVolume(volume)
		e.Player.SetMuted(muted)
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}
