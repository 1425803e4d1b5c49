// ABOUTME: Bubbletea model for the slot editor TUI
// ABOUTME: Defines editor state, key handling and rendering
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

// sparkWidth is the number of waveform columns drawn per slot
const sparkWidth = 16

// slot is a loaded drum key
type slot struct {
	token    int
	path     string
	data     []byte
	sample   *audio.Sample
	waveform []float32
	err      string
	loading  bool
}

func (s *slot) name() string {
	return filepath.Base(s.path)
}

// Model represents the editor state
type Model struct {
	env *Env

	// Slots
	slots     [op1.Slots]*slot
	cursor    int
	nextToken int

	// Kit
	kit      bridge.KitOptions
	fxIndex  int
	lfoIndex int
	output   string

	// Path entry
	adding bool
	input  string

	// Playback
	volume int
	muted  bool

	// Status
	status    string
	exporting bool
	exports   int

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// Init loads the slots given on the command line
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, s := range m.slots {
		if s != nil && s.loading {
			cmds = append(cmds, m.env.loadCmd(s.token, s.path))
		}
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.adding {
			return m.handleInput(msg)
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case loadedMsg:
		m.applyLoaded(msg)
	case exportedMsg:
		m.applyExported(msg)
	case statusMsg:
		m.status = string(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderSlots())
	b.WriteString(m.renderKit())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders the title and status line
func (m Model) renderHeader() string {
	status := m.status
	if m.adding {
		status = "Path: " + m.input + "_"
	}
	return fmt.Sprintf(`┌─ OP-1 Drum Editor ───────────────────────────────────┐
│ %-52s │
├──────────────────────────────────────────────────────┤
`, truncate(status, 52))
}

// renderSlots renders one row per drum key
func (m Model) renderSlots() string {
	var b strings.Builder
	for i, s := range m.slots {
		marker := " "
		if i == m.cursor {
			marker = "▶"
		}

		var row string
		switch {
		case s == nil:
			row = "-"
		case s.loading:
			row = fmt.Sprintf("%-20s loading...", truncate(s.name(), 20))
		case s.err != "":
			row = fmt.Sprintf("%-20s ✗ %s", truncate(s.name(), 20), s.err)
		default:
			row = fmt.Sprintf("%-20s %5.2fs %s", truncate(s.name(), 20), s.sample.Duration(), sparkline(s.waveform))
		}
		b.WriteString(fmt.Sprintf("│%s%02d %-48s │\n", marker, i+1, truncate(row, 48)))
	}
	return b.String()
}

// renderKit renders the kit options and output path
func (m Model) renderKit() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ FX:  %-8s %-3s  LFO: %-8s %-3s  Normalize: %-3s   │
│ Volume: [%s] %3d%%%-20s │
│ Output: %-44s │
`, m.kit.FX, onOff(m.kit.FXActive), m.kit.LFO, onOff(m.kit.LFOActive), onOff(m.kit.Normalize),
		renderBar(m.volume, 100, 10), m.volume, muteIcon, truncate(m.output, 44))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ ↑/↓:Select a:Add x:Clear J/K:Move space:Play s:Stop  │
│ f/F:FX l/L:LFO n:Normalize +/-:Vol m:Mute e:Export   │
│ d:Debug q:Quit                                       │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders bridge state
func (m Model) renderDebug() string {
	samples, banks := 0, 0
	if m.env != nil && m.env.Bridge != nil {
		samples, banks = m.env.Bridge.LiveSamples(), m.env.Bridge.LiveBanks()
	}
	return fmt.Sprintf(`│ DEBUG: live samples %-4d live banks %-4d exports %-4d │
`, samples, banks, m.exports)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.env.stopAll()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < op1.Slots-1 {
			m.cursor++
		}
	case "K":
		if m.cursor > 0 {
			m.slots[m.cursor], m.slots[m.cursor-1] = m.slots[m.cursor-1], m.slots[m.cursor]
			m.cursor--
		}
	case "J":
		if m.cursor < op1.Slots-1 {
			m.slots[m.cursor], m.slots[m.cursor+1] = m.slots[m.cursor+1], m.slots[m.cursor]
			m.cursor++
		}
	case "a":
		m.adding = true
		m.input = ""
	case "x", "delete", "backspace":
		m.slots[m.cursor] = nil
	case " ", "p":
		if s := m.slots[m.cursor]; s != nil && s.sample != nil {
			return m, m.env.playCmd(s.sample)
		}
	case "s":
		m.env.stopAll()
	case "f":
		m.fxIndex = (m.fxIndex + 1) % len(op1.FXTypes)
		m.kit.FX = op1.FXTypes[m.fxIndex]
	case "F":
		m.kit.FXActive = !m.kit.FXActive
	case "l":
		m.lfoIndex = (m.lfoIndex + 1) % len(op1.LFOTypes)
		m.kit.LFO = op1.LFOTypes[m.lfoIndex]
	case "L":
		m.kit.LFOActive = !m.kit.LFOActive
	case "n":
		m.kit.Normalize = !m.kit.Normalize
	case "+", "=":
		m.volume = clamp(m.volume+5, 0, 100)
		m.env.setVolume(m.volume, m.muted)
	case "-":
		m.volume = clamp(m.volume-5, 0, 100)
		m.env.setVolume(m.volume, m.muted)
	case "m":
		m.muted = !m.muted
		m.env.setVolume(m.volume, m.muted)
	case "e":
		if m.exporting {
			return m, nil
		}
		files := m.files()
		if len(files) == 0 {
			m.status = "Nothing to export"
			return m, nil
		}
		m.exporting = true
		m.status = fmt.Sprintf("Exporting %d samples...", len(files))
		return m, m.env.exportCmd(files, m.kit, m.output)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// handleInput edits the path being added to the selected slot
func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.adding = false
		m.input = ""
	case tea.KeyEnter:
		m.adding = false
		path := strings.TrimSpace(m.input)
		m.input = ""
		if path == "" {
			return m, nil
		}
		s := m.newSlot(path)
		m.slots[m.cursor] = s
		return m, m.env.loadCmd(s.token, path)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// newSlot returns a slot waiting for path to load
func (m *Model) newSlot(path string) *slot {
	m.nextToken++
	return &slot{token: m.nextToken, path: path, loading: true}
}

// applyLoaded stores a finished load wherever its slot moved to. Loads for
// slots that were cleared or replaced are dropped.
func (m *Model) applyLoaded(msg loadedMsg) {
	for i, s := range m.slots {
		if s == nil || s.token != msg.token || !s.loading {
			continue
		}
		loaded := &slot{token: s.token, path: s.path, data: msg.data, sample: msg.sample, waveform: msg.waveform}
		if msg.err != nil {
			loaded.err = msg.err.Error()
			m.status = fmt.Sprintf("Failed to load %s", loaded.name())
		} else {
			m.status = fmt.Sprintf("Loaded %s into slot %d", loaded.name(), i+1)
		}
		m.slots[i] = loaded
		return
	}
}

func (m *Model) applyExported(msg exportedMsg) {
	m.exporting = false
	if msg.err != nil {
		m.status = fmt.Sprintf("Export failed: %v", msg.err)
		return
	}
	m.exports++
	m.status = fmt.Sprintf("Wrote %s (%d bytes)", msg.path, msg.size)
}

// files returns the loaded slots in slot order
func (m Model) files() []bridge.File {
	var files []bridge.File
	for _, s := range m.slots {
		if s != nil && s.data != nil && s.err == "" {
			files = append(files, bridge.File{Name: s.name(), Data: s.data})
		}
	}
	return files
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func sparkline(waveform []float32) string {
	var b strings.Builder
	for _, v := range waveform {
		i := int(v * float32(len(sparkRunes)-1))
		b.WriteRune(sparkRunes[clamp(i, 0, len(sparkRunes)-1)])
	}
	return b.String()
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
