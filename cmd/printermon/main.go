// Command printermon is a terminal dashboard that polls a running
// virtual-printer's status API and renders temperatures, position, and SD
// print progress.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var tempProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(20))

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type status struct {
	Temperatures []float64 `json:"temperatures"`
	Targets      []float64 `json:"targets"`
	BedTemp      float64   `json:"bed_temp"`
	BedTarget    float64   `json:"bed_target"`
	Position     struct {
		X, Y, Z, E float64
	} `json:"position"`
	SDReady  bool     `json:"sd_ready"`
	SDStatus []string `json:"sd_status"`
	Killed   bool     `json:"killed"`
}

type tickMsg time.Time

type statusMsg struct {
	s   status
	err error
}

type model struct {
	url     string
	current status
	lastErr error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchStatus(m.url), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchStatus(url string) tea.Cmd {
	return func() tea.Msg {
		resp, err := http.Get(url)
		if err != nil {
			return statusMsg{err: err}
		}
		defer resp.Body.Close()
		var s status
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{s: s}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(fetchStatus(m.url), tick())
	case statusMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.current = msg.s
	}
	return m, nil
}

func (m model) View() string {
	if m.lastErr != nil {
		return errStyle.Render(fmt.Sprintf("printermon: %v\n", m.lastErr)) + dimStyle.Render("press q to quit\n")
	}

	s := m.current
	var b strings.Builder
	b.WriteString(labelStyle.Render("Hotends") + "\n")
	for i, t := range s.Temperatures {
		target := 0.0
		if i < len(s.Targets) {
			target = s.Targets[i]
		}
		b.WriteString(fmt.Sprintf("  T%d %s\n", i, tempBar(t, target)))
	}
	b.WriteString(labelStyle.Render("Bed") + "    " + tempBar(s.BedTemp, s.BedTarget) + "\n\n")

	b.WriteString(labelStyle.Render("Position") + "\n")
	b.WriteString(fmt.Sprintf("  X:%.2f Y:%.2f Z:%.2f E:%.2f\n\n", s.Position.X, s.Position.Y, s.Position.Z, s.Position.E))

	b.WriteString(labelStyle.Render("SD Card") + "\n")
	if s.SDReady {
		for _, line := range s.SDStatus {
			b.WriteString("  " + line + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render("  not mounted\n"))
	}

	if s.Killed {
		b.WriteString("\n" + errStyle.Render("EMERGENCY STOPPED") + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("press q to quit\n"))
	return b.String()
}

func tempBar(current, target float64) string {
	ratio := 0.0
	if target > 0 {
		ratio = current / target
	}
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return fmt.Sprintf("%s %6.1f /%6.1f", tempProgress.ViewAs(ratio), current, target)
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the virtual printer's status API")
	flag.Parse()

	m := model{url: *addr + "/status"}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Println("printermon:", err)
	}
}
