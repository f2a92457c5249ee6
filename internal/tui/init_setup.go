package tui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lbt/internal/framework"
)

// InitSetupResult holds the choices made in the init carousel.
type InitSetupResult struct {
	Cancelled bool
	Framework framework.Framework
	Version   string
	Targets   []framework.Target
	Format    string
}

const (
	rowFramework = iota
	rowVersion
	rowTargets
	rowFormat
)

// hostOption leaves the target list empty so builds follow the host.
const hostOption = "host"

var targetHints = map[string]string{
	hostOption:    "Whatever machine runs `lbt build`",
	"win64":       "Fused .exe with its DLLs, zipped",
	"linux":       "AppImage interpreter and libraries",
	"macos":       "Interpreter libraries only, no fused app yet",
	"android":     "Libraries only, no fused apk yet",
	"ios":         "Libraries only, no fused ipa yet",
	"win64,linux": "Both desktop targets in one build",
}

type carouselRow struct {
	label   string
	options []string
	current int
}

func (r carouselRow) value() string { return r.options[r.current] }

type initSetupModel struct {
	rows      []carouselRow
	focused   int
	done      bool
	cancelled bool
}

func newInitSetupModel(fw framework.Framework) initSetupModel {
	frameworks := make([]string, 0)
	for _, known := range framework.Known() {
		frameworks = append(frameworks, string(known))
	}
	m := initSetupModel{
		rows: []carouselRow{
			{label: "Framework", options: frameworks, current: findIdx(frameworks, string(fw), 0)},
			{label: "Version"},
			{label: "Targets", options: []string{hostOption, "win64", "linux", "macos", "android", "ios", "win64,linux"}},
			{label: "Config", options: []string{"toml", "yaml"}},
		},
	}
	m.syncVersions()
	return m
}

// syncVersions offers the latest and minimum known versions of the selected
// framework.
func (m *initSetupModel) syncVersions() {
	def := framework.Framework(m.rows[rowFramework].value()).Def()
	opts := []string{def.Latest.String()}
	if !def.Minimum.Equal(def.Latest) {
		opts = append(opts, def.Minimum.String())
	}
	m.rows[rowVersion] = carouselRow{label: "Version", options: opts}
}

func findIdx(options []string, value string, defaultIdx int) int {
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return defaultIdx
}

func (m initSetupModel) Init() tea.Cmd { return nil }

func (m initSetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.focused > 0 {
			m.focused--
		}
	case "down", "j", "tab":
		if m.focused < len(m.rows)-1 {
			m.focused++
		}
	case "left", "h":
		m.step(-1)
	case "right", "l":
		m.step(1)
	case "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *initSetupModel) step(delta int) {
	row := m.rows[m.focused]
	row.current = (row.current + delta + len(row.options)) % len(row.options)
	m.rows[m.focused] = row
	if m.focused == rowFramework {
		m.syncVersions()
	}
}

func (m initSetupModel) View() string {
	faint := lipgloss.NewStyle().Faint(true)
	focused := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))

	var sb strings.Builder
	sb.WriteString("\n")
	if m.cancelled {
		return faint.Render("  cancelled") + "\n"
	}
	for i, row := range m.rows {
		label := faint.Render(fmt.Sprintf("%-10s", row.label))
		prefix := "  "
		if i == m.focused && !m.done {
			prefix = "▸ "
			label = focused.Render(fmt.Sprintf("%-10s", row.label))
		}
		if m.done {
			fmt.Fprintf(&sb, "%s%s %s\n", prefix, label, row.value())
			continue
		}
		fmt.Fprintf(&sb, "%s%s ←  %-14s→\n", prefix, label, row.value())
	}
	if m.done {
		return sb.String()
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("8"))
	sb.WriteString("\n")
	sb.WriteString(panel.Render(m.hint()))
	sb.WriteString("\n")
	sb.WriteString(faint.Render("  [↑↓] Navigate  [←→] Change  [Enter] Create  [Esc] Cancel"))
	sb.WriteString("\n")
	return sb.String()
}

func (m initSetupModel) hint() string {
	switch m.focused {
	case rowFramework:
		def := framework.Framework(m.rows[rowFramework].value()).Def()
		return fmt.Sprintf("github.com/%s/%s", def.Owner, def.Repo)
	case rowVersion:
		def := framework.Framework(m.rows[rowFramework].value()).Def()
		return fmt.Sprintf("Oldest supported %s, newest known %s", def.Minimum, def.Latest)
	case rowTargets:
		return targetHints[m.rows[rowTargets].value()]
	default:
		return "Written as lbt." + m.rows[rowFormat].value()
	}
}

func (m initSetupModel) result() InitSetupResult {
	if m.cancelled || !m.done {
		return InitSetupResult{Cancelled: true}
	}
	res := InitSetupResult{
		Framework: framework.Framework(m.rows[rowFramework].value()),
		Version:   m.rows[rowVersion].value(),
		Format:    m.rows[rowFormat].value(),
	}
	if targets := m.rows[rowTargets].value(); targets != hostOption {
		for _, name := range strings.Split(targets, ",") {
			res.Targets = append(res.Targets, framework.Target(name))
		}
	}
	return res
}

// RunInitSetup lets the user pick framework, version, targets and config
// format for a new project.
func RunInitSetup(w io.Writer, fw framework.Framework) (InitSetupResult, error) {
	p := tea.NewProgram(newInitSetupModel(fw), tea.WithOutput(w))
	finalModel, err := p.Run()
	if err != nil {
		return InitSetupResult{}, err
	}
	return finalModel.(initSetupModel).result(), nil
}
