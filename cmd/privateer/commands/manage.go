package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/model"
	"github.com/Themolx/Privateer/internal/queuestore"
)

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Interactive queue browser",
	Long: `Browse and curate the queue in a terminal UI: filter jobs, reopen failed
ones, drop single records, and clear completed records, all with inline
confirmation. Holds the queue writer lock for the whole session.`,
	RunE: runManage,
}

type manageMode int

const (
	manageModeBrowse manageMode = iota
	manageModeFilter
	manageModeConfirm
)

// manageAction is a pending destructive operation awaiting confirmation.
type manageAction struct {
	label string
	run   func() tea.Msg
}

type manageModel struct {
	store *queuestore.Store

	jobs     []model.Job // filtered view backing the list
	all      []model.Job
	counters [5]int // pending, downloading, retrying, completed, failed

	cursor  int
	width   int
	height  int
	mode    manageMode
	filter  textinput.Model
	pending *manageAction

	statusMessage string
}

type manageLoadedMsg struct {
	jobs     []model.Job
	counters [5]int
}

type manageActionMsg struct {
	message string
	err     error
}

var (
	manageTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	manageMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	manageErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	manageOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	managePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	manageSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)

	manageStatusStyles = map[model.JobStatus]lipgloss.Style{
		model.StatusCompleted:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.StatusFailed:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		model.StatusRetrying:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.StatusDownloading: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
)

func runManage(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("manage requires an interactive terminal (TTY)")
	}

	lock, err := lockState(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "name, id, status or kind"
	filter.CharLimit = 128

	m := manageModel{store: store, filter: filter}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("manage requires an interactive terminal (TTY)")
		}
		return err
	}
	return nil
}

func (m manageModel) Init() tea.Cmd {
	return m.reloadCmd()
}

func (m manageModel) reloadCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		q := store.Queue()
		jobs := make([]model.Job, len(q.Jobs))
		copy(jobs, q.Jobs)
		return manageLoadedMsg{
			jobs:     jobs,
			counters: [5]int{q.Pending, q.Downloading, q.Retrying, q.Completed, q.Failed},
		}
	}
}

func (m manageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = clampInt(m.width-8, 20, 120)
		return m, nil
	case manageLoadedMsg:
		m.all = msg.jobs
		m.counters = msg.counters
		m.applyFilter()
		return m, nil
	case manageActionMsg:
		m.mode = manageModeBrowse
		m.pending = nil
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		return m, m.reloadCmd()
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case manageModeFilter:
		return m.updateFilter(keyMsg)
	case manageModeConfirm:
		return m.updateConfirm(keyMsg)
	default:
		return m.updateBrowse(keyMsg)
	}
}

func (m *manageModel) applyFilter() {
	m.jobs = filterJobs(m.all, m.filter.Value())
	if m.cursor > len(m.jobs)-1 {
		m.cursor = len(m.jobs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m manageModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.jobs)-1 {
			m.cursor++
		}
		return m, nil
	case "/":
		m.mode = manageModeFilter
		m.filter.Focus()
		m.statusMessage = ""
		return m, textinput.Blink
	case "esc":
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
			m.statusMessage = "filter cleared"
		}
		return m, nil
	case "r":
		job, ok := m.selectedJob()
		if !ok {
			m.statusMessage = "select a job to reopen"
			return m, nil
		}
		if job.Status != model.StatusFailed {
			m.statusMessage = "only failed jobs can be reopened"
			return m, nil
		}
		store, id := m.store, job.ID
		m.pending = &manageAction{
			label: fmt.Sprintf("Reopen failed job '%s'?", job.DisplayName),
			run: func() tea.Msg {
				if _, err := store.Reopen(id); err != nil {
					return manageActionMsg{err: err}
				}
				return manageActionMsg{message: "reopened: " + shortID(id)}
			},
		}
		m.mode = manageModeConfirm
		return m, nil
	case "p":
		job, ok := m.selectedJob()
		if !ok {
			m.statusMessage = "select a job to purge"
			return m, nil
		}
		if job.Status == model.StatusDownloading {
			m.statusMessage = "cannot purge a downloading job"
			return m, nil
		}
		store, id := m.store, job.ID
		m.pending = &manageAction{
			label: fmt.Sprintf("Purge record '%s'? The artifact, if any, stays on disk.", job.DisplayName),
			run: func() tea.Msg {
				if err := store.Remove(id); err != nil {
					return manageActionMsg{err: err}
				}
				return manageActionMsg{message: "purged: " + shortID(id)}
			},
		}
		m.mode = manageModeConfirm
		return m, nil
	case "c":
		store := m.store
		m.pending = &manageAction{
			label: "Clear all completed job records?",
			run: func() tea.Msg {
				n, err := store.ClearCompleted()
				if err != nil {
					return manageActionMsg{err: err}
				}
				return manageActionMsg{message: fmt.Sprintf("cleared %d completed record(s)", n)}
			},
		}
		m.mode = manageModeConfirm
		return m, nil
	}
	return m, nil
}

func (m manageModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.mode = manageModeBrowse
		m.filter.Blur()
		return m, nil
	case "esc":
		m.filter.SetValue("")
		m.filter.Blur()
		m.mode = manageModeBrowse
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m manageModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n":
		m.mode = manageModeBrowse
		m.pending = nil
		m.statusMessage = "cancelled"
		return m, nil
	case "y", "enter":
		if m.pending == nil {
			m.mode = manageModeBrowse
			return m, nil
		}
		return m, m.pending.run
	}
	return m, nil
}

func (m manageModel) selectedJob() (model.Job, bool) {
	if len(m.jobs) == 0 || m.cursor < 0 || m.cursor >= len(m.jobs) {
		return model.Job{}, false
	}
	return m.jobs[m.cursor], true
}

func (m manageModel) View() string {
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}
	if m.mode == manageModeConfirm {
		return m.viewConfirm()
	}
	return m.viewBrowse()
}

func (m manageModel) viewBrowse() string {
	header := manageTitleStyle.Render("privateer manage") + "\n" +
		manageMutedStyle.Render("up/down: move | /: filter | r: reopen failed | p: purge record | c: clear completed | q: quit")

	if m.width < 90 {
		list := m.renderListPanel(m.width)
		details := m.renderDetailsPanel(m.width)
		body := lipgloss.JoinVertical(lipgloss.Left, list, details)
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
	}

	leftW := clampInt(m.width/2, 40, 70)
	rightW := m.width - leftW - 1
	list := m.renderListPanel(leftW)
	details := m.renderDetailsPanel(rightW)
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, details)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
}

func (m manageModel) renderListPanel(width int) string {
	lines := make([]string, 0, 20)

	counts := fmt.Sprintf("pending %d  downloading %d  retrying %d  completed %d  failed %d",
		m.counters[0], m.counters[1], m.counters[2], m.counters[3], m.counters[4])
	lines = append(lines, manageMutedStyle.Render(truncateRunes(counts, maxInt(width-6, 10))))
	if m.mode == manageModeFilter || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
	}
	lines = append(lines, "")

	if len(m.jobs) == 0 {
		if m.filter.Value() != "" {
			lines = append(lines, manageMutedStyle.Render("No jobs match the filter."))
		} else {
			lines = append(lines, manageMutedStyle.Render("Queue is empty."))
			lines = append(lines, manageMutedStyle.Render("Add jobs with: privateer enqueue --list wanted.json"))
		}
	}

	maxRows := clampInt(m.height-12, 4, 24)
	start, end := listWindow(len(m.jobs), m.cursor, maxRows)
	if start > 0 {
		lines = append(lines, manageMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		job := m.jobs[i]
		line := fmt.Sprintf("%-11s %-8s %s", string(job.Status), string(job.Kind), job.DisplayName)
		line = truncateRunes(line, maxInt(width-6, 10))
		if i == m.cursor {
			line = manageSelStyle.Width(maxInt(width-4, 6)).Render(line)
		} else if style, ok := manageStatusStyles[job.Status]; ok {
			line = style.Render(line)
		}
		lines = append(lines, line)
	}
	if end < len(m.jobs) {
		lines = append(lines, manageMutedStyle.Render("..."))
	}

	return managePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m manageModel) renderDetailsPanel(width int) string {
	lines := []string{}
	job, ok := m.selectedJob()
	if !ok {
		lines = append(lines, "No job selected")
	} else {
		lines = append(lines, "Job Details", "")
		lines = append(lines, kv("id", job.ID))
		lines = append(lines, kv("name", job.DisplayName))
		lines = append(lines, kv("kind", string(job.Kind)))
		lines = append(lines, kv("status", string(job.Status)))
		if job.Reason != "" {
			lines = append(lines, kv("reason", job.Reason))
		}
		lines = append(lines, kv("attempts", fmt.Sprintf("%d", job.Attempts)))
		lines = append(lines, kv("locator", job.SourceLocator))
		lines = append(lines, kv("destination", job.Destination))
		if job.SizeBytes > 0 {
			lines = append(lines, kv("size", formatSize(job.SizeBytes)))
		} else if job.DeclaredSizeBytes > 0 {
			lines = append(lines, kv("declared size", formatSize(job.DeclaredSizeBytes)))
		}
		if job.SelfHealed {
			lines = append(lines, kv("self healed", "yes"))
		}
		if n := len(job.AttemptHistory); n > 0 {
			lines = append(lines, "", fmt.Sprintf("Last failures (%d total):", n))
			from := maxInt(n-3, 0)
			for _, rec := range job.AttemptHistory[from:] {
				lines = append(lines, manageMutedStyle.Render(rec.Timestamp+"  "+rec.Message))
			}
		}
	}

	for i := range lines {
		lines[i] = wrapOrTrim(lines[i], maxInt(width-6, 12))
	}
	return managePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m manageModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		msg = "Tip: / filters; reopen gives a failed job a fresh attempt budget."
	}
	style := manageMutedStyle
	switch {
	case strings.HasPrefix(strings.ToLower(msg), "error:"):
		style = manageErrorStyle
	case strings.HasPrefix(msg, "reopened") || strings.HasPrefix(msg, "purged") || strings.HasPrefix(msg, "cleared"):
		style = manageOKStyle
	}
	return style.Width(width).Render(truncateRunes(msg, maxInt(width-2, 10)))
}

func (m manageModel) viewConfirm() string {
	label := ""
	if m.pending != nil {
		label = m.pending.label
	}
	text := label + "\n\nPress y or Enter to confirm, n or Esc to cancel."
	boxW := clampInt(m.width-8, 36, 80)
	boxH := clampInt(m.height-6, 7, 12)
	panel := managePanelStyle.Width(boxW).Height(boxH).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// filterJobs keeps jobs whose name, id, status, kind or reason contains the
// needle, case-insensitively. An empty needle keeps everything.
func filterJobs(jobs []model.Job, needle string) []model.Job {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		out := make([]model.Job, len(jobs))
		copy(out, jobs)
		return out
	}
	var out []model.Job
	for _, job := range jobs {
		haystack := strings.ToLower(strings.Join([]string{
			job.DisplayName, job.ID, string(job.Status), string(job.Kind), job.Reason,
		}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, job)
		}
	}
	return out
}

func kv(k, v string) string {
	return fmt.Sprintf("%s: %s", k, v)
}

func listWindow(total, cursor, maxRows int) (int, int) {
	if total <= maxRows {
		return 0, total
	}
	half := maxRows / 2
	start := cursor - half
	if start < 0 {
		start = 0
	}
	end := start + maxRows
	if end > total {
		end = total
		start = end - maxRows
	}
	return start, end
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

func wrapOrTrim(s string, width int) string {
	if width <= 0 {
		return s
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return truncateRunes(s, width)
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
