package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/core/service"
)

const actionTimeout = 2 * time.Minute

type mode int

const (
	modeList mode = iota
	modeUpload
)

// --- Messages ---

type sessionMsg domain.Session

type pollMsg ports.PollUpdate

type uploadDoneMsg struct {
	job *domain.Job
	err error
}

type profileDoneMsg struct{ err error }

type refreshDoneMsg struct{ err error }

// Model is the dashboard: the signed-in user, the job list kept fresh by
// the poll loop, and an upload prompt.
type Model struct {
	sessions ports.SessionService
	jobs     ports.JobService
	openFile func(path string) (domain.UploadFile, func() error, error)

	session  domain.Session
	list     []domain.Job
	idle     bool
	jobsErr  string
	notice   string
	cursor   int
	expanded bool

	mode        mode
	uploadInput textinput.Model
	uploading   bool
	spinner     spinner.Model

	width    int
	height   int
	quitting bool
}

func NewModel(sessions ports.SessionService, jobs ports.JobService) Model {
	ui := textinput.New()
	ui.Placeholder = "path/to/audio.mp3"
	ui.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	return Model{
		sessions:    sessions,
		jobs:        jobs,
		openFile:    openUpload,
		session:     sessions.Snapshot(),
		list:        jobs.Jobs(),
		uploadInput: ui,
		spinner:     sp,
		width:       100,
		height:      30,
	}
}

func openUpload(path string) (domain.UploadFile, func() error, error) {
	file, closer, err := service.OpenUpload(path)
	if err != nil {
		return domain.UploadFile{}, nil, err
	}
	return file, closer.Close, nil
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.needsProfile() {
		cmds = append(cmds, m.refreshProfile())
	}
	return tea.Batch(cmds...)
}

// needsProfile reports a session that holds a token but no user yet.
func (m Model) needsProfile() bool {
	return m.session.User == nil && m.session.Token != ""
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionMsg:
		m.session = domain.Session(msg)
		if m.session.Status == domain.SessionIdle && m.jobsErr == "" {
			m.notice = "Signed out."
		}
		return m, nil

	case pollMsg:
		m.list = msg.Jobs
		m.idle = msg.Idle
		m.jobsErr = ""
		if m.cursor >= len(m.list) {
			m.cursor = max(0, len(m.list)-1)
		}
		if errors.Is(msg.Err, domain.ErrUnauthorized) && m.session.Status == domain.SessionAuthenticated {
			m.jobsErr = "Session expired. Run transcribe login."
			return m, m.logout()
		}
		if msg.Err != nil {
			m.jobsErr = domain.Message(msg.Err, "Unable to load jobs.")
		}
		return m, nil

	case uploadDoneMsg:
		m.uploading = false
		if msg.err != nil {
			m.notice = domain.Message(msg.err, "Unable to upload file.")
		} else {
			m.notice = fmt.Sprintf("Uploaded %s (job %s).", msg.job.Filename, msg.job.ID)
		}
		return m, nil

	case profileDoneMsg:
		if msg.err != nil {
			m.notice = domain.Message(msg.err, "Unable to load profile.")
		}
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.jobsErr = domain.Message(msg.err, "Unable to load jobs.")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode == modeUpload {
			return m.updateUpload(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.list)-1 {
			m.cursor++
		}

	case "enter":
		m.expanded = !m.expanded

	case "r":
		m.notice = ""
		return m, tea.Batch(m.refreshJobs(), m.refreshProfile())

	case "u":
		if !m.uploading {
			m.notice = ""
			m.uploadInput.SetValue("")
			m.uploadInput.Focus()
			m.mode = modeUpload
		}
	}
	return m, nil
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.uploadInput.Blur()
		m.mode = modeList
		return m, nil

	case "enter":
		path := strings.TrimSpace(m.uploadInput.Value())
		m.uploadInput.Blur()
		m.mode = modeList
		m.uploading = true
		return m, m.upload(path)
	}

	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(msg)
	return m, cmd
}

func (m Model) upload(path string) tea.Cmd {
	jobs, open := m.jobs, m.openFile
	return func() tea.Msg {
		file, closeFile, err := open(path)
		if err != nil {
			return uploadDoneMsg{err: err}
		}
		defer closeFile()

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		job, err := jobs.Upload(ctx, file)
		return uploadDoneMsg{job: job, err: err}
	}
}

func (m Model) logout() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		sessions.Logout()
		return nil
	}
}

func (m Model) refreshProfile() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return profileDoneMsg{err: sessions.RefreshProfile(ctx)}
	}
}

// refreshJobs fetches the list once; the result reaches the view through the
// next poll update or, on error, through refreshDoneMsg.
func (m Model) refreshJobs() tea.Cmd {
	jobs := m.jobs
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		list, err := jobs.ListJobs(ctx)
		if err != nil {
			return refreshDoneMsg{err: err}
		}
		return pollMsg{Jobs: list, Idle: domain.AllTerminal(list)}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Audio Transcribe") + dimStyle.Render("  "+m.userLine()) + "\n")
	if m.session.User != nil && m.session.User.Disabled {
		b.WriteString(warnStyle.Render("  Your account is currently disabled.") + "\n")
	}
	if m.session.Status == domain.SessionError && m.session.ErrorMessage != "" {
		b.WriteString(errorStyle.Render("  "+m.session.ErrorMessage) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderHeader() + "\n")
	if len(m.list) == 0 {
		b.WriteString(dimStyle.Render("  No jobs yet. Press u to upload an audio file.") + "\n")
	}
	for i, j := range m.list {
		b.WriteString(m.renderRow(j, i == m.cursor) + "\n")
	}

	if m.expanded && m.cursor < len(m.list) {
		b.WriteString(m.renderTranscript(m.list[m.cursor]) + "\n")
	}

	b.WriteString("\n" + m.renderStatus() + "\n")
	if m.mode == modeUpload {
		b.WriteString(statusBarStyle.Render("Upload: ") + m.uploadInput.View() + "\n")
		b.WriteString(helpStyle.Render("  Enter: upload  Esc: cancel"))
	} else {
		b.WriteString(helpStyle.Render("  u: upload  Enter: transcript  r: refresh  q: quit"))
	}
	return b.String()
}

func (m Model) userLine() string {
	switch {
	case m.session.User != nil:
		return "Signed in as " + m.session.User.Username
	case m.needsProfile():
		return "Fetching profile..."
	default:
		return "Not signed in"
	}
}

const (
	colID     = 10
	colStatus = 11
)

func (m Model) renderHeader() string {
	cols := []string{pad("Job", colID), pad("Status", colStatus), pad("File", m.fileWidth())}
	return headerStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderRow(j domain.Job, selected bool) string {
	if selected {
		plain := []string{pad(j.ID, colID), pad(string(j.Status), colStatus), pad(j.Filename, m.fileWidth())}
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, selectedStyle.Render(strings.Join(plain, " ")))
	}
	cols := []string{pad(j.ID, colID), statusTag(string(j.Status), colStatus), pad(j.Filename, m.fileWidth())}
	return normalStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderTranscript(j domain.Job) string {
	var body string
	switch {
	case j.Status == domain.JobStatusCompleted:
		body = j.Transcript
	case j.Status == domain.JobStatusFailed && j.ErrorMessage != "":
		body = errorStyle.Render(j.ErrorMessage)
	case j.Status == domain.JobStatusFailed:
		body = errorStyle.Render(domain.ErrTranscriptionFailed.Error())
	default:
		body = dimStyle.Render("Transcription pending...")
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return transcriptStyle.Width(width).Render(body)
}

func (m Model) renderStatus() string {
	var parts []string
	switch {
	case m.uploading:
		parts = append(parts, m.spinner.View()+" uploading")
	case !m.idle:
		parts = append(parts, m.spinner.View()+" polling")
	default:
		parts = append(parts, dimStyle.Render("all jobs finished"))
	}
	if m.jobsErr != "" {
		parts = append(parts, errorStyle.Render(m.jobsErr))
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	return strings.Join(parts, "  ")
}

func (m Model) fileWidth() int {
	w := m.width - colID - colStatus - 6
	if w < 16 {
		w = 16
	}
	return w
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		if width > 2 {
			return string(runes[:width-2]) + ".."
		}
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}
