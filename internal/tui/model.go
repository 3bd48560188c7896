// Package tui provides the Bubble Tea copy-practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tuicw/internal/generator"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/session"
	statsPkg "github.com/verte-zerg/tuicw/internal/stats"
)

// idleRefresh is how often the day buckets are rolled over between sessions.
const idleRefresh = time.Minute

// WeakSource provides recent per-character results for weak-character focus.
type WeakSource interface {
	ListCharAggregates(ctx context.Context, window int) ([]model.CharAggregate, error)
}

// ConfigMsg delivers reloaded settings from the config watcher, with the
// word list they name already loaded.
type ConfigMsg struct {
	Settings model.Settings
	Words    []string
	Err      error
}

type refreshMsg time.Time

type keyMap struct {
	Start key.Binding
	Stop  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Start: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
	Stop:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
	Quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// Model implements the Bubble Tea practice UI. Every session event reaches
// the controller through Update, so the controller never sees two events at
// once.
type Model struct {
	ctrl   *session.Controller
	groups *generator.Weighted
	weak   WeakSource
	logger zerolog.Logger
	now    func() time.Time

	keys keyMap
	help help.Model

	width  int
	height int

	startErr       error
	configErr      error
	lastSeen       *model.Session
	weakNoticeDone bool
}

var (
	correctStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	missedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Underline(true)
	currentGroupStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle       = lipgloss.NewStyle().Underline(true)
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	noticeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	lampOnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5D547")).Bold(true)
	lampOffStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
)

// NewModel constructs the practice UI around ctrl. groups is the source the
// controller draws from; weak may be nil when no history store is open.
func NewModel(ctrl *session.Controller, groups *generator.Weighted, weak WeakSource, logger zerolog.Logger) *Model {
	m := &Model{
		ctrl:   ctrl,
		groups: groups,
		weak:   weak,
		logger: logger,
		now:    time.Now,
		keys:   defaultKeys,
		help:   help.New(),
	}
	m.refreshWeakSet()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return scheduleRefresh()
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(idleRefresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case EventMsg:
		m.handle(msg.Event)
		return m, nil
	case ConfigMsg:
		m.applyConfig(msg)
		return m, nil
	case refreshMsg:
		if m.ctrl.State() == session.StateIdle {
			m.handle(session.Tick{At: time.Time(msg)})
		}
		return m, scheduleRefresh()
	case tea.BlurMsg:
		m.handle(session.StopRequested{Reason: model.EndLostFocus, At: m.now()})
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.handle(session.StopRequested{Reason: model.EndStopped, At: m.now()})
		return tea.Quit
	case key.Matches(msg, m.keys.Start):
		m.start()
	case key.Matches(msg, m.keys.Stop):
		m.handle(session.StopRequested{Reason: model.EndStopped, At: m.now()})
	case msg.Paste:
		// Pasted text is not copying.
	case msg.Type == tea.KeySpace:
		m.handle(session.KeyPressed{Char: ' ', Modified: msg.Alt, At: m.now()})
	case msg.Type == tea.KeyRunes:
		at := m.now()
		for _, r := range msg.Runes {
			m.handle(session.KeyPressed{Char: r, Modified: msg.Alt, At: at})
		}
	}
	return nil
}

func (m *Model) start() {
	m.startErr = nil
	err := m.ctrl.Handle(session.StartRequested{At: m.now()})
	if err != nil && !errors.Is(err, session.ErrCoolingDown) && !errors.Is(err, session.ErrSessionActive) {
		m.startErr = err
	}
	m.afterEvent()
}

func (m *Model) handle(ev session.Event) {
	if err := m.ctrl.Handle(ev); err != nil {
		m.logger.Debug().Err(err).Msg("event rejected")
	}
	m.afterEvent()
}

// afterEvent reacts to a session having just finished.
func (m *Model) afterEvent() {
	last := m.ctrl.Status().LastSession
	if last == nil || last == m.lastSeen {
		return
	}
	m.lastSeen = last
	m.refreshWeakSet()
}

func (m *Model) applyConfig(msg ConfigMsg) {
	if msg.Err != nil {
		m.configErr = msg.Err
		m.logger.Warn().Err(msg.Err).Msg("config reload rejected")
		return
	}
	m.configErr = nil
	m.startErr = nil
	m.ctrl.ApplySettings(msg.Settings, m.now())
	if m.groups != nil {
		m.groups.SetWords(msg.Words)
	}
	m.afterEvent()
	m.refreshWeakSet()
	m.logger.Info().Float64("wpm", msg.Settings.WPM).Str("charset", msg.Settings.Charset).Msg("settings reloaded")
}

func (m *Model) refreshWeakSet() {
	settings := m.ctrl.Settings()
	if m.groups == nil || m.weak == nil || !settings.FocusWeak {
		return
	}
	aggs, err := m.weak.ListCharAggregates(context.Background(), settings.WeakWindow)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to load weak chars")
		return
	}
	if len(aggs) == 0 {
		if !m.weakNoticeDone {
			m.logger.Info().Msg("no stats available for weak-char focus yet; using normal generator")
			m.weakNoticeDone = true
		}
		m.groups.SetWeak(map[rune]struct{}{})
		return
	}
	m.groups.SetWeak(statsPkg.SelectWeakChars(aggs, settings.WeakTop))
}

// View implements tea.Model.
func (m *Model) View() string {
	st := m.ctrl.Status()
	t := transcript{copied: []rune(st.CopiedText), active: st.State == session.StateActive}
	if st.State != session.StateActive && st.LastSession != nil {
		t.mistake = st.LastSession.Mistake
	}
	styled := buildStyledRunes(t)

	header := m.renderLamp(st)
	notice := m.renderNotice(st)
	if m.width == 0 || m.height == 0 {
		return strings.Join([]string{header, renderStyledRunes(styled), notice}, "\n")
	}

	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styled, contentWidth)
	parts := []string{
		lipgloss.PlaceHorizontal(contentWidth, lipgloss.Center, header),
		"",
		lipgloss.NewStyle().Width(contentWidth).Render(wrapped),
	}
	if notice != "" {
		parts = append(parts, "", notice)
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	footer := m.renderFooter(st)
	helpLine := m.help.View(m.keys)
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	helpRow := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, helpLine)
	return body + "\n" + footerLine + "\n" + helpRow
}

func (m *Model) renderLamp(st session.Status) string {
	lamp := lampOffStyle.Render("○")
	if st.Lamp {
		lamp = lampOnStyle.Render("●")
	}
	var label string
	switch st.State {
	case session.StateActive:
		label = fmt.Sprintf("copying · lag %d/%d", st.Lag, m.ctrl.Settings().LagThreshold)
	case session.StateMistakeRecovery:
		label = "mistake"
	default:
		label = "press enter to start"
		if until := m.ctrl.CooldownUntil(); m.now().Before(until) {
			label = fmt.Sprintf("next session in %ds", int(until.Sub(m.now()).Seconds())+1)
		}
	}
	return lamp + "  " + footerStyle.Render(label)
}

func (m *Model) renderNotice(st session.Status) string {
	var text string
	switch {
	case m.configErr != nil:
		text = "Config not applied: " + m.configErr.Error()
	case errors.Is(m.startErr, generator.ErrEmptyCharset) || st.Notice == session.NoticeEmptyCharset:
		text = "The charset is empty. Pick some characters in the config."
	case m.startErr != nil:
		text = "Cannot start: " + m.startErr.Error()
	case st.Notice == session.NoticeTooSlow:
		text = "Too slow. The session timed out."
	case st.Notice == session.NoticeLostFocus:
		text = "Session stopped: the terminal lost focus."
	}
	if text == "" {
		return ""
	}
	return noticeStyle.Render(text)
}

func (m *Model) renderFooter(st session.Status) string {
	settings := m.ctrl.Settings()
	s := st.Stats
	segments := []string{
		fmt.Sprintf("%.0f WPM · %.0f Hz", settings.WPM, settings.Tone),
		fmt.Sprintf("Session %s · %d chars · %d pts",
			statsPkg.FormatElapsed(s.Elapsed.LastSession), s.CopiedCharacters.LastSession, s.Score.LastSession),
		fmt.Sprintf("Today %s · %d pts", statsPkg.FormatElapsed(s.Elapsed.CurrentDay), s.Score.CurrentDay),
		fmt.Sprintf("Best %d pts", s.Score.BestSession),
		fmt.Sprintf("Total %s · %d groups", statsPkg.FormatElapsed(s.Elapsed.Total), s.CopiedGroups.Total),
	}
	if settings.FocusWeak && m.groups != nil && len(m.groups.Weak()) > 0 {
		segments = append(segments, "Focus "+weakLabel(m.groups.Weak()))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func weakLabel(set map[rune]struct{}) string {
	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	slices.Sort(runes)
	return string(runes)
}
