package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/duet/internal/conversation"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/transcript"
	"github.com/Iron-Ham/duet/internal/tui/keymap"
	"github.com/Iron-Ham/duet/internal/tui/styles"
	"github.com/Iron-Ham/duet/internal/util"
)

// Layout constants
const (
	headerHeight = 2 // title line + bottom border
	footerHeight = 2 // message line + help line
	columnChrome = 3 // top and bottom border + column title
	boxChrome    = 2 // top and bottom border
	sideChrome   = 4 // left and right border + padding
	columnGap    = 1
)

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var body string
	if m.view == ViewTimeline {
		body = styles.Timeline.Render(m.timeline.View())
	} else {
		body = m.renderColumns()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderMessage(),
		m.renderHelp(),
	)
}

// renderHeader renders the title, status badge, message count, timer, and
// the agent whose turn it is.
func (m Model) renderHeader() string {
	status := m.snap.Status.String()
	badge := styles.StatusBadge.
		Background(styles.StatusColor(status)).
		Render(styles.StatusIcon(status) + " " + m.snap.Status.Label())

	parts := []string{
		styles.Title.Render("duet"),
		badge,
		styles.Muted.Render(fmt.Sprintf("%d messages", m.snap.MessageCount)),
		styles.Text.Render(formatElapsed(m.snap.Elapsed)),
	}
	if m.snap.Status == conversation.StatusRunning || m.snap.Status == conversation.StatusPaused {
		idx := m.reg.Index(m.snap.Turn)
		parts = append(parts, "→ "+styles.AgentName(idx, m.reg.Name(m.snap.Turn)))
	}
	if m.muted() {
		parts = append(parts, styles.Muted.Render("🔇 muted"))
	}

	line := util.TruncateANSI(strings.Join(parts, "  "), max(m.width, 4))
	return styles.Header.Width(m.width).Render(line)
}

func (m Model) renderColumns() string {
	cols := make([]string, len(m.columns))
	for i, id := range m.reg.Order() {
		title := m.columnTitle(i, id)
		content := lipgloss.JoinVertical(lipgloss.Left, title, m.columns[i].View())
		cols[i] = styles.Column.
			BorderForeground(styles.AgentColor(i)).
			Width(m.columnWidth() - 2).
			Render(content)
	}

	gap := strings.Repeat(" ", columnGap)
	var joined []string
	for i, c := range cols {
		if i > 0 {
			joined = append(joined, gap)
		}
		joined = append(joined, c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joined...)
}

func (m Model) columnTitle(i int, id persona.AgentID) string {
	p := m.reg.MustGet(id)
	title := styles.ColumnTitle.Render(strings.TrimSpace(p.Avatar + " " + styles.AgentName(i, p.Name)))
	if m.snap.Pending && m.snap.Turn == id {
		title += " " + m.spinner.View() + styles.Muted.Render(" thinking")
	}
	return util.TruncateANSI(title, max(m.columnWidth()-sideChrome, 4))
}

func (m Model) renderMessage() string {
	switch {
	case m.errorMessage != "":
		return util.TruncateANSI(styles.ErrorMsg.Render("✗ "+m.errorMessage), max(m.width, 4))
	case m.infoMessage != "":
		return util.TruncateANSI(styles.InfoMsg.Render(m.infoMessage), max(m.width, 4))
	}
	return ""
}

func (m Model) renderHelp() string {
	var items []string
	for _, b := range m.keys.HelpBindings() {
		if !m.showHelp && b.Command == keymap.CmdToggleHelp {
			continue
		}
		items = append(items, styles.HelpKey.Render(b.String())+" "+b.Description)
	}
	if m.showHelp {
		items = append(items, styles.HelpKey.Render("j/k")+" scroll", styles.HelpKey.Render("g/G")+" top/bottom")
	}
	return util.TruncateANSI(styles.HelpBar.Render(strings.Join(items, "  ")), max(m.width, 4))
}

// columnWidth returns the outer width of one split-view column.
func (m Model) columnWidth() int {
	n := max(len(m.columns), 1)
	return max((m.width-columnGap*(n-1))/n, sideChrome+1)
}

func (m Model) bodyHeight() int {
	return max(m.height-headerHeight-footerHeight, 1)
}

// renderPanes sizes the viewports and refills them from the snapshot,
// keeping the scroll position unless the viewport was already at the
// bottom.
func (m *Model) renderPanes() {
	if !m.ready {
		return
	}

	colInner := max(m.columnWidth()-sideChrome, 1)
	colHeight := max(m.bodyHeight()-columnChrome, 1)
	for i, id := range m.reg.Order() {
		fill(&m.columns[i], colInner, colHeight, m.renderColumnContent(id, colInner))
	}

	fill(&m.timeline, max(m.width-sideChrome, 1), max(m.bodyHeight()-boxChrome, 1), m.renderTimeline(max(m.width-sideChrome, 1)))
}

func fill(vp *viewport.Model, width, height int, content string) {
	atBottom := vp.AtBottom()
	offset := vp.YOffset
	vp.Width = width
	vp.Height = height
	vp.SetContent(content)
	if atBottom {
		vp.GotoBottom()
	} else {
		vp.SetYOffset(offset)
	}
}

func (m Model) renderColumnContent(id persona.AgentID, width int) string {
	var blocks []string
	for _, e := range m.snap.Entries {
		if e.Agent != id {
			continue
		}
		stamp := styles.Timestamp.Render(e.Timestamp.Format("15:04"))
		blocks = append(blocks, stamp+"\n"+renderEntryText(e, width))
	}
	if len(blocks) == 0 {
		return styles.Muted.Render("No messages yet")
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderTimeline(width int) string {
	if len(m.snap.Entries) == 0 {
		return m.welcome(width)
	}

	var blocks []string
	for _, e := range m.snap.Entries {
		p := m.reg.MustGet(e.Agent)
		head := fmt.Sprintf("%s %s %s",
			styles.Timestamp.Render("["+e.Timestamp.Format("15:04:05")+"]"),
			p.Avatar,
			styles.AgentName(m.reg.Index(e.Agent), p.Name))
		blocks = append(blocks, head+"\n"+renderEntryText(e, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) welcome(width int) string {
	names := make([]string, 0, m.reg.Len())
	for i, id := range m.reg.Order() {
		names = append(names, styles.AgentName(i, m.reg.Name(id)))
	}
	text := fmt.Sprintf("Press space to start a conversation between %s.", strings.Join(names, " and "))
	return lipgloss.NewStyle().Width(width).Render(styles.InfoMsg.Render(text))
}

func renderEntryText(e transcript.Entry, width int) string {
	style := lipgloss.NewStyle().Width(width)
	if e.Kind == transcript.KindError {
		style = styles.ErrorEntry.Width(width)
	}
	return style.Render(util.SanitizeText(e.Content))
}

// scroll applies fn to the viewports visible in the current view.
func (m *Model) scroll(fn func(*viewport.Model)) {
	if m.view == ViewTimeline {
		fn(&m.timeline)
		return
	}
	for i := range m.columns {
		fn(&m.columns[i])
	}
}

// formatElapsed renders d as MM:SS. Minutes keep counting past an hour.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
