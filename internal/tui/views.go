package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/tui/styles"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.snap.Fullscreen && m.snap.Current != nil {
		return m.renderFullscreen()
	}

	layout := m.calculateLayout()

	body := m.renderList(layout.listWidth, layout.contentHeight)
	if layout.previewWidth > 0 {
		preview := m.renderPreview(layout.previewWidth, layout.contentHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(layout.listWidth).Height(layout.contentHeight).Render(body),
			" ",
			preview,
		)
	} else {
		body = lipgloss.NewStyle().Height(layout.contentHeight).Render(body)
	}

	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		"",
		body,
		m.renderFooter(),
	)

	switch {
	case m.form.IsVisible():
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.form.View())
	case m.confirmDelete != nil:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderConfirmDelete())
	}
	return screen
}

func (m Model) renderHeader() string {
	parts := []string{styles.HeaderStyle.Render("reel")}

	count := fmt.Sprintf("%d songs", m.view.Total)
	if m.view.Query != "" {
		count = fmt.Sprintf("%d of %d songs", m.view.Filtered, m.view.Total)
	}
	parts = append(parts, styles.DimBadgeStyle.Render(count))

	if m.snap.Shuffle {
		parts = append(parts, styles.BadgeStyle.Render(fmt.Sprintf("%s %d queued", styles.ShuffleChar, len(m.snap.Queue))))
	}
	if m.preparing {
		parts = append(parts, styles.DimStyle.Render("preparing media..."))
	}

	header := strings.Join(parts, " ")
	if m.searching || m.view.Query != "" {
		header += "  " + m.search.View()
	}
	return header
}

func (m Model) renderList(width, height int) string {
	if len(m.view.Visible) == 0 {
		if m.view.Query != "" {
			return styles.DimStyle.Render("No songs match \"" + m.view.Query + "\"")
		}
		return styles.DimStyle.Render("The library is empty. Press a to add a video.")
	}

	start, end := cardWindow(m.cursor, len(m.view.Visible), height-1)
	cards := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		cards = append(cards, m.renderCard(m.view.Visible[i], i == m.cursor, width))
	}
	if m.view.HasMore {
		remaining := m.view.Filtered - len(m.view.Visible)
		cards = append(cards, styles.DimStyle.Render(fmt.Sprintf("m load more (%d more)", remaining)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// renderCard renders one song card: name line with state badges, then the
// artist line or the progress bar for the current song
func (m Model) renderCard(song *domain.Song, selected bool, width int) string {
	style := styles.CardStyle
	current := m.snap.Current != nil && m.snap.Current.ID == song.ID
	switch {
	case current:
		style = styles.CurrentCardStyle
	case selected:
		style = styles.SelectedCardStyle
	}
	inner := max(width-style.GetHorizontalFrameSize(), 8)

	var icon string
	if current {
		icon = styles.PlayingChar + " "
		if m.snap.State == domain.StatePaused {
			icon = styles.PausedChar + " "
		}
	}

	var badges []string
	if song.Loop {
		badges = append(badges, styles.AccentStyle.Render(styles.LoopChar))
	}
	if res := song.Resolution(); res != "" {
		badges = append(badges, styles.DimBadgeStyle.Render(res))
	}
	if song.AssetsReady {
		badges = append(badges, styles.DimStyle.Render(song.FormattedDuration()))
	}
	suffix := strings.Join(badges, " ")

	nameWidth := inner - lipgloss.Width(icon) - lipgloss.Width(suffix) - 1
	name := styles.Truncate(song.Name, nameWidth)
	matched := search.Highlight(m.view.Mode, m.view.Query, name)
	title := icon + styles.Highlight(name, matched, styles.TitleStyle)
	if suffix != "" {
		gap := max(inner-lipgloss.Width(title)-lipgloss.Width(suffix), 1)
		title += strings.Repeat(" ", gap) + suffix
	}

	second := styles.SubtitleStyle.Render(styles.Truncate(song.Artist, inner))
	if current {
		bar := m.bar
		bar.Width = inner
		second = bar.ViewAs(m.snap.Progress())
	}

	return style.Width(width - style.GetHorizontalBorderSize()).Render(title + "\n" + second)
}

// renderPreview shows the current frame while a song is loaded, otherwise
// the thumbnail of the selected song
func (m Model) renderPreview(width, height int) string {
	var caption string
	art := ""
	switch {
	case m.snap.Current != nil:
		art = m.frames.render(m.frame, width, height-2)
		caption = m.snap.Current.Title()
	default:
		song := m.selected()
		if song == nil {
			break
		}
		caption = song.Title()
		if img := m.thumbnail(song); img != nil {
			art = m.thumbArt.render(img, width, height-2)
		} else if !song.AssetsReady {
			art = styles.DimStyle.Render("Thumbnail not prepared yet")
		}
	}

	if caption == "" {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		art,
		"",
		styles.SubtitleStyle.Render(styles.Truncate(caption, width)),
	)
}

func (m Model) renderFullscreen() string {
	art := m.frames.render(m.frame, m.width, m.height-1)
	status := styles.DimStyle.Render(styles.Truncate(m.transportLine()+"  ·  esc to exit", m.width))
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, art),
		status,
	)
}

func (m Model) renderFooter() string {
	line := m.transportLine()
	if m.snap.Current != nil {
		line = styles.TitleStyle.Render(line)
	} else {
		line = styles.SubtitleStyle.Render(line)
	}
	info := styles.DimStyle.Render(fmt.Sprintf("vol %d%%", int(m.snap.Volume*100+0.5)))
	gap := max(m.width-lipgloss.Width(line)-lipgloss.Width(info), 1)
	first := line + strings.Repeat(" ", gap) + info

	status := ""
	if m.status != "" {
		if m.statusErr {
			status = styles.ErrorStyle.Render(styles.Truncate(m.status, m.width))
		} else {
			status = styles.SuccessStyle.Render(styles.Truncate(m.status, m.width))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, first, status, m.help.View(Keys))
}

// transportLine describes the transport state in one line
func (m Model) transportLine() string {
	song := m.snap.Current
	if song == nil {
		return "Ready - choose a song or shuffle the deck."
	}
	verb := "Playing"
	if m.snap.State == domain.StatePaused {
		verb = "Paused"
	}
	return fmt.Sprintf("%s: %s · %s / %s", verb, song.Name,
		domain.FormatClock(m.snap.Position), song.FormattedDuration())
}

func (m Model) renderConfirmDelete() string {
	song := m.confirmDelete
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render("Delete Song"),
		"Remove "+styles.AccentStyle.Render(song.Title())+" from the library?",
		"",
		styles.DimStyle.Render("y delete · n cancel"),
	)
	return styles.ModalStyle.Render(body)
}
