package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/tui/styles"
)

const (
	FieldPath = iota
	FieldName
	FieldArtist
	fieldCount
)

var fieldLabels = [fieldCount]string{"Video file", "Name", "Artist"}

// SongForm is the add/edit song modal
type SongForm struct {
	visible bool
	editing domain.SongID
	focus   int
	busy    bool
	err     string
	status  string
	inputs  [fieldCount]textinput.Model
}

// NewSongForm creates a new song form
func NewSongForm() SongForm {
	var f SongForm
	placeholders := [fieldCount]string{"~/Videos/clip.mp4", "defaults to the file name", "Unknown Artist"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 1024
		ti.Width = 48
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		f.inputs[i] = ti
	}
	return f
}

// ShowAdd opens an empty form for importing a song
func (f *SongForm) ShowAdd() {
	f.show("", "", "", "")
}

// ShowEdit opens the form prefilled with song
func (f *SongForm) ShowEdit(song *domain.Song) {
	f.show(song.ID, song.VideoPath, song.Name, song.Artist)
	f.setFocus(FieldName)
}

func (f *SongForm) show(id domain.SongID, path, name, artist string) {
	f.visible = true
	f.editing = id
	f.busy = false
	f.err, f.status = "", ""
	f.inputs[FieldPath].SetValue(path)
	f.inputs[FieldName].SetValue(name)
	f.inputs[FieldArtist].SetValue(artist)
	f.setFocus(FieldPath)
}

// Hide dismisses the form
func (f *SongForm) Hide() {
	f.visible = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

// IsVisible returns whether the form is shown
func (f SongForm) IsVisible() bool { return f.visible }

// Editing returns the ID of the song being edited, empty when adding
func (f SongForm) Editing() domain.SongID { return f.editing }

// Values returns the path, name and artist fields
func (f SongForm) Values() (path, name, artist string) {
	return f.inputs[FieldPath].Value(), f.inputs[FieldName].Value(), f.inputs[FieldArtist].Value()
}

// SetBusy marks a submission in flight
func (f *SongForm) SetBusy() {
	f.busy = true
	f.err = ""
	f.status = "Preparing media..."
}

// Fail shows a submission error; the path field gets focus again
func (f *SongForm) Fail(msg string) {
	f.busy = false
	f.err = msg
	f.status = ""
	f.setFocus(FieldPath)
}

// Imported clears the form for the next import
func (f *SongForm) Imported() {
	f.show("", "", "", "")
	f.status = "Song imported. Enter another or press esc."
}

// Updated keeps editing song with its saved values
func (f *SongForm) Updated(song *domain.Song) {
	f.show(song.ID, song.VideoPath, song.Name, song.Artist)
	f.status = "Song updated. Adjust fields or press esc."
	f.setFocus(FieldName)
}

func (f *SongForm) setFocus(i int) {
	f.focus = (i + fieldCount) % fieldCount
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// Update handles input events, returns (form, cmd, submitted)
func (f SongForm) Update(msg tea.Msg) (SongForm, tea.Cmd, bool) {
	if !f.visible {
		return f, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			f.Hide()
			return f, nil, false
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return f, nil, false
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return f, nil, false
		case "enter":
			if f.busy {
				return f, nil, false
			}
			if f.inputs[FieldPath].Value() == "" {
				f.Fail("Please provide a path to the video file.")
				return f, nil, false
			}
			return f, nil, true
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

// View renders the form
func (f SongForm) View() string {
	if !f.visible {
		return ""
	}

	title := "Add Song"
	if f.editing != "" {
		title = "Edit Song"
	}

	rows := []string{styles.ModalTitleStyle.Render(title)}
	for i, input := range f.inputs {
		label := styles.SubtitleStyle.Render(fieldLabels[i])
		if i == f.focus {
			label = styles.AccentStyle.Render(fieldLabels[i])
		}
		rows = append(rows, label, input.View(), "")
	}

	switch {
	case f.err != "":
		rows = append(rows, styles.ErrorStyle.Render(f.err))
	case f.status != "":
		rows = append(rows, styles.SuccessStyle.Render(f.status))
	}
	rows = append(rows, styles.DimStyle.Render("tab next field · enter save · esc close"))

	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
