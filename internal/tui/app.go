package tui

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/playback"
	"github.com/mmcdole/reel/internal/tui/components"
	"github.com/mmcdole/reel/internal/tui/styles"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.05
)

// Player is the transport the UI drives (consumer-defined interface)
type Player interface {
	Play(ctx context.Context, id domain.SongID) error
	TogglePause(ctx context.Context, id domain.SongID) error
	Seek(ctx context.Context, id domain.SongID, ratio float64) error
	Stop()
	PlayNext(ctx context.Context) error
	StartShuffle(ctx context.Context) error
	ToggleLoop(id domain.SongID) (bool, error)
	SetQuery(query string)
	LoadMore() bool
	SetVolume(volume float64)
	SetFullscreen(on bool) bool
	Snapshot() domain.PlaybackSnapshot
	View() playback.LibraryView
	CurrentFrame() image.Image
}

// Librarian manages the library document (consumer-defined interface)
type Librarian interface {
	ImportOrEdit(ctx context.Context, path, name, artist string, editing domain.SongID) (*domain.Song, error)
	Delete(id domain.SongID) error
	PrepareVisible(ctx context.Context) int
	Reload() (bool, error)
}

// Launcher opens a video in an external player (consumer-defined interface)
type Launcher interface {
	Launch(videoPath string, at time.Duration) error
}

// Options configures the Model
type Options struct {
	TickRate  int                            // render ticks per second
	Preview   bool                           // render video frames
	Launcher  Launcher                       // optional external player
	Snapshots <-chan domain.PlaybackSnapshot // fed by a ChannelObserver
	Reloads   <-chan struct{}                // fed by the library watcher
	Logger    *slog.Logger
}

// FrameMsg carries a decoded preview frame
type FrameMsg struct {
	Image image.Image
}

// Model is the Bubble Tea model for the player
type Model struct {
	player   Player
	library  Librarian
	launcher Launcher
	logger   *slog.Logger

	tickRate  int
	preview   bool
	snapshots <-chan domain.PlaybackSnapshot
	reloads   <-chan struct{}

	width  int
	height int

	view   playback.LibraryView
	snap   domain.PlaybackSnapshot
	cursor int

	search    textinput.Model
	searching bool
	form      components.SongForm
	help      help.Model
	showHelp  bool
	bar       progress.Model

	confirmDelete *domain.Song

	frame         image.Image
	frameInFlight bool
	frames        *frameCache
	thumbArt      *frameCache
	thumbs        map[string]image.Image

	preparing    bool
	prepareAgain bool

	status    string
	statusErr bool
	statusSeq int
}

// NewModel creates the player model
func NewModel(player Player, library Librarian, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Search songs"
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.PlaceholderStyle = styles.DimStyle
	ti.CharLimit = 100
	ti.Width = 30

	bar := progress.New(progress.WithSolidFill(string(styles.ReelRed)), progress.WithoutPercentage())

	return Model{
		player:    player,
		library:   library,
		launcher:  opts.Launcher,
		logger:    opts.Logger,
		tickRate:  opts.TickRate,
		preview:   opts.Preview,
		snapshots: opts.Snapshots,
		reloads:   opts.Reloads,
		search:    ti,
		form:      components.NewSongForm(),
		help:      help.New(),
		bar:       bar,
		frames:    &frameCache{},
		thumbArt:  &frameCache{},
		thumbs:    make(map[string]image.Image),
		preparing: true,
		view:      player.View(),
		snap:      player.Snapshot(),
	}
}

// Init starts the render loop and background work
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{TickCmd(m.tickRate), PrepareVisibleCmd(m.library)}
	if m.snapshots != nil {
		cmds = append(cmds, WaitForTransitionCmd(m.snapshots))
	}
	if m.reloads != nil {
		cmds = append(cmds, WaitForReloadCmd(m.reloads))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		m.snap = m.player.Snapshot()
		cmds := []tea.Cmd{TickCmd(m.tickRate)}
		if m.preview && m.snap.Current != nil && !m.frameInFlight {
			m.frameInFlight = true
			cmds = append(cmds, m.frameCmd())
		}
		return m, tea.Batch(cmds...)

	case FrameMsg:
		m.frameInFlight = false
		m.frame = msg.Image
		return m, nil

	case TransitionMsg:
		m.snap = msg.Snapshot
		if m.snap.Current == nil {
			m.frame = nil
		}
		m.refreshView()
		return m, WaitForTransitionCmd(m.snapshots)

	case LibraryReloadedMsg:
		m.refreshView()
		m.thumbs = make(map[string]image.Image)
		cmds := []tea.Cmd{m.setStatus("Library reloaded", false), m.schedulePrepare()}
		if !msg.Manual {
			cmds = append(cmds, WaitForReloadCmd(m.reloads))
		}
		return m, tea.Batch(cmds...)

	case WatchClosedMsg:
		m.reloads = nil
		return m, nil

	case PreparedMsg:
		m.preparing = false
		m.refreshView()
		if m.prepareAgain {
			m.prepareAgain = false
			return m, m.schedulePrepare()
		}
		return m, nil

	case ActionDoneMsg:
		m.snap = m.player.Snapshot()
		m.refreshView()
		if msg.Err != nil {
			m.logger.Error("transport action failed", "action", msg.Action, "error", msg.Err)
			return m, m.setStatus(actionError(msg.Err), true)
		}
		return m, nil

	case SongSavedMsg:
		return m.handleSongSaved(msg)

	case SongDeletedMsg:
		m.refreshView()
		if msg.Err != nil {
			return m, m.setStatus("Delete failed: "+msg.Err.Error(), true)
		}
		return m, tea.Batch(m.setStatus("Deleted "+msg.Title, false), m.schedulePrepare())

	case StatusMsg:
		return m, m.setStatus(msg.Text, msg.IsError)

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case ErrMsg:
		m.logger.Error("operation failed", "error", msg.Error())
		return m, m.setStatus(msg.Error(), true)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleSongSaved(msg SongSavedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.form.Fail(formError(msg.Err))
		return m, nil
	}
	if msg.Editing {
		m.form.Updated(msg.Song)
	} else {
		m.form.Imported()
	}
	delete(m.thumbs, msg.Song.ThumbnailPath)
	m.refreshView()
	m.selectSong(msg.Song.ID)
	return m, m.schedulePrepare()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.IsVisible() {
		var cmd tea.Cmd
		var submitted bool
		m.form, cmd, submitted = m.form.Update(msg)
		if submitted {
			m.form.SetBusy()
			path, name, artist := m.form.Values()
			return m, SaveSongCmd(m.library, path, name, artist, m.form.Editing())
		}
		return m, cmd
	}

	if m.confirmDelete != nil {
		song := m.confirmDelete
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.confirmDelete = nil
			return m, DeleteSongCmd(m.library, song)
		case key.Matches(msg, Keys.Deny):
			m.confirmDelete = nil
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	if m.snap.Fullscreen && (key.Matches(msg, Keys.Escape) || key.Matches(msg, Keys.Fullscreen)) {
		m.player.SetFullscreen(false)
		m.snap = m.player.Snapshot()
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		m.player.Stop()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, Keys.Down):
		if m.cursor < len(m.view.Visible)-1 {
			m.cursor++
		} else if m.view.HasMore {
			return m, m.loadMore()
		}

	case key.Matches(msg, Keys.LoadMore):
		return m, m.loadMore()

	case key.Matches(msg, Keys.Search):
		m.searching = true
		return m, m.search.Focus()

	case key.Matches(msg, Keys.Escape):
		if m.view.Query != "" {
			m.search.SetValue("")
			m.applyQuery()
			return m, m.schedulePrepare()
		}

	case key.Matches(msg, Keys.Play):
		if song := m.selected(); song != nil {
			id := song.ID
			return m, TransportCmd("play", func(ctx context.Context) error { return m.player.Play(ctx, id) })
		}

	case key.Matches(msg, Keys.Pause):
		if song := m.target(); song != nil {
			id := song.ID
			return m, TransportCmd("pause", func(ctx context.Context) error { return m.player.TogglePause(ctx, id) })
		}

	case key.Matches(msg, Keys.Next):
		return m, TransportCmd("next", m.player.PlayNext)

	case key.Matches(msg, Keys.Shuffle):
		return m, TransportCmd("shuffle", m.player.StartShuffle)

	case key.Matches(msg, Keys.Loop):
		if song := m.selected(); song != nil {
			on, err := m.player.ToggleLoop(song.ID)
			if err != nil {
				return m, m.setStatus(err.Error(), true)
			}
			m.refreshView()
			if on {
				return m, m.setStatus("Loop on: "+song.Name, false)
			}
			return m, m.setStatus("Loop off: "+song.Name, false)
		}

	case key.Matches(msg, Keys.Stop):
		m.player.Stop()
		m.snap = m.player.Snapshot()
		m.frame = nil

	case key.Matches(msg, Keys.SeekBack):
		return m, m.seekBy(-seekStep)

	case key.Matches(msg, Keys.SeekFwd):
		return m, m.seekBy(seekStep)

	case key.Matches(msg, Keys.SeekTo):
		if song := m.target(); song != nil {
			id, ratio := song.ID, float64(msg.Runes[0]-'0')/10
			return m, TransportCmd("seek", func(ctx context.Context) error { return m.player.Seek(ctx, id, ratio) })
		}

	case key.Matches(msg, Keys.VolumeUp):
		m.player.SetVolume(m.snap.Volume + volumeStep)
		m.snap = m.player.Snapshot()

	case key.Matches(msg, Keys.VolumeDown):
		m.player.SetVolume(m.snap.Volume - volumeStep)
		m.snap = m.player.Snapshot()

	case key.Matches(msg, Keys.Fullscreen):
		if !m.player.SetFullscreen(true) {
			return m, m.setStatus("Play a song to watch its video", false)
		}
		m.snap = m.player.Snapshot()

	case key.Matches(msg, Keys.External):
		return m, m.openExternal()

	case key.Matches(msg, Keys.Add):
		m.form.ShowAdd()
		return m, textinput.Blink

	case key.Matches(msg, Keys.Edit):
		if song := m.selected(); song != nil {
			m.form.ShowEdit(song)
			return m, textinput.Blink
		}

	case key.Matches(msg, Keys.Delete):
		m.confirmDelete = m.selected()

	case key.Matches(msg, Keys.Reload):
		return m, ReloadLibraryCmd(m.library)
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "tab":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.applyQuery()
			return m, m.schedulePrepare()
		}
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	m.applyQuery()
	return m, tea.Batch(cmd, m.schedulePrepare())
}

func (m *Model) applyQuery() {
	m.player.SetQuery(m.search.Value())
	m.cursor = 0
	m.refreshView()
}

func (m *Model) loadMore() tea.Cmd {
	if !m.player.LoadMore() {
		return nil
	}
	m.refreshView()
	return m.schedulePrepare()
}

// seekBy moves the target song's position by delta
func (m *Model) seekBy(delta time.Duration) tea.Cmd {
	song := m.target()
	if song == nil {
		return nil
	}
	var pos time.Duration
	if m.snap.Current != nil && m.snap.Current.ID == song.ID {
		pos = m.snap.Position
	}
	pos += delta
	ratio := 0.0
	if song.Duration > 0 {
		ratio = min(max(float64(pos)/float64(song.Duration), 0), 1)
	}
	id := song.ID
	return TransportCmd("seek", func(ctx context.Context) error { return m.player.Seek(ctx, id, ratio) })
}

func (m *Model) openExternal() tea.Cmd {
	if m.launcher == nil {
		return m.setStatus("No external player configured", true)
	}
	song := m.target()
	if song == nil {
		return nil
	}
	var at time.Duration
	if m.snap.Current != nil && m.snap.Current.ID == song.ID {
		at = m.snap.Position
		if m.snap.State == domain.StatePlaying {
			if err := m.player.TogglePause(context.Background(), song.ID); err != nil {
				m.logger.Warn("failed to pause before handoff", "error", err)
			}
			m.snap = m.player.Snapshot()
		}
	}
	return LaunchExternalCmd(m.launcher, song, at)
}

func (m Model) frameCmd() tea.Cmd {
	player := m.player
	return func() tea.Msg {
		return FrameMsg{Image: player.CurrentFrame()}
	}
}

func (m *Model) schedulePrepare() tea.Cmd {
	if m.preparing {
		m.prepareAgain = true
		return nil
	}
	m.preparing = true
	return PrepareVisibleCmd(m.library)
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	return ClearStatusCmd(m.statusSeq)
}

func (m *Model) refreshView() {
	m.view = m.player.View()
	if m.cursor >= len(m.view.Visible) {
		m.cursor = max(len(m.view.Visible)-1, 0)
	}
}

func (m *Model) selectSong(id domain.SongID) {
	for i, song := range m.view.Visible {
		if song.ID == id {
			m.cursor = i
			return
		}
	}
}

// selected returns the song under the cursor
func (m Model) selected() *domain.Song {
	if m.cursor < 0 || m.cursor >= len(m.view.Visible) {
		return nil
	}
	return m.view.Visible[m.cursor]
}

// target is the current song when there is one, otherwise the selection
func (m Model) target() *domain.Song {
	if m.snap.Current != nil {
		return m.snap.Current
	}
	return m.selected()
}

// thumbnail returns the cached thumbnail image of song
func (m Model) thumbnail(song *domain.Song) image.Image {
	if !song.AssetsReady {
		return nil
	}
	if img, ok := m.thumbs[song.ThumbnailPath]; ok {
		return img
	}
	img := loadThumbnail(song.ThumbnailPath)
	if img != nil {
		m.thumbs[song.ThumbnailPath] = img
	}
	return img
}

func actionError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoAudioTrack):
		return "This video has no audio track"
	case errors.Is(err, domain.ErrDevice):
		return "Audio device error: " + err.Error()
	case errors.Is(err, domain.ErrDecode):
		return "Unable to prepare video playback: " + err.Error()
	default:
		return err.Error()
	}
}

// formError phrases an import failure for the form
func formError(err error) string {
	if msg := upperFirst(err.Error()); msg != "" {
		return msg
	}
	return "Import failed"
}

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) > 0 && r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
