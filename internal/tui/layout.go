package tui

const (
	headerHeight   = 2 // title bar + blank line
	footerHeight   = 3 // progress/status, transient status, help
	cardHeight     = 4 // two content lines inside a border
	minListWidth   = 36
	previewPercent = 55
	minPreview     = 24
)

// paneLayout holds calculated pane sizes for the View
type paneLayout struct {
	listWidth     int
	previewWidth  int // 0 if not shown
	contentHeight int
}

// calculateLayout splits the window between the card list and the preview
func (m Model) calculateLayout() paneLayout {
	layout := paneLayout{
		listWidth:     m.width,
		contentHeight: max(m.height-headerHeight-footerHeight, cardHeight),
	}
	if m.showHelp {
		layout.contentHeight = max(layout.contentHeight-4, cardHeight)
	}
	if !m.preview {
		return layout
	}

	preview := m.width * previewPercent / 100
	if preview < minPreview || m.width-preview < minListWidth {
		return layout
	}
	layout.previewWidth = preview
	layout.listWidth = m.width - preview - 1
	return layout
}

// cardWindow returns the slice bounds of the visible cards that fit in
// height, keeping the cursor on screen
func cardWindow(cursor, count, height int) (start, end int) {
	fit := max(height/cardHeight, 1)
	if count <= fit {
		return 0, count
	}
	start = max(cursor-fit+1, 0)
	end = min(start+fit, count)
	return start, end
}
