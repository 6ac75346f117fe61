package treeview

import (
	"strings"
)

// scrollbar draws the vertical position indicator beside the browser's
// row list.
type scrollbar struct {
	// rows is the number of rows in the list.
	rows int
	// height is the number of rows visible at once.
	height int
	// offset is the index of the first visible row.
	offset int

	thumb, track           string
	thumbStyle, trackStyle func(...string) string
}

func newScrollbar(s Styles) scrollbar {
	return scrollbar{
		thumb:      " ",
		track:      "│",
		thumbStyle: s.Thumb.Render,
		trackStyle: s.Track.Render,
	}
}

// thumbSpan returns the first line of the thumb and its length.
func (b scrollbar) thumbSpan() (top, size int) {
	if b.height <= 0 {
		return 0, 0
	}
	rows := max(b.rows, 0)
	// everything fits: full-height thumb
	if rows <= b.height {
		return 0, b.height
	}

	maxOffset := rows - b.height
	offset := min(max(b.offset, 0), maxOffset)

	// thumb ~= height^2 / rows
	h := float64(b.height)
	size = int(h * h / float64(rows))
	size = min(max(size, 1), b.height)

	maxTop := b.height - size
	if maxTop > 0 {
		top = int(float64(offset) / float64(maxOffset) * float64(maxTop))
	}
	return min(max(top, 0), maxTop), size
}

// View returns exactly height lines.
func (b scrollbar) View() string {
	if b.height <= 0 {
		return ""
	}
	top, size := b.thumbSpan()

	// A plain space would let the renderer drop the background escape.
	thumb, track := b.thumb, b.track
	if thumb == " " {
		thumb = "\u00a0"
	}
	if track == " " {
		track = "\u00a0"
	}

	var s strings.Builder
	for i := range b.height {
		if i > 0 {
			s.WriteByte('\n')
		}
		if top <= i && i < top+size {
			s.WriteString(b.thumbStyle(thumb))
		} else {
			s.WriteString(b.trackStyle(track))
		}
	}
	return s.String()
}
