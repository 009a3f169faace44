package geometry

import "github.com/snappdf/snappdf/pkg/types"

// Cursor names, using CSS cursor keywords
const (
	CursorMove    = "move"
	CursorDefault = "crosshair"
)

var handleCursors = map[HandleID]string{
	TopLeft:      "nw-resize",
	TopMiddle:    "n-resize",
	TopRight:     "ne-resize",
	MiddleLeft:   "w-resize",
	MiddleRight:  "e-resize",
	BottomLeft:   "sw-resize",
	BottomMiddle: "s-resize",
	BottomRight:  "se-resize",
}

// HandleCursor returns the resize cursor for a handle
func HandleCursor(id HandleID) string {
	if c, ok := handleCursors[id]; ok {
		return c
	}
	return CursorDefault
}

// CursorAt returns the cursor a pointer at (px, py) should show over r
func CursorAt(r types.Rect, px, py float64) string {
	if id, ok := HandleAt(r, px, py); ok {
		return HandleCursor(id)
	}
	if IsInside(r, px, py) {
		return CursorMove
	}
	return CursorDefault
}
