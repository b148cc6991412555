package livetable

import (
	"math"
	"strconv"
	"strings"

	sprites "github.com/nimsforest/nimsforestsprites"
)

// SpritesStateAdapter lays the visible rows of a frame out as sprite lands.
// Noteworthy nodes become mana lands; every cell classed ok grows a tree on
// its land and every cell classed error a nim.
type SpritesStateAdapter struct {
	frame *Frame
}

// NewSpritesStateAdapter creates an adapter for sprites rendering.
func NewSpritesStateAdapter(frame *Frame) *SpritesStateAdapter {
	return &SpritesStateAdapter{frame: frame}
}

func (a *SpritesStateAdapter) rows() []*Row {
	if a.frame == nil || a.frame.Document == nil {
		return nil
	}
	return a.frame.Document.VisibleRows()
}

func gridPosition(i, count int) (float64, float64) {
	size := int(math.Ceil(math.Sqrt(float64(count))))
	if size < 1 {
		size = 1
	}
	return float64(i % size), float64(i / size)
}

// Lands implements sprites.State.
func (a *SpritesStateAdapter) Lands() []sprites.Land {
	if a.frame == nil {
		return nil
	}
	rows := a.rows()
	worth := make(map[int]bool)
	for _, n := range a.frame.Nodes {
		worth[n.ID] = n.Noteworthy
	}

	result := make([]sprites.Land, len(rows))
	for i, row := range rows {
		landType := "normal"
		if worth[row.ID] {
			landType = "mana"
		}
		x, y := gridPosition(i, len(rows))
		result[i] = sprites.Land{
			ID:   row.Key,
			Name: "node " + strconv.Itoa(row.ID),
			X:    x,
			Y:    y,
			Type: landType,
		}
	}
	return result
}

// Processes implements sprites.State.
func (a *SpritesStateAdapter) Processes() []sprites.Process {
	rows := a.rows()
	var result []sprites.Process
	for i, row := range rows {
		x, y := gridPosition(i, len(rows))
		for col, cell := range row.Cells {
			var procType string
			switch classToken(cell.Class) {
			case "ok":
				procType = "tree"
			case "error":
				procType = "nim"
			default:
				continue
			}
			result = append(result, sprites.Process{
				ID:       row.Key + "/" + strconv.Itoa(col),
				LandID:   row.Key,
				Type:     procType,
				Progress: 1,
				X:        x,
				Y:        y,
			})
		}
	}
	return result
}

// classToken returns the status token (ok, ko, error) of a cell class.
func classToken(class string) string {
	for _, token := range strings.Fields(class) {
		switch token {
		case "ok", "ko", "error":
			return token
		}
	}
	return ""
}

// Ensure SpritesStateAdapter implements sprites.State
var _ sprites.State = (*SpritesStateAdapter)(nil)
