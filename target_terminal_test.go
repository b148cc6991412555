package livetable

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "12", StripMarkup("<span class='badge pointer'>12</span>"))
	assert.Equal(t, "a & b", StripMarkup("<b>a</b> &amp; b"))
	assert.Equal(t, "", StripMarkup("<span class='fa fa-link'></span>"))
}

func TestTerminalTargetRender(t *testing.T) {
	var out bytes.Buffer
	target := NewTerminalTarget(&out)
	r := newTestRegistry(t, 3, newCountingView())
	r.Dispatch(Batch{{"id": 2, "status": "on"}})
	r.SetViewMode(ModeWorth)

	text := target.Render(NewFrame(r, Patch{}))
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "-- worth view, 1/3 rows", lines[0])
	assert.Contains(t, lines[1], "status")
	assert.Contains(t, lines[2], "2")
	assert.Contains(t, lines[2], "on")
}

func TestTerminalTargetUpdate(t *testing.T) {
	var out bytes.Buffer
	target := NewTerminalTarget(&out)
	r := newTestRegistry(t, 2, newCountingView())

	require.NoError(t, target.Update(context.Background(), NewFrame(r, Patch{})))
	assert.Zero(t, out.Len())

	report := r.Dispatch(Batch{{"id": 1, "status": "off"}})
	require.NoError(t, target.Update(context.Background(), NewFrame(r, report.Patch)))
	assert.Contains(t, out.String(), "-- all view, 2/2 rows")
	assert.Contains(t, out.String(), Placeholder)
	require.NoError(t, target.Close())
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "b210", cellText(RenderedCell{HTML: "<span>b210</span>"}))
	assert.Equal(t, "ON", cellText(RenderedCell{HTML: "<span class='fa'></span>", Tooltip: "ON"}))
	assert.Equal(t, "ko", cellText(RenderedCell{HTML: "<span class='fa'></span>", Class: "ko"}))
}
