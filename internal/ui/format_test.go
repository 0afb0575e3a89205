package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x00aa…00bb", ShortAddress("0x00aa00000000000000000000000000000000" + "00bb"))
	assert.Equal(t, "0x1234", ShortAddress("0x1234"))
	assert.Equal(t, "not-an-address-at-all", ShortAddress("not-an-address-at-all"))
}

func TestFieldsAlignsValues(t *testing.T) {
	DisableColor()
	out := Fields(
		KV{Label: "owner", Value: "0xaa"},
		KV{Label: "threshold", Value: "2"},
	)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "  owner:     0xaa", lines[0])
	assert.Equal(t, "  threshold: 2", lines[1])
}

func TestBoxContainsTitleAndContent(t *testing.T) {
	DisableColor()
	out := Box("recovery", "phase: InProgress\n")
	assert.Contains(t, out, "RECOVERY")
	assert.Contains(t, out, "phase: InProgress")
	assert.Contains(t, out, "╭")
}

func TestRenderPhasePlain(t *testing.T) {
	DisableColor()
	for _, p := range []string{"NotInProgress", "InProgress", "CompletedAndReset"} {
		assert.Equal(t, p, RenderPhase(p))
	}
	assert.Equal(t, "SECTION", RenderCategory("section"))
}

func TestContentHeight(t *testing.T) {
	assert.Equal(t, 0, contentHeight(""))
	assert.Equal(t, 1, contentHeight("one\n"))
	assert.Equal(t, 3, contentHeight("a\nb\nc"))
}

func TestToPagerWritesDirectlyWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, toPager(&buf, "hello\n", PagerOptions{NoPager: true}))
	assert.Equal(t, "hello\n", buf.String())

	t.Setenv("RW_NO_PAGER", "1")
	buf.Reset()
	require.NoError(t, toPager(&buf, "again\n", PagerOptions{}))
	assert.Equal(t, "again\n", buf.String())
}

func TestGetPagerCommand(t *testing.T) {
	t.Setenv("RW_PAGER", "")
	t.Setenv("PAGER", "")
	assert.Equal(t, "less", getPagerCommand())
	t.Setenv("PAGER", "more")
	assert.Equal(t, "more", getPagerCommand())
	t.Setenv("RW_PAGER", "bat -p")
	assert.Equal(t, "bat -p", getPagerCommand())
}
