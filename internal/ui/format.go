package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ShortAddress abbreviates a 0x-prefixed hex address to 0x1234…abcd.
// Strings too short to abbreviate are returned unchanged.
func ShortAddress(addr string) string {
	if len(addr) <= 14 || !strings.HasPrefix(addr, "0x") {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// KV is one label/value row of a Fields block.
type KV struct {
	Label string
	Value string
}

// Fields renders rows as an aligned two-column block with muted labels.
func Fields(rows ...KV) string {
	width := 0
	for _, r := range rows {
		if w := lipgloss.Width(r.Label); w > width {
			width = w
		}
	}
	var b strings.Builder
	for _, r := range rows {
		label := LabelStyle.Render(r.Label + ":")
		pad := strings.Repeat(" ", width-lipgloss.Width(r.Label)+1)
		fmt.Fprintf(&b, "  %s%s%s\n", label, pad, r.Value)
	}
	return b.String()
}

// Box frames content with a rounded border, for `rw status`.
func Box(title, content string) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1)
	return style.Render(RenderCategory(title) + "\n" + strings.TrimRight(content, "\n"))
}
