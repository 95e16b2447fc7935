package view

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// keyed by style and wrap width; WithAutoStyle can block on terminal queries
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// RenderMarkdown renders md for a terminal of the given width. On any
// renderer failure the raw markdown is returned.
func RenderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	style := MarkdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()

	r := mdRenderers[key]
	if r == nil {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRenderers[key] = r
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// MarkdownStyle picks the glamour style: TASKDESK_MD_STYLE wins, NO_COLOR
// forces plain output, otherwise the terminal background decides.
func MarkdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKDESK_MD_STYLE"))) {
	case styles.LightStyle:
		return styles.LightStyle
	case styles.DarkStyle:
		return styles.DarkStyle
	case styles.NoTTYStyle, "plain":
		return styles.NoTTYStyle
	}
	if NoColor() {
		return styles.NoTTYStyle
	}
	if lipgloss.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}
