package richtext

import (
	"fmt"
	"strings"
)

// PlainText flattens the document to text, one line per block.
func (d Document) PlainText() string {
	if d.legacy != nil {
		return *d.legacy
	}
	var lines []string
	walk(d.blocks, 0, func(b Block, depth int) {
		lines = append(lines, inlineText(b.Content))
	})
	return strings.Join(lines, "\n")
}

// Summary returns the first non-empty line of the document, truncated to max
// runes with an ellipsis.
func (d Document) Summary(max int) string {
	for _, line := range strings.Split(d.PlainText(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if max > 1 && len(r) > max {
			return string(r[:max-1]) + "…"
		}
		return line
	}
	return ""
}

// Markdown renders the document as CommonMark.
func (d Document) Markdown() string {
	if d.legacy != nil {
		return *d.legacy
	}
	var sb strings.Builder
	renderBlocks(&sb, d.blocks, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func walk(blocks []Block, depth int, fn func(Block, int)) {
	for _, b := range blocks {
		fn(b, depth)
		walk(b.Children, depth+1, fn)
	}
}

func inlineText(runs []Inline) string {
	var sb strings.Builder
	for _, r := range runs {
		if r.Type == "link" {
			sb.WriteString(inlineText(r.Content))
			continue
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func renderBlocks(sb *strings.Builder, blocks []Block, depth int) {
	indent := strings.Repeat("  ", depth)
	number := 0
	for _, b := range blocks {
		if b.Type == TypeNumberedList {
			number++
		} else {
			number = 0
		}
		text := inlineMarkdown(b.Content)
		switch b.Type {
		case TypeHeading:
			level := intProp(b.Props, "level", 1)
			if level < 1 || level > 6 {
				level = 1
			}
			fmt.Fprintf(sb, "%s%s %s\n\n", indent, strings.Repeat("#", level), text)
		case TypeBulletList:
			fmt.Fprintf(sb, "%s- %s\n", indent, text)
		case TypeNumberedList:
			fmt.Fprintf(sb, "%s%d. %s\n", indent, number, text)
		case TypeCheckList:
			mark := " "
			if checked, _ := b.Props["checked"].(bool); checked {
				mark = "x"
			}
			fmt.Fprintf(sb, "%s- [%s] %s\n", indent, mark, text)
		case TypeQuote:
			fmt.Fprintf(sb, "%s> %s\n\n", indent, text)
		case TypeCodeBlock:
			lang, _ := b.Props["language"].(string)
			fmt.Fprintf(sb, "%s```%s\n%s%s\n%s```\n\n", indent, lang, indent, inlineText(b.Content), indent)
		default:
			if text == "" && len(b.Children) == 0 {
				continue
			}
			fmt.Fprintf(sb, "%s%s\n\n", indent, text)
		}
		renderBlocks(sb, b.Children, depth+1)
	}
}

func inlineMarkdown(runs []Inline) string {
	var sb strings.Builder
	for _, r := range runs {
		if r.Type == "link" {
			fmt.Fprintf(&sb, "[%s](%s)", inlineMarkdown(r.Content), r.Href)
			continue
		}
		sb.WriteString(styled(r.Text, r.Styles))
	}
	return sb.String()
}

func styled(text string, styles map[string]any) string {
	if text == "" {
		return ""
	}
	if on(styles, "code") {
		return "`" + text + "`"
	}
	if on(styles, "bold") {
		text = "**" + text + "**"
	}
	if on(styles, "italic") {
		text = "*" + text + "*"
	}
	if on(styles, "strike") {
		text = "~~" + text + "~~"
	}
	return text
}

func on(styles map[string]any, key string) bool {
	v, _ := styles[key].(bool)
	return v
}

func intProp(props map[string]any, key string, def int) int {
	switch v := props[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
