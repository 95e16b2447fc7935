package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

// errAborted is returned when the user declines a confirmation
var errAborted = errors.New("aborted")

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseRef reads a relation flag: an id, or "none" to clear it
func parseRef(raw string) (models.Field[int64], error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "null", "-":
		return models.Null[int64](), nil
	}
	id, err := parseID(raw)
	if err != nil {
		return models.Field[int64]{}, err
	}
	return models.Value(id), nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns w's width in cells, or 80 when w is not a terminal
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// confirm asks a yes/no question; yes skips the prompt
func (r *runtime) confirm(question string, yes bool) error {
	if yes {
		return nil
	}
	if !isTerminal(r.in) {
		return fmt.Errorf("refusing to %s without confirmation (use --yes)", question)
	}
	prompt := promptui.Prompt{
		Label:     strings.ToUpper(question[:1]) + question[1:],
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return errAborted
	}
	return nil
}

// pickStatus shows an interactive status picker
func pickStatus(current models.Status) (models.Status, error) {
	labels := make([]string, len(models.Statuses))
	cursor := 0
	for i, s := range models.Statuses {
		labels[i] = s.Label()
		if s == current {
			cursor = i
		}
	}
	prompt := promptui.Select{
		Label:     "Status",
		Items:     labels,
		CursorPos: cursor,
	}
	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("status selection cancelled: %w", err)
	}
	return models.Statuses[index], nil
}
