package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/slotsync/pkg/models"
)

var (
	dateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	liveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Italic(true)

	categoryStyles = map[models.Category]lipgloss.Style{
		models.CategoryGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		models.CategoryYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		models.CategoryRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// renderGrouped prints the grouped view, one block per date.
func renderGrouped(w io.Writer, groups []models.DateGroup, loc *time.Location) {
	if len(groups) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No time slots available"))
		return
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, dateStyle.Render(formatDate(g.Date)))
		for _, s := range g.Slots {
			fmt.Fprintln(w, "  "+renderSlot(s, loc))
		}
	}
}

// renderSlot formats one slot line: time range, category, capacity.
func renderSlot(s models.TimeSlot, loc *time.Location) string {
	style, ok := categoryStyles[s.Category]
	if !ok {
		style = mutedStyle
	}

	line := fmt.Sprintf("%s–%s  %s  %s",
		s.StartTime.In(loc).Format("15:04"),
		s.EndTime.In(loc).Format("15:04"),
		style.Render(fmt.Sprintf("● %-6s", s.Category)),
		fmt.Sprintf("%d/%d", s.Capacity.Current, s.Capacity.Max),
	)
	line += mutedStyle.Render(fmt.Sprintf("  #%d", s.ID))
	if s.HasLiveUpdate {
		line += "  " + liveStyle.Render("live "+s.LastLiveUpdate.In(loc).Format("15:04:05"))
	}
	return line
}

func formatDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, 2 January 2006")
}

// renderUpdate is the one-line summary printed for a live update.
func renderUpdate(s models.TimeSlot, loc *time.Location) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", s.Date, renderSlot(s, loc)))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
