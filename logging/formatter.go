package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

const (
	timestampLayout        = "2006-01-02 15:04:05"
	preciseTimestampLayout = "2006-01-02 15:04:05.000"
)

var (
	componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	levelStyles    = map[logrus.Level]lipgloss.Style{
		logrus.TraceLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		logrus.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		logrus.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		logrus.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		logrus.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		logrus.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		logrus.PanicLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// TextFormatter renders entries as a single line:
//
//	2024-03-10 09:30:00 [WARN] [slotstore] Live update for unknown slot slot_id=99
type TextFormatter struct {
	Config FormatConfig
}

// Format implements logrus.Formatter.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	if !f.Config.DisableTimestamp {
		layout := timestampLayout
		if f.Config.Milliseconds {
			layout = preciseTimestampLayout
		}
		b.WriteString(entry.Time.Format(layout))
		b.WriteByte(' ')
	}

	b.WriteString(renderLevel(entry.Level))

	if component, ok := entry.Data["component"]; ok && !f.Config.DisableComponent {
		fmt.Fprintf(&b, " [%s]", componentStyle.Render(fmt.Sprint(component)))
	}

	if entry.HasCaller() {
		fmt.Fprintf(&b, " [%s:%d %s]",
			filepath.Base(entry.Caller.File), entry.Caller.Line, filepath.Base(entry.Caller.Function))
	}

	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "component" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(entry.Data[key]))
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func renderLevel(level logrus.Level) string {
	name := level.String()
	if level == logrus.WarnLevel {
		name = "warn"
	}
	label := "[" + strings.ToUpper(name) + "]"
	if style, ok := levelStyles[level]; ok {
		return style.Render(label)
	}
	return label
}

// formatValue quotes values that would otherwise be ambiguous on one line.
func formatValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case error:
		s = val.Error()
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
