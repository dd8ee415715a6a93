package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/hassio-snapshots/internal/hassio"
)

const dateLayout = "2006-01-02 15:04"

type column struct {
	title string
	width int
}

var snapshotColumns = []column{
	{"", 2},
	{"SLUG", 10},
	{"NAME", 28},
	{"DATE", 17},
	{"TYPE", 8},
	{"SIZE", 10},
	{"", 2},
}

// RenderSnapshotTable renders snapshots newest first. Retained snapshots are
// marked with RetainedMarker and protected ones with ProtectMarker.
func RenderSnapshotTable(snapshots []*hassio.Snapshot) string {
	if len(snapshots) == 0 {
		return MutedStyle.Render("No snapshots")
	}

	sorted := make([]*hassio.Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date().After(sorted[j].Date())
	})

	var b strings.Builder
	b.WriteString(renderRow(TableHeaderStyle, titles()))
	b.WriteString("\n")

	for _, s := range sorted {
		marker := " "
		style := TableCellStyle
		if s.Retained() {
			marker = RetainedMarker
			style = RetainedStyle
		}
		lock := ""
		if s.Protected() {
			lock = ProtectMarker
		}
		b.WriteString(renderRow(style, []string{
			marker,
			s.Slug(),
			truncate(s.Name(), 27),
			formatDate(s),
			s.Type(),
			FormatSize(s.Size()),
			lock,
		}))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func titles() []string {
	out := make([]string, len(snapshotColumns))
	for i, c := range snapshotColumns {
		out[i] = c.title
	}
	return out
}

func renderRow(style lipgloss.Style, cells []string) string {
	rendered := make([]string, len(cells))
	for i, cell := range cells {
		rendered[i] = style.Width(snapshotColumns[i].width).Render(cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func formatDate(s *hassio.Snapshot) string {
	d := s.Date()
	if d.IsZero() {
		return "-"
	}
	return d.Local().Format(dateLayout)
}

// FormatSize renders a Supervisor size, which is reported in megabytes
func FormatSize(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.2f GB", mb/1024)
	}
	return fmt.Sprintf("%.1f MB", mb)
}

// RenderSnapshotDetails renders one snapshot's info, including its add-ons and folders
func RenderSnapshotDetails(s *hassio.Snapshot) string {
	details := map[string]string{
		"Slug":      s.Slug(),
		"Name":      s.Name(),
		"Date":      formatDate(s),
		"Type":      s.Type(),
		"Size":      FormatSize(s.Size()),
		"Protected": yesNo(s.Protected()),
		"Retained":  yesNo(s.Retained()),
	}
	info := s.Info()
	if v := listField(info, "folders"); v != "" {
		details["Folders"] = v
	}
	if v := listField(info, "addons"); v != "" {
		details["Add-ons"] = v
	}
	if v, ok := info["homeassistant"].(string); ok && v != "" {
		details["Home Assistant"] = v
	}
	return NewSuccessResult(s.Name(), details).Render()
}

// RenderInfo renders Supervisor data as sorted key/value lines. Nested
// values are shown as compact JSON.
func RenderInfo(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, ResultKeyStyle.Render(k+":")+" "+ResultValueStyle.Render(formatValue(data[k])))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case bool, float64, int:
		return fmt.Sprint(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}

// listField joins the names of entries in a snapshot list field. Entries may
// be plain strings or objects with a slug or name.
func listField(info map[string]any, key string) string {
	raw, ok := info[key].([]any)
	if !ok || len(raw) == 0 {
		return ""
	}
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			names = append(names, v)
		case map[string]any:
			if slug, ok := v["slug"].(string); ok {
				names = append(names, slug)
			} else if name, ok := v["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return strings.Join(names, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
