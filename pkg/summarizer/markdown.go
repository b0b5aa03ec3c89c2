package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Recording Summary\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Session\n\n")
	table(&b, [][2]string{
		{"Session", s.Session.ID},
		{"State", s.Session.State},
		{"Started", formatTime(s.Session.StartedAt)},
		{"Elapsed", s.Session.Elapsed().Round(time.Second).String()},
	})
	if s.Session.Reason != "" {
		fmt.Fprintf(&b, "\n> Last error: %s\n", s.Session.Reason)
	}

	b.WriteString("\n## Settings\n\n")
	table(&b, [][2]string{
		{"Source", s.Settings.Source},
		{"Resolution", fmt.Sprintf("%dx%d @ %d fps", s.Settings.Width, s.Settings.Height, s.Settings.FPS)},
		{"Input format", s.Settings.Format},
		{"Quality", s.Settings.Quality},
		{"Speed", s.Settings.Speed},
		{"Hardware acceleration", s.Settings.HWAccel},
	})

	b.WriteString("\n## Clips\n\n")
	if len(s.Clips) == 0 {
		b.WriteString("No clips recorded.\n")
	} else {
		b.WriteString("| # | Frames | Duration |\n|---|---:|---:|\n")
		for _, c := range s.Clips {
			fmt.Fprintf(&b, "| %d | %d | %s |\n", c.ID, c.Frames, formatSeconds(c.Duration))
		}
		fmt.Fprintf(&b, "| **Total** | %d | %s |\n", s.TotalFrames(), formatSeconds(s.TotalDuration()))
	}

	b.WriteString("\n## Capture\n\n")
	table(&b, [][2]string{
		{"Frames routed", fmt.Sprint(s.Capture.Routed)},
		{"Written to encoder", fmt.Sprint(s.Capture.Written)},
		{"Discarded while idle", fmt.Sprint(s.Capture.Discarded)},
		{"Dropped (recorder blocked)", fmt.Sprint(s.Capture.Dropped)},
		{"Preview skipped", fmt.Sprint(s.Capture.PreviewSkipped)},
		{"Out of order", fmt.Sprint(s.Capture.OutOfOrder)},
	})

	b.WriteString("\n## Video\n\n")
	if s.Video.Path == "" {
		b.WriteString("Not saved.\n")
	} else {
		rows := [][2]string{
			{"Output", s.Video.Path},
			{"Duration", formatSeconds(s.Video.Duration)},
			{"File size", formatBytes(s.Video.FileSize)},
		}
		if s.Video.Codec != "" {
			rows = append(rows, [2]string{"Codec", s.Video.Codec})
		}
		table(&b, rows)
	}

	return b.String()
}

func table(b *strings.Builder, rows [][2]string) {
	b.WriteString("| Item | Value |\n|---|---|\n")
	for _, r := range rows {
		v := r[1]
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(b, "| %s | %s |\n", r[0], strings.ReplaceAll(v, "|", "\\|"))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2f s", d.Seconds())
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit*unit:
		return fmt.Sprintf("%.2f GB", float64(n)/(unit*unit*unit))
	case n >= unit*unit:
		return fmt.Sprintf("%.2f MB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%.2f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
