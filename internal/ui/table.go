package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietdv277/bucketinv/internal/inventory"
	"github.com/vietdv277/bucketinv/internal/store"
)

// Column widths
var manifestColumnWidths = []int{32, 13, 8, 12, 19, 30}

var manifestHeaders = []string{"Bucket", "Status", "Chunks", "Records", "Updated", "Error"}

// RenderManifestTable renders bucket manifests in a styled box table
func RenderManifestTable(manifests []*store.Manifest) string {
	widths := manifestColumnWidths

	var sb strings.Builder

	// Top border
	sb.WriteString(borderLine(TopLeft, TopT, TopRight, widths))

	// Header row
	sb.WriteString(BorderStyle.Render(Vertical))
	for i, h := range manifestHeaders {
		sb.WriteString(HeaderStyle.Render(" " + padRight(h, widths[i]) + " "))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	// Header separator
	sb.WriteString(borderLine(LeftT, Cross, RightT, widths))

	// Data rows
	for _, m := range manifests {
		cells := []string{
			BucketStyle.Render(" " + padRight(m.Bucket, widths[0]) + " "),
			formatStatus(m.Status, widths[1]),
			NumberStyle.Render(" " + padLeft(fmt.Sprintf("%d", m.NextSequence), widths[2]) + " "),
			NumberStyle.Render(" " + padLeft(fmt.Sprintf("%d", m.Records), widths[3]) + " "),
			MutedStyle.Render(" " + padRight(formatTime(m), widths[4]) + " "),
			FailedStyle.Render(" " + padRight(firstLine(m.Error), widths[5]) + " "),
		}

		sb.WriteString(BorderStyle.Render(Vertical))
		for _, c := range cells {
			sb.WriteString(c)
			sb.WriteString(BorderStyle.Render(Vertical))
		}
		sb.WriteString("\n")
	}

	// Bottom border
	sb.WriteString(borderLine(BottomLeft, BottomT, BottomRight, widths))

	sb.WriteString(manifestSummary(manifests))
	sb.WriteString("\n")

	return sb.String()
}

// PrintManifestTable writes the manifest table to w
func PrintManifestTable(w io.Writer, manifests []*store.Manifest) {
	fmt.Fprint(w, RenderManifestTable(manifests))
}

// RenderRunSummary renders the outcome of an inventory run
func RenderRunSummary(s *inventory.Summary) string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Render("Run " + s.RunID))
	sb.WriteString("\n")
	sb.WriteString(MutedStyle.Render(strings.Repeat(Horizontal, 40)))
	sb.WriteString("\n")

	for _, r := range s.Completed {
		fmt.Fprintf(&sb, "%s %s  %s\n",
			CompletedStyle.Render("●"),
			BucketStyle.Render(padRight(r.Bucket, 32)),
			MutedStyle.Render(fmt.Sprintf("%d chunks, %d records, %s", r.Chunks, r.Records, r.Duration.Round(time.Millisecond))),
		)
	}
	for _, r := range s.Failed {
		fmt.Fprintf(&sb, "%s %s  %s\n",
			FailedStyle.Render("✗"),
			BucketStyle.Render(padRight(r.Bucket, 32)),
			FailedStyle.Render(errText(r.Err)),
		)
	}
	for _, name := range s.Skipped {
		fmt.Fprintf(&sb, "%s %s  %s\n",
			PendingStyle.Render("○"),
			BucketStyle.Render(padRight(name, 32)),
			MutedStyle.Render("already processed"),
		)
	}

	var parts []string
	if c := len(s.Completed); c > 0 {
		parts = append(parts, CompletedStyle.Render(fmt.Sprintf("%d completed", c)))
	}
	if c := len(s.Failed); c > 0 {
		parts = append(parts, FailedStyle.Render(fmt.Sprintf("%d failed", c)))
	}
	if c := len(s.Skipped); c > 0 {
		parts = append(parts, PendingStyle.Render(fmt.Sprintf("%d skipped", c)))
	}

	total := len(s.Completed) + len(s.Failed) + len(s.Skipped)
	summary := fmt.Sprintf("  %d buckets", total)
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	sb.WriteString(summary)
	sb.WriteString("\n")

	return sb.String()
}

func borderLine(left, mid, right string, widths []int) string {
	var sb strings.Builder
	sb.WriteString(BorderStyle.Render(left))
	for i, w := range widths {
		sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, w+2)))
		if i < len(widths)-1 {
			sb.WriteString(BorderStyle.Render(mid))
		}
	}
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
	return sb.String()
}

func formatStatus(status store.Status, width int) string {
	var indicator string
	var style lipgloss.Style

	switch status {
	case store.StatusCompleted:
		indicator = "●"
		style = CompletedStyle
	case store.StatusInProgress:
		indicator = "◐"
		style = InProgressStyle
	case store.StatusFailed:
		indicator = "✗"
		style = FailedStyle
	default:
		indicator = "○"
		style = PendingStyle
	}

	return style.Render(" " + padRight(indicator+" "+string(status), width) + " ")
}

func manifestSummary(manifests []*store.Manifest) string {
	counts := make(map[store.Status]int)
	var records int64
	for _, m := range manifests {
		counts[m.Status]++
		records += m.Records
	}

	var parts []string
	if c := counts[store.StatusCompleted]; c > 0 {
		parts = append(parts, CompletedStyle.Render(fmt.Sprintf("%d completed", c)))
	}
	if c := counts[store.StatusInProgress]; c > 0 {
		parts = append(parts, InProgressStyle.Render(fmt.Sprintf("%d in progress", c)))
	}
	if c := counts[store.StatusFailed]; c > 0 {
		parts = append(parts, FailedStyle.Render(fmt.Sprintf("%d failed", c)))
	}
	if c := counts[store.StatusPending]; c > 0 {
		parts = append(parts, PendingStyle.Render(fmt.Sprintf("%d pending", c)))
	}

	summary := fmt.Sprintf("  %d buckets, %d records", len(manifests), records)
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	return summary
}

func formatTime(m *store.Manifest) string {
	if m.UpdatedAt.IsZero() {
		return "-"
	}
	return m.UpdatedAt.Local().Format("2006-01-02 15:04:05")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return firstLine(err.Error())
}
