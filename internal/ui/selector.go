package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vietdv277/bucketinv/pkg/types"
)

// ErrSelectionCancelled is returned when the picker is dismissed
var ErrSelectionCancelled = errors.New("selection cancelled")

const (
	listHeight = 10
	minWidth   = 60
	maxWidth   = 120
	// Fixed column widths
	colWidthMark   = 6
	colWidthRegion = 16
)

// BucketModel is the bubbletea model for picking the buckets of a run
type BucketModel struct {
	buckets      []types.Bucket
	filtered     []int // indices into buckets
	chosen       map[int]bool
	cursor       int
	offset       int // for scrolling
	search       string
	confirmed    bool
	quitting     bool
	cancelled    bool
	termWidth    int
	contentWidth int
	nameWidth    int
}

// NewBucketModel creates a picker with every bucket selected
func NewBucketModel(buckets []types.Bucket) BucketModel {
	m := BucketModel{
		buckets:   buckets,
		chosen:    make(map[int]bool, len(buckets)),
		termWidth: 80, // default
	}
	for i := range buckets {
		m.chosen[i] = true
	}
	m.filter()
	m.calculateWidths()
	return m
}

// calculateWidths computes responsive column widths based on terminal size
func (m *BucketModel) calculateWidths() {
	m.contentWidth = m.termWidth - 2
	if m.contentWidth < minWidth {
		m.contentWidth = minWidth
	}
	if m.contentWidth > maxWidth {
		m.contentWidth = maxWidth
	}

	// cursor(3) + mark + name + spacing(2) + region
	m.nameWidth = m.contentWidth - 3 - colWidthMark - 2 - colWidthRegion
	if m.nameWidth < 10 {
		m.nameWidth = 10
	}
}

// Init implements tea.Model
func (m BucketModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model
func (m BucketModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.calculateWidths()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter:
			m.quitting = true
			m.confirmed = true
			return m, tea.Quit

		case tea.KeySpace, tea.KeyTab:
			if len(m.filtered) > 0 {
				idx := m.filtered[m.cursor]
				m.chosen[idx] = !m.chosen[idx]
			}

		case tea.KeyCtrlA:
			m.setVisible(!m.allVisibleChosen())

		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}

		case tea.KeyDown:
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				if m.cursor >= m.offset+listHeight {
					m.offset = m.cursor - listHeight + 1
				}
			}

		case tea.KeyBackspace:
			if len(m.search) > 0 {
				m.search = m.search[:len(m.search)-1]
				m.filter()
			}

		case tea.KeyRunes:
			m.search += string(msg.Runes)
			m.filter()
		}
	}

	return m, nil
}

// filter narrows the list to buckets matching the search query
func (m *BucketModel) filter() {
	query := strings.ToLower(m.search)
	m.filtered = nil
	for i, b := range m.buckets {
		if query == "" ||
			strings.Contains(strings.ToLower(b.Name), query) ||
			strings.Contains(strings.ToLower(b.Region), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		if len(m.filtered) > 0 {
			m.cursor = len(m.filtered) - 1
		} else {
			m.cursor = 0
		}
	}
	m.offset = 0
}

func (m *BucketModel) allVisibleChosen() bool {
	for _, idx := range m.filtered {
		if !m.chosen[idx] {
			return false
		}
	}
	return true
}

func (m *BucketModel) setVisible(on bool) {
	for _, idx := range m.filtered {
		m.chosen[idx] = on
	}
}

// Selected returns the chosen buckets in listing order
func (m BucketModel) Selected() []types.Bucket {
	var out []types.Bucket
	for i, b := range m.buckets {
		if m.chosen[i] {
			out = append(out, b)
		}
	}
	return out
}

// View implements tea.Model
func (m BucketModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	w := m.contentWidth

	// Top border
	sb.WriteString(BorderStyle.Render(TopLeft + strings.Repeat(Horizontal, w) + TopRight))
	sb.WriteString("\n")

	// Search input
	sb.WriteString(m.boxLine(BucketStyle.Render(padRight(" > "+m.search, w))))
	sb.WriteString(m.boxLine(strings.Repeat(" ", w)))

	// Bucket list
	visibleEnd := m.offset + listHeight
	if visibleEnd > len(m.filtered) {
		visibleEnd = len(m.filtered)
	}
	for i := m.offset; i < visibleEnd; i++ {
		sb.WriteString(m.renderRow(i))
	}

	// Fill remaining lines if list is short
	for i := visibleEnd - m.offset; i < listHeight; i++ {
		if i == 0 && len(m.filtered) == 0 {
			sb.WriteString(m.boxLine(MutedStyle.Render(padRight("   No buckets found", w))))
			continue
		}
		sb.WriteString(m.boxLine(strings.Repeat(" ", w)))
	}

	// Bottom border
	sb.WriteString(BorderStyle.Render(BottomLeft + strings.Repeat(Horizontal, w) + BottomRight))
	sb.WriteString("\n")

	sb.WriteString(m.renderStatusBar())

	return sb.String()
}

func (m BucketModel) boxLine(content string) string {
	return BorderStyle.Render(Vertical) + content + BorderStyle.Render(Vertical) + "\n"
}

func (m BucketModel) renderRow(pos int) string {
	idx := m.filtered[pos]
	b := m.buckets[idx]

	var line strings.Builder
	plainWidth := 0

	// Cursor indicator (3 chars)
	if pos == m.cursor {
		line.WriteString(CursorStyle.Render(" > "))
	} else {
		line.WriteString("   ")
	}
	plainWidth += 3

	mark := "[ ]"
	if m.chosen[idx] {
		mark = "[x]"
	}
	line.WriteString(CompletedStyle.Render(padRight(mark, colWidthMark)))
	plainWidth += colWidthMark

	line.WriteString(BucketStyle.Render(padRight(b.Name, m.nameWidth)))
	line.WriteString("  ")
	plainWidth += m.nameWidth + 2

	region := b.Region
	if region == "" {
		region = "-"
	}
	line.WriteString(RegionStyle.Render(padRight(region, colWidthRegion)))
	plainWidth += colWidthRegion

	if plainWidth < m.contentWidth {
		line.WriteString(strings.Repeat(" ", m.contentWidth-plainWidth))
	}

	return m.boxLine(line.String())
}

func (m BucketModel) renderStatusBar() string {
	w := m.contentWidth + 2 // include border width for status bar

	countInfo := fmt.Sprintf("  %d/%d selected", len(m.Selected()), len(m.buckets))
	hintsPlain := "[Space:toggle] [Ctrl+A:all] [Enter:run] [Esc:cancel]"

	padding := w - runewidth.StringWidth(countInfo) - runewidth.StringWidth(hintsPlain)

	var sb strings.Builder
	sb.WriteString(countInfo)
	if padding > 0 {
		sb.WriteString(strings.Repeat(" ", padding))
	}
	sb.WriteString(HintStyle.Render(hintsPlain))
	sb.WriteString("\n")

	return sb.String()
}

// SelectBuckets displays an interactive picker and returns the buckets to
// list. It matches inventory.SelectFunc.
func SelectBuckets(ctx context.Context, buckets []types.Bucket) ([]types.Bucket, error) {
	if len(buckets) == 0 {
		return nil, nil
	}

	p := tea.NewProgram(NewBucketModel(buckets), tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running selector: %w", err)
	}

	result := finalModel.(BucketModel)
	if result.cancelled || !result.confirmed {
		return nil, ErrSelectionCancelled
	}

	return result.Selected(), nil
}
