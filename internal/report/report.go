// Package report prints ranked recommendations for people.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/jobmatch/internal/textnorm"
	"github.com/dshills/jobmatch/pkg/types"
)

// PreviewLength is how many characters of a description are printed.
const PreviewLength = 200

// Printer writes results in the console format. Styling is applied only
// when the destination is a terminal.
type Printer struct {
	w      io.Writer
	header lipgloss.Style
	label  lipgloss.Style
	score  lipgloss.Style
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  r.NewStyle().Foreground(lipgloss.Color("8")),
		score:  r.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

// Print writes one block per result followed by a blank line.
func (p *Printer) Print(results []types.RankedResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(p.w, "No recommendations.")
		return err
	}

	for _, res := range results {
		if err := p.printOne(res); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printOne(res types.RankedResult) error {
	l := res.Listing
	if l == nil {
		l = &types.JobListing{}
	}

	lines := []string{
		p.header.Render(fmt.Sprintf("Recommendation %d:", res.Rank)),
		p.label.Render("Title:") + " " + l.Title,
		p.label.Render("Company:") + " " + l.Company,
		p.label.Render("Location:") + " " + l.Location,
		p.label.Render("Description:") + " " + Preview(textnorm.Normalize(l.Description, textnorm.CacheKey), PreviewLength) + "...",
		p.label.Render("Similarity Score:") + " " + p.score.Render(fmt.Sprintf("%.4f", res.Score)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

// Preview returns the first n characters of s.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
