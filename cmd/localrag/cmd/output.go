package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/dshills/localrag-mcp/internal/app"
	"github.com/dshills/localrag-mcp/internal/indexer"
	"github.com/dshills/localrag-mcp/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// printer writes command output, styled only when w is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{w: w, styled: styled}
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) searchResults(resp *app.SearchResponse) {
	fmt.Fprintf(p.w, "%s\n", p.render(titleStyle,
		fmt.Sprintf("Found %d results for query: '%s'", len(resp.Results), resp.Query)))
	fmt.Fprintf(p.w, "%s\n\n", p.render(subtleStyle, fmt.Sprintf("Total chunks in index: %d", resp.TotalChunks)))

	for i, r := range resp.Results {
		fmt.Fprintf(p.w, "%s %s\n",
			p.render(headerStyle, fmt.Sprintf("--- Result %d", i+1)),
			p.render(scoreStyle, fmt.Sprintf("(score: %.3f) ---", r.Score)))
		fmt.Fprintf(p.w, "File: %s\n", r.FilePath)
		if r.Heading != "" {
			fmt.Fprintf(p.w, "Heading: %s\n", r.Heading)
		}
		fmt.Fprintf(p.w, "\n%s\n\n", strings.TrimSpace(r.Content))
	}
}

func (p *printer) summary(s *types.UpdateSummary) {
	fmt.Fprintln(p.w, p.render(titleStyle, "Index update complete:"))
	fmt.Fprintf(p.w, "  Added: %d\n", s.Added)
	fmt.Fprintf(p.w, "  Updated: %d\n", s.Updated)
	fmt.Fprintf(p.w, "  Deleted: %d\n", s.Deleted)
	fmt.Fprintf(p.w, "  Unchanged: %d\n", s.Unchanged)
	if s.Failed > 0 {
		fmt.Fprintln(p.w, p.render(warnStyle, fmt.Sprintf("  Failed: %d", s.Failed)))
	}
	fmt.Fprintf(p.w, "  Total chunks: %d\n", s.TotalChunks)
	fmt.Fprintf(p.w, "  API calls: %d\n", s.APICallCount)
	fmt.Fprintln(p.w, p.render(subtleStyle, fmt.Sprintf("  Took: %s", s.Duration.Round(time.Millisecond))))
}

func (p *printer) status(st *indexer.Status, backend string) {
	fmt.Fprintln(p.w, p.render(titleStyle, "Index status"))
	fmt.Fprintf(p.w, "  Docs dir: %s\n", st.DocsDir)
	fmt.Fprintf(p.w, "  Backend: %s\n", backend)
	fmt.Fprintf(p.w, "  Total files: %d\n", st.TotalFiles)
	fmt.Fprintf(p.w, "  Total chunks: %d\n", st.TotalChunks)
	if st.LastUpdate != nil {
		fmt.Fprintf(p.w, "  Last update: %s\n", st.LastUpdate.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(p.w, p.render(subtleStyle, "  Last update: never (in this process)"))
	}
}
