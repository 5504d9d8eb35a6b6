package chunker

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// Default limits, in characters.
const (
	DefaultMaxChars = 3000
	DefaultMinChars = 50
)

// sentenceDelimiters are the cut candidates used by SplitOversized.
var sentenceDelimiters = []string{"。", ".", "\n\n", "\n"}

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// Config holds chunk size limits and the heading depths used as split points.
type Config struct {
	MaxChars      int
	MinChars      int
	HeadingLevels []int
}

// Chunker splits documents into chunks. It is stateless after construction
// and safe for concurrent use.
type Chunker struct {
	cfg     Config
	levels  map[int]bool
	heading *regexp.Regexp
}

// New creates a Chunker. Zero limits fall back to the defaults and an empty
// heading set means depths 1-3.
func New(cfg Config) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = DefaultMinChars
	}
	if len(cfg.HeadingLevels) == 0 {
		cfg.HeadingLevels = []int{1, 2, 3}
	}

	levels := make(map[int]bool, len(cfg.HeadingLevels))
	maxDepth := 1
	for _, lvl := range cfg.HeadingLevels {
		levels[lvl] = true
		if lvl > maxDepth {
			maxDepth = lvl
		}
	}

	return &Chunker{
		cfg:     cfg,
		levels:  levels,
		heading: regexp.MustCompile(fmt.Sprintf(`(?m)^(#{1,%d})[ \t]+(.+)$`, maxDepth)),
	}
}

// ChunkFile chunks content using the variant selected by the file extension.
func (c *Chunker) ChunkFile(filePath, content string) []types.Chunk {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".md", ".markdown":
		return c.ChunkMarkdown(content)
	default:
		return c.ChunkText(content)
	}
}

type section struct {
	heading string
	content string
}

// ChunkMarkdown splits markdown at retained heading lines.
func (c *Chunker) ChunkMarkdown(content string) []types.Chunk {
	type headingPos struct {
		pos  int
		text string
	}

	var headings []headingPos
	for _, m := range c.heading.FindAllStringSubmatchIndex(content, -1) {
		depth := m[3] - m[2]
		if !c.levels[depth] {
			continue
		}
		headings = append(headings, headingPos{
			pos:  m[0],
			text: strings.TrimRight(content[m[0]:m[1]], " \t\r"),
		})
	}

	var sections []section
	if len(headings) == 0 {
		sections = append(sections, section{content: content})
	} else {
		if headings[0].pos > 0 {
			sections = append(sections, section{content: content[:headings[0].pos]})
		}
		for i, h := range headings {
			end := len(content)
			if i+1 < len(headings) {
				end = headings[i+1].pos
			}
			sections = append(sections, section{heading: h.text, content: content[h.pos:end]})
		}
	}

	return c.build(sections)
}

// ChunkText splits plain text into paragraphs at blank lines.
func (c *Chunker) ChunkText(content string) []types.Chunk {
	paragraphs := paragraphBreak.Split(content, -1)
	sections := make([]section, 0, len(paragraphs))
	for _, p := range paragraphs {
		sections = append(sections, section{content: p})
	}
	return c.build(sections)
}

// build splits every section, drops undersized pieces and assigns dense indices.
func (c *Chunker) build(sections []section) []types.Chunk {
	chunks := make([]types.Chunk, 0, len(sections))
	for _, s := range sections {
		text := strings.TrimSpace(s.content)
		if text == "" {
			continue
		}
		for _, piece := range SplitOversized(text, c.cfg.MaxChars) {
			piece = strings.TrimSpace(piece)
			if utf8.RuneCountInString(piece) < c.cfg.MinChars {
				continue
			}
			chunks = append(chunks, types.Chunk{
				Content:    piece,
				ChunkIndex: len(chunks),
				Heading:    s.heading,
			})
		}
	}
	return chunks
}

// SplitOversized cuts text into pieces of at most maxChars characters,
// preferring sentence boundaries. Text that already fits is returned unsplit.
func SplitOversized(text string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var pieces []string
	remaining := []rune(text)
	for len(remaining) > 0 {
		if len(remaining) <= maxChars {
			pieces = append(pieces, string(remaining))
			break
		}

		window := string(remaining[:maxChars])
		cut := lastBoundary(window)
		if cut > 0 {
			pieces = append(pieces, string(remaining[:cut]))
			remaining = trimLeftSpace(remaining[cut:])
			continue
		}

		pieces = append(pieces, string(remaining[:maxChars]))
		remaining = remaining[maxChars:]
	}
	return pieces
}

// lastBoundary returns the rune offset just past the latest delimiter in
// window, or 0 when the window holds none.
func lastBoundary(window string) int {
	best := -1
	for _, d := range sentenceDelimiters {
		if i := strings.LastIndex(window, d); i >= 0 && i+len(d) > best {
			best = i + len(d)
		}
	}
	if best < 0 {
		return 0
	}
	return utf8.RuneCountInString(window[:best])
}

func trimLeftSpace(r []rune) []rune {
	i := 0
	for i < len(r) && unicode.IsSpace(r[i]) {
		i++
	}
	return r[i:]
}
