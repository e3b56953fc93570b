// Package categorize groups cleaned venue text into fixed semantic sections
// without dropping any of it.
package categorize

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/venue-ingest/internal/cleaner"
)

var headingPattern = regexp.MustCompile(`^#{1,3}\s`)

// Block is a contiguous span of lines starting at a heading or at the start of
// the text.
type Block struct {
	Text string
}

// Assignment tags one block with the section it belongs to.
type Assignment struct {
	Block    Block
	Category string
	Score    int
	Catchall bool
}

// Partition holds one assignment per block, in block order.
type Partition struct {
	Assignments []Assignment
}

// Split cuts text into blocks at lines that start with a level 1 to 3 heading.
// Joining the blocks with newlines reproduces text exactly.
func Split(text string) []Block {
	if text == "" {
		return nil
	}
	var (
		blocks  []Block
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		if headingPattern.MatchString(line) && len(current) > 0 {
			blocks = append(blocks, Block{Text: strings.Join(current, "\n")})
			current = current[:0]
		}
		current = append(current, line)
	}
	blocks = append(blocks, Block{Text: strings.Join(current, "\n")})
	return blocks
}

// Score counts the distinct keywords of c found in text, ignoring case.
func Score(c Category, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range c.Keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Assign gives every block to the category with the strictly highest score.
// Ties go to the category declared first; a zero score goes to the catch-all.
func Assign(blocks []Block) Partition {
	p := Partition{Assignments: make([]Assignment, 0, len(blocks))}
	for _, b := range blocks {
		a := Assignment{Block: b, Catchall: true, Category: CatchAll}
		for _, c := range Categories {
			if s := Score(c, b.Text); s > a.Score {
				a.Score = s
				a.Category = c.Header
				a.Catchall = false
			}
		}
		p.Assignments = append(p.Assignments, a)
	}
	return p
}

// Blocks returns the blocks assigned to header, in their original order.
func (p Partition) Blocks(header string) []Block {
	var out []Block
	for _, a := range p.Assignments {
		if a.Category == header {
			out = append(out, a.Block)
		}
	}
	return out
}

// Render writes each non-empty category under a "## <Header>" heading in
// declaration order, followed by the catch-all section.
func (p Partition) Render() string {
	var parts []string
	emit := func(header string) {
		blocks := p.Blocks(header)
		if len(blocks) == 0 {
			return
		}
		texts := make([]string, len(blocks))
		for i, b := range blocks {
			texts[i] = b.Text
		}
		parts = append(parts, "## "+header+"\n", strings.Join(texts, "\n\n"), "")
	}
	for _, c := range Categories {
		emit(c.Header)
	}
	emit(CatchAll)
	return cleaner.Collapse(strings.Join(parts, "\n\n"))
}

// Document splits, assigns and renders text in one call.
func Document(text string) string {
	return Assign(Split(text)).Render()
}
