// Package chunker splits Markdown content into retrieval chunks while
// preserving document structure. Splits prefer header boundaries, then
// blank-line paragraph boundaries, then sentence boundaries. Chunk sizes
// are measured in whitespace-delimited words, a stable proxy for provider
// token counts.
package chunker

import (
	"regexp"
	"strings"

	"github.com/jesrav/jesktop/internal/models"
)

var (
	headerRe   = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	sentenceRe = regexp.MustCompile(`[.!?](\s+)`)
	blankRe    = regexp.MustCompile(`\n[ \t]*\n`)
)

// Chunker splits text into chunks of at most Size words, with Overlap
// words of context carried over from the previous chunk.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. size must be positive; overlap below zero is
// treated as zero.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// span is a half-open byte range into the original content.
type span struct {
	start, end int
}

// Chunk splits content for the given note. Chunk offsets always delimit
// the core span in the original content; Text carries an overlap prefix
// from the previous chunk when configured.
func (c *Chunker) Chunk(noteID, content string) []models.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var spans []span
	for _, sec := range splitAt(content, span{0, len(content)}, headerStarts(content)) {
		spans = append(spans, c.splitSection(content, sec)...)
	}

	merged := c.accumulate(content, spans)

	chunks := make([]models.Chunk, 0, len(merged))
	for i, sp := range merged {
		text := strings.TrimSpace(content[sp.start:sp.end])
		if text == "" {
			continue
		}
		if c.overlap > 0 && i > 0 {
			prev := strings.TrimSpace(content[merged[i-1].start:merged[i-1].end])
			if tail := lastWords(prev, c.overlap); tail != "" {
				text = "Previous context: " + tail + "\n\n" + text
			}
		}
		chunks = append(chunks, models.Chunk{
			NoteID: noteID,
			Seq:    len(chunks),
			Text:   text,
			Start:  sp.start,
			End:    sp.end,
		})
	}
	return chunks
}

// splitSection breaks an oversized section into paragraphs, and oversized
// paragraphs into sentences.
func (c *Chunker) splitSection(content string, sec span) []span {
	if c.words(content, sec) <= c.size {
		return []span{sec}
	}
	var out []span
	for _, para := range splitAt(content, sec, blankStarts(content, sec)) {
		if c.words(content, para) <= c.size {
			out = append(out, para)
			continue
		}
		out = append(out, splitAt(content, para, sentenceStarts(content, para))...)
	}
	return out
}

// accumulate greedily merges adjacent spans up to the size limit. A single
// span larger than the limit becomes its own chunk rather than being cut
// mid-sentence.
func (c *Chunker) accumulate(content string, spans []span) []span {
	var out []span
	var cur span
	curWords := 0
	open := false

	for _, sp := range spans {
		w := c.words(content, sp)
		if w == 0 {
			continue
		}
		if open && curWords+w > c.size {
			out = append(out, cur)
			open = false
		}
		if !open {
			cur = sp
			curWords = w
			open = true
			continue
		}
		cur.end = sp.end
		curWords += w
	}
	if open {
		out = append(out, cur)
	}
	return out
}

func (c *Chunker) words(content string, sp span) int {
	return len(strings.Fields(content[sp.start:sp.end]))
}

// headerStarts returns the byte offsets where Markdown headers begin.
func headerStarts(content string) []int {
	var out []int
	for _, m := range headerRe.FindAllStringIndex(content, -1) {
		out = append(out, m[0])
	}
	return out
}

// blankStarts returns offsets just past blank lines within sec.
func blankStarts(content string, sec span) []int {
	var out []int
	for _, m := range blankRe.FindAllStringIndex(content[sec.start:sec.end], -1) {
		out = append(out, sec.start+m[1])
	}
	return out
}

// sentenceStarts returns offsets just past sentence-ending punctuation
// within sec.
func sentenceStarts(content string, sec span) []int {
	var out []int
	for _, m := range sentenceRe.FindAllStringSubmatchIndex(content[sec.start:sec.end], -1) {
		out = append(out, sec.start+m[3]) // past the trailing whitespace
	}
	return out
}

// splitAt cuts sec at the given ascending offsets, dropping empty pieces.
func splitAt(content string, sec span, cuts []int) []span {
	var out []span
	prev := sec.start
	for _, cut := range cuts {
		if cut <= prev || cut >= sec.end {
			continue
		}
		if strings.TrimSpace(content[prev:cut]) != "" {
			out = append(out, span{prev, cut})
		}
		prev = cut
	}
	if strings.TrimSpace(content[prev:sec.end]) != "" {
		out = append(out, span{prev, sec.end})
	}
	return out
}

// lastWords returns the final n whitespace-delimited words of s.
func lastWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}
