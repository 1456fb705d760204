package chunker

import (
	"strconv"
	"strings"

	"github.com/aaryapoyrekar/isro-bot/internal/domain"
)

// DefaultSeparators orders split points from coarsest to finest. The trailing
// empty string means "split anywhere" and is the last resort for unbroken runs.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits a knowledge snapshot into chunks suitable for retrieval
// indexing.
type Chunker interface {
	Chunk(snapshot domain.KnowledgeSnapshot) ([]domain.Chunk, error)
}

// RecursiveChunker splits text on the coarsest separator first, re-splitting
// oversized pieces with progressively finer separators, then merges adjacent
// pieces into chunks up to chunkSize with an overlap prefix carried from the
// previous chunk.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

// New creates a RecursiveChunker. A non-positive chunkSize falls back to the
// documented default; overlap is clamped below chunkSize.
func New(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
}

// piece is a contiguous slice of the source text. Concatenating all pieces in
// order reproduces the source exactly.
type piece struct {
	text   string
	offset int
}

// Chunk splits the snapshot text into overlapping chunks. Empty input yields
// an empty sequence, not an error.
func (c *RecursiveChunker) Chunk(snapshot domain.KnowledgeSnapshot) ([]domain.Chunk, error) {
	text := snapshot.Text
	if text == "" {
		return nil, nil
	}
	pieces := c.split(text, 0, c.separators)

	var chunks []domain.Chunk
	i := 0
	idx := 0
	for i < len(pieces) {
		spanStart := pieces[i].offset
		spanEnd := spanStart + len(pieces[i].text)
		// Overlap carried from the previous chunk. Shortened when the first
		// piece alone would push the chunk past the size bound.
		lead := 0
		if idx > 0 && c.overlap > 0 {
			lead = c.overlap
			if spanEnd-spanStart+lead > c.chunkSize {
				lead = c.chunkSize - (spanEnd - spanStart)
			}
			if lead < 0 {
				lead = 0
			}
			if lead > spanStart {
				lead = spanStart
			}
		}
		i++
		for i < len(pieces) && spanEnd+len(pieces[i].text)-(spanStart-lead) <= c.chunkSize {
			spanEnd += len(pieces[i].text)
			i++
		}
		start := spanStart - lead
		chunks = append(chunks, domain.Chunk{
			SourceDocID: snapshot.ID,
			ChunkID:     snapshot.ID + ":" + strconv.Itoa(idx),
			Text:        text[start:spanEnd],
			StartOffset: start,
			Index:       idx,
		})
		idx++
	}
	return chunks, nil
}

// split recursively breaks text into pieces no longer than chunkSize, trying
// coarser separators before finer ones. Separators stay attached to the
// preceding piece so that concatenation reproduces the input.
func (c *RecursiveChunker) split(text string, offset int, separators []string) []piece {
	if len(text) <= c.chunkSize {
		return []piece{{text: text, offset: offset}}
	}
	if len(separators) == 0 {
		separators = []string{""}
	}
	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return c.sliceRaw(text, offset)
	}
	if !strings.Contains(text, sep) {
		return c.split(text, offset, rest)
	}

	parts := strings.Split(text, sep)
	var out []piece
	pos := 0
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p == "" {
			continue
		}
		if len(p) > c.chunkSize {
			out = append(out, c.split(p, offset+pos, rest)...)
		} else {
			out = append(out, piece{text: p, offset: offset + pos})
		}
		pos += len(p)
	}
	return out
}

// sliceRaw cuts an unbroken run at a stride that leaves room for the overlap
// prefix, so boundary context stays retrievable from either side.
func (c *RecursiveChunker) sliceRaw(text string, offset int) []piece {
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}
	var out []piece
	for i := 0; i < len(text); i += step {
		end := i + step
		if end > len(text) {
			end = len(text)
		}
		out = append(out, piece{text: text[i:end], offset: offset + i})
	}
	return out
}
