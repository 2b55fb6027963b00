// Package chunker splits raw text into overlapping segments for embedding.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidChunkConfig is returned for a non-positive size or an overlap outside [0, size).
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// DefaultSeparators in priority order: paragraphs, lines, sentences, words.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Span is a half-open byte range [Start, End) into the input text.
type Span struct {
	Start int
	End   int
}

// Splitter is a recursive character splitter. Separators stay attached to the
// end of the piece they terminate, so the chunks cover the input losslessly.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter validates the sizes, measured in runes.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunkConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunkConfig, overlap, chunkSize)
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}, nil
}

// Chunk returns the chunk texts in document order.
func (s *Splitter) Chunk(text string) []string {
	spans := s.Split(text)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = text[sp.Start:sp.End]
	}
	return out
}

// Split returns chunk spans. The first starts at 0, the last ends at len(text),
// and each chunk starts within the previous one (the shared part is the overlap).
func (s *Splitter) Split(text string) []Span {
	if text == "" {
		return nil
	}
	units := s.pieces(text, Span{0, len(text)}, 0, nil)
	return s.merge(text, units)
}

// pieces breaks sp into units no longer than chunkSize, trying each separator in turn.
// A unit that still exceeds chunkSize after the last separator is kept whole.
func (s *Splitter) pieces(text string, sp Span, level int, out []Span) []Span {
	seg := text[sp.Start:sp.End]
	if utf8.RuneCountInString(seg) <= s.chunkSize || level >= len(s.separators) {
		return append(out, sp)
	}
	sep := s.separators[level]
	if !strings.Contains(seg, sep) {
		return s.pieces(text, sp, level+1, out)
	}

	pos := sp.Start
	for pos < sp.End {
		end := sp.End
		if idx := strings.Index(text[pos:sp.End], sep); idx >= 0 {
			end = pos + idx + len(sep)
		}
		out = s.pieces(text, Span{pos, end}, level+1, out)
		pos = end
	}
	return out
}

// merge greedily packs consecutive units into chunks. When a chunk is full,
// trailing units totalling at most overlap runes carry into the next chunk.
func (s *Splitter) merge(text string, units []Span) []Span {
	var (
		chunks []Span
		window []Span
		sizes  []int
		total  int
	)
	for _, u := range units {
		n := utf8.RuneCountInString(text[u.Start:u.End])
		if len(window) > 0 && total+n > s.chunkSize {
			chunks = append(chunks, Span{window[0].Start, window[len(window)-1].End})
			for len(window) > 0 && (total > s.overlap || total+n > s.chunkSize) {
				total -= sizes[0]
				window, sizes = window[1:], sizes[1:]
			}
		}
		window = append(window, u)
		sizes = append(sizes, n)
		total += n
	}
	if len(window) > 0 {
		chunks = append(chunks, Span{window[0].Start, window[len(window)-1].End})
	}
	return chunks
}
