// Package chunker splits extracted document text into bounded, overlapping
// segments suitable for embedding and retrieval.
//
// Splitting is separator-driven: the text is broken at the most specific
// boundary that keeps segments under the configured size, falling back to
// less specific separators (paragraph break, line break, sentence
// punctuation, space) and finally to a hard rune-level cut. Lengths are
// counted in runes, not bytes, so CJK text chunks the same as ASCII.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// separators in decreasing specificity. The empty string is the terminal
// rune-level fallback and must stay last.
var separators = []string{"\n\n", "\n", "。", "！", "？", ".", "!", "?", " ", ""}

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	manySpaces   = regexp.MustCompile(` {2,}`)
)

// Splitter splits text into chunks of at most ChunkSize runes, with each
// chunk after the first prefixed by the trailing ChunkOverlap runes of its
// predecessor. Split is pure: the same input always yields the same output.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// New returns a Splitter. size must be positive and overlap must be
// non-negative and strictly smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Splitter{chunkSize: size, chunkOverlap: overlap}, nil
}

// Split normalizes whitespace and splits text into ordered chunks.
// A blank input yields no chunks.
func (s *Splitter) Split(text string) []string {
	text = normalize(text)
	if text == "" {
		return nil
	}
	segs := s.splitBySeparators(text)
	segs = s.mergeShort(segs)
	return s.applyOverlap(segs)
}

// normalize collapses runs of 3+ newlines to a paragraph break, runs of 2+
// spaces to a single space, and trims surrounding whitespace.
func normalize(text string) string {
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	text = manySpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// frame is one unit of pending work: a piece of text and the index of the
// separator to try next. An explicit stack keeps the depth bound at
// len(separators) regardless of input shape.
type frame struct {
	text string
	sep  int
}

// splitBySeparators walks the separator priority list iteratively. Oversize
// segments produced at one separator level are re-queued at the next level,
// never restarting from the top, so every frame makes progress toward the
// rune-level fallback which always fits.
func (s *Splitter) splitBySeparators(text string) []string {
	var out []string
	stack := []frame{{text: text, sep: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if runeLen(f.text) <= s.chunkSize {
			if t := strings.TrimSpace(f.text); t != "" {
				out = append(out, t)
			}
			continue
		}

		segments := s.accumulate(f.text, separators[f.sep])

		// Push in reverse so segments pop in reading order.
		for i := len(segments) - 1; i >= 0; i-- {
			next := f.sep
			if runeLen(segments[i]) > s.chunkSize && f.sep+1 < len(separators) {
				next = f.sep + 1
			}
			stack = append(stack, frame{text: segments[i], sep: next})
		}
	}

	return out
}

// accumulate splits text on sep and greedily packs the pieces, each
// re-suffixed with the separator it was split on, into segments of at most
// chunkSize runes. A single piece longer than chunkSize becomes its own
// segment and is re-split by the caller at the next separator level.
func (s *Splitter) accumulate(text, sep string) []string {
	if sep == "" {
		// Terminal fallback: hard cut at the rune level.
		runes := []rune(text)
		segs := make([]string, 0, (len(runes)+s.chunkSize-1)/s.chunkSize)
		for start := 0; start < len(runes); start += s.chunkSize {
			end := min(start+s.chunkSize, len(runes))
			segs = append(segs, string(runes[start:end]))
		}
		return segs
	}

	var segs []string
	var cur strings.Builder
	curLen := 0

	for _, piece := range strings.Split(text, sep) {
		piece += sep
		pl := runeLen(piece)
		if curLen > 0 && curLen+pl > s.chunkSize {
			segs = append(segs, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(piece)
		curLen += pl
	}
	if curLen > 0 {
		segs = append(segs, cur.String())
	}

	return segs
}

// mergeShort joins adjacent segments whose combined length is under half the
// chunk size, which collapses hyper-fragmented trailing pieces left over
// from sentence-level splitting.
func (s *Splitter) mergeShort(segs []string) []string {
	var out []string
	for _, seg := range segs {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if len(out) > 0 && 2*(runeLen(out[len(out)-1])+runeLen(seg)) < s.chunkSize {
			out[len(out)-1] = out[len(out)-1] + "\n" + seg
		} else {
			out = append(out, seg)
		}
	}
	return out
}

// applyOverlap prefixes every chunk after the first with the trailing
// chunkOverlap runes of its predecessor's pre-overlap text. Tails are taken
// from the merged segments, not the overlapped results, so overlap never
// compounds across neighbors.
func (s *Splitter) applyOverlap(segs []string) []string {
	if s.chunkOverlap <= 0 || len(segs) < 2 {
		return segs
	}
	out := make([]string, len(segs))
	out[0] = segs[0]
	for i := 1; i < len(segs); i++ {
		out[i] = lastRunes(segs[i-1], s.chunkOverlap) + segs[i]
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// lastRunes returns the trailing n runes of s, or s itself when shorter.
func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
