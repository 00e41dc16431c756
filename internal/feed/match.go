package feed

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
)

// query is a search string split into tokens, with the case rule resolved.
type query struct {
	tokens        [][]rune
	caseSensitive bool
}

// parseQuery splits q on whitespace, byte order marks included. Matching
// is case-sensitive as soon as q contains an upper-case letter.
func parseQuery(q string) query {
	fields := strings.FieldsFunc(q, isSpace)
	tokens := make([][]rune, len(fields))
	for i, f := range fields {
		tokens[i] = []rune(f)
	}
	return query{
		tokens:        tokens,
		caseSensitive: strings.ToLower(q) != q,
	}
}

// Filter returns the visits whose title (or provider name) and URL contain
// every token of q at a word boundary. Order is preserved. An empty or
// blank query returns visits unchanged.
//
// Word boundaries are the start of the text, the first character after a
// run of whitespace, any non-letter character, and an upper-case ASCII
// letter following lower-case ones ("CamelCase" has boundaries at C and C).
// Only ASCII letters are treated as word characters; letters outside ASCII
// each start their own boundary.
func Filter(q string, visits []Visit) []Visit {
	parsed := parseQuery(q)
	if len(parsed.tokens) == 0 {
		return visits
	}

	out := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if parsed.matches(searchText(v)) {
			out = append(out, v)
		}
	}
	return out
}

// FilterConcurrent is Filter with the per-visit test spread across up to
// workers goroutines. Each worker writes to its own slots, so the result is
// identical to Filter. workers <= 1 runs inline.
func FilterConcurrent(ctx context.Context, q string, visits []Visit, workers int) ([]Visit, error) {
	parsed := parseQuery(q)
	if len(parsed.tokens) == 0 {
		return visits, nil
	}
	if workers <= 1 || len(visits) < 2 {
		return Filter(q, visits), nil
	}

	keep := make([]bool, len(visits))
	chunk := (len(visits) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(visits); start += chunk {
		lo, hi := start, min(start+chunk, len(visits))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				keep[i] = parsed.matches(searchText(visits[i]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Visit, 0, len(visits))
	for i, ok := range keep {
		if ok {
			out = append(out, visits[i])
		}
	}
	return out, nil
}

// searchText is the string a visit is matched against.
func searchText(v Visit) []rune {
	return []rune(strings.TrimFunc(v.DisplayTitle()+" "+v.URL, isSpace))
}

func (q query) matches(text []rune) bool {
	for _, tok := range q.tokens {
		if !q.boundaryMatch(text, tok) {
			return false
		}
	}
	return true
}

// boundaryMatch reports whether tok occurs in text starting at a word
// boundary.
func (q query) boundaryMatch(text, tok []rune) bool {
	n := len(text)
	i := 0
	for {
		if q.equalAt(text, i, tok) {
			return true
		}
		if i >= n {
			return false
		}

		c := text[i]
		i++
		if isASCIILetter(c) {
			for i < n && isLowerASCII(text[i]) {
				i++
			}
		}
		for i < n && isSpace(text[i]) {
			i++
		}

		if i >= n {
			return false
		}
	}
}

// equalAt compares text[i:i+len(tok)] with tok. A window that runs past the
// end of text never matches.
func (q query) equalAt(text []rune, i int, tok []rune) bool {
	if i+len(tok) > len(text) {
		return false
	}
	for j, r := range tok {
		c := text[i+j]
		if !q.caseSensitive {
			c = unicode.ToLower(c)
		}
		if c != r {
			return false
		}
	}
	return true
}

// isSpace is unicode.IsSpace plus U+FEFF, the byte order mark, which
// browsers' whitespace class also includes.
func isSpace(r rune) bool {
	return r == '\uFEFF' || unicode.IsSpace(r)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isLowerASCII(r rune) bool {
	return r >= 'a' && r <= 'z'
}
