package search

import (
	"slices"
	"strings"

	"media-catalog/internal/bloom"
	"media-catalog/internal/paths"
)

// Selector restricts a search to a folder, optionally its whole subtree,
// and optionally to names matching a wildcard.
type Selector struct {
	Folder    paths.Folder
	Recursive bool
	Wildcard  string
}

// Matches reports whether the file name in folder is selected.
func (s Selector) Matches(folder paths.Folder, name string) bool {
	if !s.Folder.Contains(folder, s.Recursive) {
		return false
	}
	return s.Wildcard == "" || paths.Match(s.Wildcard, name)
}

func (s Selector) String() string {
	text := s.Folder.Text()
	sep := s.Folder.Separator()
	if s.Recursive {
		if !s.Folder.IsRoot() {
			text += sep
		}
		text += "**"
	}
	if s.Wildcard != "" {
		if !strings.HasSuffix(text, "/") && !strings.HasSuffix(text, "\\") {
			text += sep
		}
		text += s.Wildcard
	}
	return text
}

func compareSelectors(a, b Selector) int {
	if c := a.Folder.Compare(b.Folder); c != 0 {
		return c
	}
	if a.Recursive != b.Recursive {
		if a.Recursive {
			return 1
		}
		return -1
	}
	return strings.Compare(paths.Fold(a.Wildcard), paths.Fold(b.Wildcard))
}

// Search is a parsed query: an ordered list of terms, zero or more folder
// selectors and an optional related file for similarity searches.
type Search struct {
	Terms     []Term
	Selectors []Selector
	Related   paths.File
	// Text is the query the search was parsed from.
	Text string
}

// IsEmpty reports whether the search has nothing to match on.
func (s *Search) IsEmpty() bool {
	return s == nil || len(s.Terms) == 0 && len(s.Selectors) == 0 && s.Related.IsEmpty()
}

// HasRelated reports whether the search looks for items similar to a file.
func (s *Search) HasRelated() bool {
	return s != nil && !s.Related.IsEmpty()
}

// IsBrowse reports whether the search just lists one location.
func (s *Search) IsBrowse() bool {
	return s != nil && len(s.Terms) == 0 && len(s.Selectors) == 1 && s.Related.IsEmpty()
}

// Selects reports whether a file passes the selectors. A search without
// selectors selects everything.
func (s *Search) Selects(folder paths.Folder, name string) bool {
	if len(s.Selectors) == 0 {
		return true
	}
	for _, sel := range s.Selectors {
		if sel.Matches(folder, name) {
			return true
		}
	}
	return false
}

// SelectsFolder reports whether any file in folder could pass the
// selectors.
func (s *Search) SelectsFolder(folder paths.Folder) bool {
	if len(s.Selectors) == 0 {
		return true
	}
	for _, sel := range s.Selectors {
		if sel.Folder.Contains(folder, sel.Recursive) {
			return true
		}
	}
	return false
}

// Bloom returns the bits a file's signature must carry for the search to
// possibly match it.
//
// Only positive media type, duplicate and date terms contribute. A search
// that uses OR anywhere contributes nothing, because a required bit taken
// from one side of an OR could reject files matched by the other side.
func (s *Search) Bloom() bloom.Bits {
	for _, t := range s.Terms {
		if t.Modifiers.Op == OpOr {
			return 0
		}
	}
	var b bloom.Bits
	for _, t := range s.Terms {
		if !t.Modifiers.Positive {
			continue
		}
		switch t.Kind {
		case KindMediaType:
			b |= bloom.Group(t.MediaType())
		case KindDuplicate:
			b |= bloom.HasDuplicates
		case KindDate:
			b |= t.Key.Definition().Bloom
		}
	}
	return b
}

// Normalize returns a copy with terms and selectors sorted and
// de-duplicated. Two searches with the same meaning normalize to equal
// values regardless of input order. Grouping depends on term order, so the
// result is only meant for comparison, not for matching grouped queries.
func (s *Search) Normalize() *Search {
	c := &Search{
		Terms:     slices.Clone(s.Terms),
		Selectors: slices.Clone(s.Selectors),
		Related:   s.Related,
		Text:      s.Text,
	}
	slices.SortStableFunc(c.Terms, Term.Compare)
	c.Terms = slices.CompactFunc(c.Terms, Term.Equal)
	slices.SortStableFunc(c.Selectors, compareSelectors)
	c.Selectors = slices.CompactFunc(c.Selectors, func(a, b Selector) bool {
		return compareSelectors(a, b) == 0
	})
	return c
}

// Equal reports whether two searches have the same terms, selectors and
// related file in the same order.
func (s *Search) Equal(o *Search) bool {
	if !s.Related.Equal(o.Related) {
		return false
	}
	return slices.EqualFunc(s.Terms, o.Terms, Term.Equal) &&
		slices.EqualFunc(s.Selectors, o.Selectors, func(a, b Selector) bool {
			return compareSelectors(a, b) == 0
		})
}

// String renders the search as query text.
func (s *Search) String() string {
	var parts []string
	for _, sel := range s.Selectors {
		parts = append(parts, quoteIfNeeded(sel.String()))
	}
	if !s.Related.IsEmpty() {
		parts = append(parts, "related:"+quoteIfNeeded(s.Related.Text()))
	}
	for _, t := range s.Terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}
