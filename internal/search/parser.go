package search

import (
	"strconv"
	"strings"

	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
)

// PathResolver tells the parser which text names an existing folder or
// file. A nil resolver disables path parsing.
type PathResolver interface {
	FolderExists(folder paths.Folder) bool
	FileExists(file paths.File) bool
}

// isAbsolute reports whether text looks like an absolute path.
func isAbsolute(text string) bool {
	if strings.HasPrefix(text, "/") || strings.HasPrefix(text, `\\`) {
		return true
	}
	return len(text) >= 3 && text[1] == ':' && (text[2] == '\\' || text[2] == '/') && isLetterByte(text[0])
}

func isLetterByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func unquote(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			return text[1 : len(text)-1]
		}
	}
	return text
}

// splitRecursive strips a trailing "\**" or "/**".
func splitRecursive(text string) (string, bool) {
	for _, suffix := range []string{"/**", `\**`} {
		if strings.HasSuffix(text, suffix) {
			return strings.TrimSuffix(text, suffix), true
		}
	}
	return text, false
}

// ParsePath resolves text naming an existing folder (optionally followed by
// "\**" for the whole subtree) or an existing file. It returns an empty
// search when neither resolves.
func ParsePath(text string, r PathResolver) *Search {
	s := &Search{Text: text}
	if r == nil {
		return s
	}
	text = unquote(text)
	if !isAbsolute(text) {
		return s
	}

	base, recursive := splitRecursive(text)
	if base == "" || (len(base) == 2 && base[1] == ':') {
		base += "/"
	}
	if paths.IsWildcard(base) {
		return s
	}
	if folder := paths.NewFolder(base); r.FolderExists(folder) {
		s.Selectors = []Selector{{Folder: folder, Recursive: recursive}}
		return s
	}
	if recursive {
		return s
	}
	if file := paths.ParseFile(text); !file.IsEmpty() && r.FileExists(file) {
		s.Selectors = []Selector{{Folder: file.Folder(), Wildcard: file.Name()}}
	}
	return s
}

// parseSelector builds a selector from a bare wildcarded path such as
// "C:\Photos\**", "/media/**/*.jpg" or "/media/*.png".
func parseSelector(text string) (Selector, bool) {
	text = unquote(text)
	if !isAbsolute(text) || !paths.IsWildcard(text) || strings.ContainsAny(text, "\t\n") {
		return Selector{}, false
	}
	if base, ok := splitRecursive(text); ok && !paths.IsWildcard(base) {
		return Selector{Folder: paths.NewFolder(orRoot(base)), Recursive: true}, true
	}

	i := strings.LastIndexAny(text, `/\`)
	dir, name := text[:i], text[i+1:]
	recursive := false
	if base, ok := splitRecursive(dir); ok {
		dir, recursive = base, true
	}
	if paths.IsWildcard(dir) {
		return Selector{}, false
	}
	return Selector{Folder: paths.NewFolder(orRoot(dir)), Recursive: recursive, Wildcard: name}, true
}

func orRoot(dir string) string {
	if dir == "" || (len(dir) == 2 && dir[1] == ':') {
		return dir + "/"
	}
	return dir
}

// Parse builds a search from query text. It never fails: text it cannot
// classify becomes free-text terms.
func Parse(text string, r PathResolver) *Search {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &Search{Text: text}
	}
	if s := ParsePath(trimmed, r); !s.IsEmpty() {
		return s
	}
	if sel, ok := parseSelector(trimmed); ok {
		return &Search{Selectors: []Selector{sel}, Text: text}
	}

	p := &parser{s: &Search{Text: text}, resolver: r}
	for _, part := range joinDateWords(Tokenize(trimmed)) {
		p.part(part)
	}
	return p.s
}

// ParseFromInput parses text typed or pasted by a user. Surrounding quotes
// and a file:// prefix are removed before parsing.
func ParseFromInput(text string, r PathResolver) *Search {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToLower(trimmed), "file://") {
		trimmed = trimmed[len("file://"):]
		if len(trimmed) > 3 && trimmed[0] == '/' && trimmed[2] == ':' {
			trimmed = trimmed[1:]
		}
	}
	if unq := unquote(trimmed); isAbsolute(unq) {
		trimmed = unq
	}
	s := Parse(trimmed, r)
	s.Text = text
	return s
}

// maxDateWords bounds how many fragments one written-out date may span, as
// in "25th of december 2023".
const maxDateWords = 4

// joinDateWords merges runs of fragments that together spell one date,
// such as "dec 25 2023" or "created: December 25, 2023", into a single
// fragment. The first fragment may carry modifiers and a date scope; the
// rest must be bare words joined by AND with no grouping except a closing
// parenthesis on the last.
func joinDateWords(parts []Part) []Part {
	out := make([]Part, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		n := dateRun(parts[i:])
		if n < 2 {
			out = append(out, parts[i])
			continue
		}
		joined := parts[i]
		words := make([]string, n)
		for j := range n {
			words[j] = parts[i+j].Term
		}
		joined.Term = strings.Join(words, " ")
		joined.Modifiers.EndGroup = parts[i+n-1].Modifiers.EndGroup
		out = append(out, joined)
		i += n - 1
	}
	return out
}

// dateRun returns the length of the longest date run at the start of
// parts, or 0.
func dateRun(parts []Part) int {
	first := parts[0]
	if first.Literal || first.Modifiers.EndGroup != 0 || !isDateWord(first.Term) {
		return 0
	}
	if first.HasScope() {
		key, ok := props.Lookup(strings.ToLower(strings.TrimSpace(first.Scope)))
		if !ok || key.Kind() != props.KindDate {
			return 0
		}
	}

	limit := 1
	for limit < len(parts) && limit < maxDateWords {
		next := parts[limit]
		mods := next.Modifiers
		mods.EndGroup = 0
		if next.Literal || next.HasScope() || mods != DefaultModifiers() || !isDateWord(next.Term) {
			break
		}
		limit++
		if next.Modifiers.EndGroup != 0 {
			break
		}
	}

	for n := limit; n >= 2; n-- {
		words := make([]string, n)
		for j := range n {
			words[j] = parts[j].Term
		}
		if _, ok := parseWordDate(strings.Join(words, " ")); ok {
			return n
		}
	}
	return 0
}

type parser struct {
	s        *Search
	resolver PathResolver

	// group markers and operators of fragments that produced no term are
	// carried to a neighbour so that nesting stays positional
	carryBegin int
	carryOp    LogicalOp
}

func (p *parser) add(t Term) {
	t.Modifiers.BeginGroup += p.carryBegin
	if p.carryOp == OpOr {
		t.Modifiers.Op = OpOr
	}
	p.carryBegin, p.carryOp = 0, OpAnd
	p.s.Terms = append(p.s.Terms, t)
}

func (p *parser) drop(part Part) {
	p.carryBegin += part.Modifiers.BeginGroup
	if part.Modifiers.Op == OpOr {
		p.carryOp = OpOr
	}
	if n := len(p.s.Terms); n > 0 {
		p.s.Terms[n-1].Modifiers.EndGroup += part.Modifiers.EndGroup
	}
}

func (p *parser) part(part Part) {
	term := part.Term
	if !part.Literal {
		term = strings.TrimSpace(term)
	}
	if term == "" {
		p.drop(part)
		return
	}

	if !part.HasScope() && !part.Literal && p.resolver != nil && isAbsolute(term) {
		if sel, ok := parseSelector(term); ok {
			p.s.Selectors = append(p.s.Selectors, sel)
			p.drop(part)
			return
		}
		if base, recursive := splitRecursive(term); p.resolver.FolderExists(paths.NewFolder(base)) {
			p.s.Selectors = append(p.s.Selectors, Selector{Folder: paths.NewFolder(base), Recursive: recursive})
			p.drop(part)
			return
		}
	}

	if t, ok := p.parsePart(part, term); ok {
		p.add(t)
	} else {
		p.drop(part)
	}
}

// parsePart classifies one fragment. It returns false only for fragments
// that are consumed without producing a term.
func (p *parser) parsePart(part Part, term string) (Term, bool) {
	mods := part.Modifiers
	if !part.HasScope() {
		if part.Literal {
			return NewTextTerm(props.None, term, mods), true
		}
		return classify(term, mods), true
	}

	scope := strings.ToLower(strings.TrimSpace(part.Scope))
	switch scope {
	case "with", "has", "without":
		if scope == "without" {
			mods.Positive = !mods.Positive
		}
		if key, ok := lookupHasType(term); ok {
			if key == props.Duplicates {
				return NewDuplicateTerm(mods), true
			}
			return NewHasTypeTerm(key, mods), true
		}
	case "related", "similar", "like":
		p.s.Related = paths.ParseFile(unquote(term))
		return Term{}, false
	case "loc", "near", "location", "gps":
		if c, radius, ok := parseLocation(term); ok {
			return NewLocationTerm(c, radius, mods), true
		}
	case "ext", "extension":
		return NewExtensionTerm(term, mods), true
	case "type", "kind":
		if ft, ok := mediatypes.ParseAlias(term); ok {
			return NewMediaTypeTerm(ft, mods), true
		}
		return NewExtensionTerm(term, mods), true
	case "age":
		if days, ok := parseAge(term); ok {
			return NewDateTerm(props.Created, DateParts{AgeDays: days, Relative: true}, mods), true
		}
	case "@":
		return parseFlag(term, mods), true
	}

	if key, ok := props.Lookup(scope); ok {
		return parseKeyed(key, term, mods), true
	}
	return NewTextTerm(props.None, part.Scope+":"+term, mods), true
}

func lookupHasType(word string) (props.Key, bool) {
	switch strings.ToLower(word) {
	case "location", "gps", "geo":
		return props.Location, true
	case "date", "date_taken":
		return props.DateTaken, true
	case "duplicates", "duplicate", "dupes":
		return props.Duplicates, true
	}
	return props.Lookup(word)
}

// parseFlag handles "@photo", "@duplicates" and "@gps" style fragments.
func parseFlag(word string, mods Modifiers) Term {
	if ft, ok := mediatypes.ParseAlias(word); ok {
		return NewMediaTypeTerm(ft, mods)
	}
	switch strings.ToLower(word) {
	case "duplicate", "duplicates", "dupes", "dup", "dups":
		return NewDuplicateTerm(mods)
	}
	if key, ok := lookupHasType(word); ok {
		return NewHasTypeTerm(key, mods)
	}
	return NewTextTerm(props.None, "@"+word, mods)
}

// parseKeyed parses the value of a fragment scoped to a known property.
// Values that do not parse for the property's type become text terms
// scoped to that property.
func parseKeyed(key props.Key, term string, mods Modifiers) Term {
	switch key {
	case props.Extension:
		return NewExtensionTerm(term, mods)
	case props.Location:
		if c, radius, ok := parseLocation(term); ok {
			return NewLocationTerm(c, radius, mods)
		}
	case props.Duplicates:
		if n, err := strconv.Atoi(term); err == nil {
			return NewIntTerm(key, n, mods)
		}
		return NewDuplicateTerm(mods)
	}

	switch key.Kind() {
	case props.KindText:
		return NewTextTerm(key, term, mods)
	case props.KindDate:
		if d, ok := parseDateParts(term); ok {
			return NewDateTerm(key, d, mods)
		}
		if !isInteger(term) {
			if days, ok := parseAge(term); ok {
				return NewDateTerm(key, DateParts{AgeDays: days, Relative: true}, mods)
			}
		}
	case props.KindInt:
		if n, ok := parseIntValue(key, term); ok {
			return NewIntTerm(key, n, mods)
		}
	case props.KindInt64:
		if n, ok := parseSize(term); ok {
			return NewInt64Term(key, n, mods)
		}
	case props.KindFloat:
		if f, ok := parseFloatValue(key, term); ok {
			return NewFloatTerm(key, f, mods)
		}
	case props.KindPair:
		if pr, ok := parsePair(key, term); ok {
			return NewPairTerm(key, pr, mods)
		}
	}
	return NewTextTerm(key, term, mods)
}

func parseIntValue(key props.Key, term string) (int, bool) {
	switch key {
	case props.Duration, props.MediaPosition:
		return parseDuration(term)
	case props.ISO:
		return parseISO(term)
	case props.AudioSampleType:
		if v, ok := props.ParseSampleType(term); ok {
			return v, true
		}
	case props.AudioChannels:
		if v, ok := props.ParseChannels(term); ok {
			return v, true
		}
	case props.AudioSampleRate:
		if f, ok := parseFloat(strings.TrimSuffix(strings.ToLower(term), "khz")); ok && strings.HasSuffix(strings.ToLower(term), "khz") {
			return int(f * 1000), true
		}
	case props.Bitrate:
		if f, ok := parseFloat(strings.TrimSuffix(strings.ToLower(term), "kbps")); ok && strings.HasSuffix(strings.ToLower(term), "kbps") {
			return int(f * 1000), true
		}
	}
	n, err := strconv.Atoi(term)
	return n, err == nil
}

func parseFloatValue(key props.Key, term string) (float64, bool) {
	switch key {
	case props.FNumber:
		if f, ok := parseFNumber(term); ok {
			return f, true
		}
	case props.ExposureTime:
		return parseExposure(term)
	case props.FocalLength:
		return parseFocal(term)
	case props.Megapixels:
		return parseMegapixels(term)
	case props.FrameRate:
		return parseFloat(strings.TrimSuffix(strings.ToLower(term), "fps"))
	}
	return parseFloat(term)
}

// classify applies the unscoped heuristics in priority order.
func classify(term string, mods Modifiers) Term {
	if secs, ok := parseDuration(term); ok && reDuration.MatchString(term) {
		return NewIntTerm(props.Duration, secs, mods)
	}
	if d, ok := parseMonthDay(term); ok {
		return NewDateTerm(props.Created, d, mods)
	}
	if d, ok := parseYearMonth(term); ok {
		return NewDateTerm(props.Created, d, mods)
	}
	if t, ok := classifyFormatted(term, mods); ok {
		return t
	}
	if m := reYMD.FindStringSubmatch(term); m != nil {
		if d, ok := parseDateParts(term); ok {
			return NewDateTerm(props.Created, d, mods)
		}
	}
	if d, ok := parseNumericDate(term); ok {
		return NewDateTerm(props.Created, d, mods)
	}
	if d, ok := parseWordDate(term); ok {
		return NewDateTerm(props.Created, d, mods)
	}
	if d, ok := parseFullDate(term); ok {
		return NewDateTerm(props.Created, d, mods)
	}
	if isInteger(term) {
		n, err := strconv.Atoi(term)
		switch {
		case err != nil:
		case n >= 1 && n <= 5:
			return NewIntTerm(props.Rating, n, mods)
		case n >= 1800 && n < 2100:
			return NewIntTerm(props.Year, n, mods)
		}
	}
	if mo := parseMonth(term); mo != 0 {
		return NewDateTerm(props.Created, DateParts{Month: mo}, mods)
	}
	return NewTextTerm(props.None, term, mods)
}

// classifyFormatted recognises camera and media notations written without
// a scope: f/2.8, ISO400, 50mm, 12mp, 1920x1080, 1/500s.
func classifyFormatted(term string, mods Modifiers) (Term, bool) {
	if m := reFNumber.FindStringSubmatch(term); m != nil && strings.ContainsRune(term, '/') {
		if f, ok := parseFloat(m[1]); ok {
			return NewFloatTerm(props.FNumber, f, mods), true
		}
	}
	if m := reISO.FindStringSubmatch(term); m != nil {
		n, _ := strconv.Atoi(m[1])
		return NewIntTerm(props.ISO, n, mods), true
	}
	if m := reFocal.FindStringSubmatch(term); m != nil {
		if f, ok := parseFloat(m[1]); ok {
			return NewFloatTerm(props.FocalLength, f, mods), true
		}
	}
	if m := reMP.FindStringSubmatch(term); m != nil {
		if f, ok := parseFloat(m[1]); ok {
			return NewFloatTerm(props.Megapixels, f, mods), true
		}
	}
	if m := reDims.FindStringSubmatch(term); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return NewPairTerm(props.Dimensions, metadata.Pair{X: x, Y: y}, mods), true
	}
	if strings.HasSuffix(strings.ToLower(term), "s") {
		if m := reExposure.FindStringSubmatch(term); m != nil {
			if f, ok := parseExposure(term); ok {
				return NewFloatTerm(props.ExposureTime, f, mods), true
			}
		}
	}
	return Term{}, false
}
