package search

import (
	"cmp"
	"math"
	"strings"
	"time"

	"media-catalog/internal/bloom"
	"media-catalog/internal/catalog"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
)

// MatchKind classifies a match result.
type MatchKind int

const (
	NoMatch MatchKind = iota
	// Matched means the terms matched without a single responsible property.
	Matched
	// MatchProperty means a term matched on Match.Prop.
	MatchProperty
	// MatchFolder means the file matched through its folder.
	MatchFolder
	// Similar means the file is related to the search's related item.
	Similar
)

func (k MatchKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case MatchProperty:
		return "property"
	case MatchFolder:
		return "folder"
	case Similar:
		return "similar"
	default:
		return "none"
	}
}

// Match is the result of matching one item.
type Match struct {
	Kind MatchKind
	Prop props.Key
}

// IsMatch reports whether the item matched.
func (m Match) IsMatch() bool { return m.Kind != NoMatch }

// EquivalenceFunc decides whether two files hold the same content.
type EquivalenceFunc func(a, b *catalog.FileItem) bool

// SameContent is the default duplicate rule: same content hash, same CRC,
// same duplicate group, or same name and size.
func SameContent(a, b *catalog.FileItem) bool {
	if a == b {
		return true
	}
	if a.Hash != "" && a.Hash == b.Hash {
		return true
	}
	if a.CRC() != 0 && a.CRC() == b.CRC() {
		return true
	}
	if g := a.DuplicateGroup(); g != 0 && g == b.DuplicateGroup() {
		return true
	}
	return a.Size > 0 && a.Size == b.Size && paths.CompareNames(a.Name, b.Name) == 0
}

// Matcher evaluates one search against catalog items. It is immutable and
// safe for concurrent use.
type Matcher struct {
	search  *Search
	now     int
	related *catalog.FileItem
	equal   EquivalenceFunc
	bloom   bloom.Bits
	tree    *node

	folderPatterns []string
}

// NewMatcher prepares s for matching. now anchors relative dates. related is
// the resolved related item, nil when the search has none or it is not in
// the catalog.
func NewMatcher(s *Search, now time.Time, related *catalog.FileItem) *Matcher {
	m := &Matcher{
		search:  s,
		now:     DaysSinceEpoch(now),
		related: related,
		equal:   SameContent,
		bloom:   s.Bloom(),
		tree:    buildTree(s.Terms),
	}
	for _, t := range s.Terms {
		if t.HasFolderWildcard() && t.Modifiers.Positive {
			m.folderPatterns = append(m.folderPatterns, t.Text())
		}
	}
	return m
}

// WithEquivalence replaces the duplicate rule used for related searches.
func (m *Matcher) WithEquivalence(fn EquivalenceFunc) *Matcher {
	c := *m
	c.equal = fn
	return &c
}

// Search returns the search being matched.
func (m *Matcher) Search() *Search { return m.search }

// Bloom returns the bits a file must carry to possibly match.
func (m *Matcher) Bloom() bloom.Bits { return m.bloom }

// MatchItem evaluates the search against file in folder.
func (m *Matcher) MatchItem(folder paths.Folder, file *catalog.FileItem) Match {
	s := m.search
	if s.HasRelated() {
		if m.isRelated(folder, file) {
			return Match{Kind: Similar}
		}
		return Match{}
	}
	if !s.Selects(folder, file.Name) {
		return Match{}
	}
	if len(s.Terms) == 0 {
		if len(s.Selectors) > 0 {
			return Match{Kind: MatchFolder, Prop: props.Folder}
		}
		return Match{}
	}
	if len(m.folderPatterns) > 0 {
		text := folderText(folder)
		for _, pattern := range m.folderPatterns {
			if paths.Match(pattern, text) {
				return Match{Kind: MatchFolder, Prop: props.Folder}
			}
		}
	}
	if !file.Bloom().Satisfies(m.bloom) {
		return Match{}
	}
	return m.matchAllTerms(folder, file)
}

// folderText returns the folder with a trailing separator so that patterns
// like "**\2023\**" match the last component too.
func folderText(folder paths.Folder) string {
	if folder.IsRoot() {
		return folder.Text()
	}
	return folder.Text() + folder.Separator()
}

func (m *Matcher) isRelated(folder paths.Folder, file *catalog.FileItem) bool {
	rel := m.search.Related
	if rel.Folder().Equal(folder) && paths.CompareNames(rel.Name(), file.Name) == 0 {
		return true
	}
	if m.related == nil {
		return false
	}
	return m.equal(m.related, file)
}

func (m *Matcher) matchAllTerms(folder paths.Folder, file *catalog.FileItem) Match {
	terms := m.search.Terms
	if len(terms) == 1 {
		ok, prop := m.matchTerm(folder, file, terms[0])
		return result(ok, terms[0].Modifiers.Positive, prop)
	}

	prov := props.None
	found := false
	ok := m.tree.eval(func(i int) bool {
		matched, prop := m.matchTerm(folder, file, terms[i])
		if matched && !found && terms[i].Modifiers.Positive && prop.IsValid() {
			prov, found = prop, true
		}
		return matched
	})
	return result(ok, found, prov)
}

func result(ok, positive bool, prop props.Key) Match {
	switch {
	case !ok:
		return Match{}
	case positive && prop.IsValid():
		return Match{Kind: MatchProperty, Prop: prop}
	default:
		return Match{Kind: Matched}
	}
}

// MatchTerm evaluates a single term, including its negation.
func (m *Matcher) MatchTerm(folder paths.Folder, file *catalog.FileItem, t Term) bool {
	ok, _ := m.matchTerm(folder, file, t)
	return ok
}

func (m *Matcher) matchTerm(folder paths.Folder, file *catalog.FileItem, t Term) (bool, props.Key) {
	var ok bool
	prop := t.Key
	switch t.Kind {
	case KindMediaType:
		ok = file.Type == t.MediaType()
	case KindExtension:
		ok = matchExtension(file, t.Text())
	case KindLocation:
		ok = matchLocation(file, t)
	case KindDuplicate:
		ok = file.DuplicateCount() > 1
	case KindText:
		ok, prop = matchText(folder, file, t)
	case KindDate:
		ok = m.matchDate(file, t)
	case KindHasType:
		ok = hasValue(file, t.Key)
	case KindValue:
		ok = matchValue(file, t)
	}
	return ok != !t.Modifiers.Positive, prop
}

func matchExtension(file *catalog.FileItem, ext string) bool {
	if file.IsFolder() || ext == "" {
		return false
	}
	if paths.IsWildcard(ext) {
		return paths.Match(ext, file.Ext())
	}
	return strings.HasSuffix(paths.Fold(file.Name), "."+paths.Fold(ext))
}

func matchLocation(file *catalog.FileItem, t Term) bool {
	c, ok := file.Metadata().Coordinate()
	if !ok {
		return false
	}
	centre, radius := t.Location()
	return centre.DistanceKm(c) < radius
}

// textRule compares candidate strings against a text term.
type textRule struct {
	raw    string
	needle string
	wild   bool
	exact  bool
}

func newTextRule(t Term) textRule {
	return textRule{
		raw:    t.Text(),
		needle: paths.Fold(t.Text()),
		wild:   paths.IsWildcard(t.Text()),
		exact:  t.Modifiers.Equals,
	}
}

func (r textRule) match(v string) bool {
	switch {
	case v == "":
		return false
	case r.wild:
		return paths.Match(r.raw, v)
	case r.exact:
		return paths.Fold(v) == r.needle
	default:
		return strings.Contains(paths.Fold(v), r.needle)
	}
}

func (r textRule) matchTag(tag string) bool {
	if r.wild {
		return paths.Match(r.raw, tag)
	}
	return paths.Fold(tag) == r.needle
}

func matchText(folder paths.Folder, file *catalog.FileItem, t Term) (bool, props.Key) {
	if t.HasFolderWildcard() {
		return paths.Match(t.Text(), folderText(folder)), props.Folder
	}
	rule := newTextRule(t)
	md := file.Metadata()

	switch t.Key {
	case props.None:
		return compareText(rule, file, md)
	case props.Tag:
		for _, tag := range md.TagList() {
			if rule.matchTag(tag) {
				return true, props.Tag
			}
		}
		return false, props.Tag
	case props.Folder:
		return rule.match(folder.Text()), props.Folder
	case props.FileName:
		return rule.match(file.Name), props.FileName
	case props.Extension:
		return rule.match(file.Ext()), props.Extension
	}
	return rule.match(md.Format(t.Key)), t.Key
}

// compareText scans the searchable properties in order and reports the
// first one containing the text.
func compareText(rule textRule, file *catalog.FileItem, md *metadata.Metadata) (bool, props.Key) {
	for _, k := range props.Searchable() {
		switch k {
		case props.FileName:
			if rule.match(file.Name) {
				return true, k
			}
		case props.Tag:
			for _, tag := range md.TagList() {
				if rule.match(tag) {
					return true, k
				}
			}
		default:
			if md != nil && rule.match(md.Format(k)) {
				return true, k
			}
		}
	}
	return false, props.None
}

func dateOf(file *catalog.FileItem, key props.Key) (time.Time, bool) {
	switch key {
	case props.Created:
		return file.Created, !file.Created.IsZero()
	case props.Modified:
		return file.Modified, !file.Modified.IsZero()
	}
	return file.Metadata().Date(key)
}

func (m *Matcher) matchDate(file *catalog.FileItem, t Term) bool {
	when, ok := dateOf(file, t.Key)
	if !ok {
		return false
	}
	d := t.Date()
	mods := t.Modifiers
	if d.Relative {
		age := m.now - DaysSinceEpoch(when)
		if !mods.IsRelational() {
			return age <= d.AgeDays
		}
		return mods.Compare(cmp.Compare(age, d.AgeDays))
	}

	y, mo, day := when.Date()
	var fileVal, termVal int
	if d.Year != 0 {
		fileVal += y * 12 * 31
		termVal += d.Year * 12 * 31
	}
	if d.Month != 0 {
		fileVal += int(mo) * 31
		termVal += d.Month * 31
	}
	if d.Day != 0 {
		fileVal += day
		termVal += d.Day
	}
	return mods.Compare(cmp.Compare(fileVal, termVal))
}

func hasValue(file *catalog.FileItem, key props.Key) bool {
	if file.IsFolder() {
		return false
	}
	switch key {
	case props.FileName, props.Folder:
		return true
	case props.Extension:
		return file.Ext() != ""
	case props.Size:
		return file.Size > 0
	case props.Created:
		return !file.Created.IsZero()
	case props.Modified:
		return !file.Modified.IsZero()
	case props.MediaPosition:
		return file.MediaPosition() != 0
	case props.Duplicates:
		return file.DuplicateCount() > 1
	}
	return file.Metadata().Has(key)
}

func intValue(file *catalog.FileItem, key props.Key) (int64, bool) {
	md := file.Metadata()
	switch key {
	case props.Size:
		return file.Size, !file.IsFolder()
	case props.MediaPosition:
		p := file.MediaPosition()
		return p, p != 0
	case props.Duplicates:
		return int64(file.DuplicateCount()), true
	case props.Year:
		if y, ok := md.Int(props.Year); ok {
			return int64(y), true
		}
		if t, ok := md.Date(props.DateTaken); ok {
			return int64(t.Year()), true
		}
		if !file.Created.IsZero() {
			return int64(file.Created.Year()), true
		}
		return 0, false
	}
	v, ok := md.Int(key)
	return int64(v), ok
}

// comparableFloat rounds float values the way they are displayed so that
// perceptually equal values compare equal.
func comparableFloat(key props.Key, v float64) float64 {
	switch key {
	case props.FNumber:
		return metadata.NearestStop(v)
	case props.ExposureTime:
		return exposureKey(v)
	case props.Megapixels:
		return metadata.RoundMegapixels(v)
	case props.FocalLength:
		return math.Round(v*10) / 10
	case props.FrameRate:
		return math.Round(v*100) / 100
	}
	return v
}

// exposureKey maps sub-second exposures to the rounded reciprocal they are
// displayed with. Order is preserved.
func exposureKey(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v < 1 {
		return 1 / math.Round(1/v)
	}
	return math.Round(v*10) / 10
}

func matchValue(file *catalog.FileItem, t Term) bool {
	mods := t.Modifiers
	md := file.Metadata()
	switch t.ValueKind() {
	case props.KindInt, props.KindInt64:
		fv, ok := intValue(file, t.Key)
		if !ok {
			return false
		}
		tv := t.Int()
		if t.Key == props.Size {
			fv, tv = metadata.RoundSizeValue(fv), metadata.RoundSizeValue(tv)
		}
		return mods.Compare(cmp.Compare(fv, tv))
	case props.KindFloat:
		var fv float64
		var ok bool
		if t.Key == props.Megapixels {
			fv = md.Megapixels()
			ok = fv > 0
		} else {
			fv, ok = md.Float(t.Key)
		}
		if !ok {
			return false
		}
		return mods.Compare(cmp.Compare(comparableFloat(t.Key, fv), comparableFloat(t.Key, t.Float())))
	case props.KindPair:
		fv, ok := md.PairValue(t.Key)
		if !ok {
			return false
		}
		tv := t.Pair()
		c := cmp.Compare(fv.X, tv.X)
		if c == 0 && tv.Y != 0 {
			c = cmp.Compare(fv.Y, tv.Y)
		}
		return mods.Compare(c)
	}
	return false
}
