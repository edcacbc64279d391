package search

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
)

// TermKind is the type of predicate a Term carries.
type TermKind int

const (
	KindEmpty TermKind = iota
	KindText
	KindValue
	KindDate
	KindLocation
	KindMediaType
	KindHasType
	KindExtension
	KindDuplicate
)

func (k TermKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindValue:
		return "value"
	case KindDate:
		return "date"
	case KindLocation:
		return "location"
	case KindMediaType:
		return "media_type"
	case KindHasType:
		return "has_type"
	case KindExtension:
		return "extension"
	case KindDuplicate:
		return "duplicate"
	default:
		return "empty"
	}
}

// LogicalOp says how a term combines with what precedes it.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (o LogicalOp) String() string {
	if o == OpOr {
		return "or"
	}
	return "and"
}

// Modifiers are the negation, relational, boolean and grouping flags of a
// term or fragment.
type Modifiers struct {
	Positive    bool
	Equals      bool
	LessThan    bool
	GreaterThan bool
	Op          LogicalOp
	BeginGroup  int
	EndGroup    int
}

// DefaultModifiers returns a positive, ungrouped AND modifier set.
func DefaultModifiers() Modifiers {
	return Modifiers{Positive: true}
}

// IsRelational reports whether any of =, < or > was given.
func (m Modifiers) IsRelational() bool {
	return m.Equals || m.LessThan || m.GreaterThan
}

// Compare applies the relational flags to a three-way comparison result of
// "file value" against "term value". With no flags it is an equality test.
func (m Modifiers) Compare(c int) bool {
	switch {
	case m.LessThan && m.Equals:
		return c <= 0
	case m.GreaterThan && m.Equals:
		return c >= 0
	case m.LessThan:
		return c < 0
	case m.GreaterThan:
		return c > 0
	default:
		return c == 0
	}
}

// relation renders the relational flags. Negation is written separately,
// ahead of any scope.
func (m Modifiers) relation() string {
	var sb strings.Builder
	if m.LessThan {
		sb.WriteByte('<')
	}
	if m.GreaterThan {
		sb.WriteByte('>')
	}
	if m.Equals {
		sb.WriteByte('=')
	}
	return sb.String()
}

// DateParts is an absolute partial date or a relative age. Zero parts are
// unspecified.
type DateParts struct {
	Year  int
	Month int
	Day   int
	// AgeDays is used when Relative is set.
	AgeDays  int
	Relative bool
}

// IsEmpty reports whether no component is set.
func (d DateParts) IsEmpty() bool {
	return !d.Relative && d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d DateParts) String() string {
	if d.Relative {
		return strconv.Itoa(d.AgeDays) + "d"
	}
	var parts []string
	if d.Year != 0 {
		parts = append(parts, strconv.Itoa(d.Year))
	}
	if d.Month != 0 {
		parts = append(parts, monthAbbrev[d.Month-1])
	}
	if d.Day != 0 {
		parts = append(parts, strconv.Itoa(d.Day))
	}
	return strings.Join(parts, "-")
}

// payload holds the kind-specific value of a term. Only the fields that
// belong to the term's kind are meaningful.
type payload struct {
	valueKind props.ValueKind
	text      string
	num       int64
	float     float64
	pair      metadata.Pair
	date      DateParts
	loc       metadata.Coordinate
	radius    float64
	media     mediatypes.FileType
}

// Term is one typed search predicate.
type Term struct {
	Kind      TermKind
	Key       props.Key
	Modifiers Modifiers

	val payload
}

func (t Term) mustBe(accessor string, kinds ...TermKind) {
	for _, k := range kinds {
		if t.Kind == k {
			return
		}
	}
	panic(fmt.Sprintf("search: %s accessor used on %s term", accessor, t.Kind))
}

func (t Term) mustValue(accessor string, kinds ...props.ValueKind) {
	t.mustBe(accessor, KindValue)
	for _, k := range kinds {
		if t.val.valueKind == k {
			return
		}
	}
	panic(fmt.Sprintf("search: %s accessor used on %s value term", accessor, t.val.valueKind))
}

// NewTextTerm builds a free-text term, or a text term scoped to key.
func NewTextTerm(key props.Key, text string, mods Modifiers) Term {
	return Term{Kind: KindText, Key: key, Modifiers: mods, val: payload{text: text}}
}

// NewIntTerm builds an integer value term.
func NewIntTerm(key props.Key, v int, mods Modifiers) Term {
	return Term{Kind: KindValue, Key: key, Modifiers: mods, val: payload{valueKind: props.KindInt, num: int64(v)}}
}

// NewInt64Term builds a 64-bit value term such as a size.
func NewInt64Term(key props.Key, v int64, mods Modifiers) Term {
	return Term{Kind: KindValue, Key: key, Modifiers: mods, val: payload{valueKind: props.KindInt64, num: v}}
}

// NewFloatTerm builds a float value term.
func NewFloatTerm(key props.Key, v float64, mods Modifiers) Term {
	return Term{Kind: KindValue, Key: key, Modifiers: mods, val: payload{valueKind: props.KindFloat, float: v}}
}

// NewPairTerm builds a pair value term.
func NewPairTerm(key props.Key, p metadata.Pair, mods Modifiers) Term {
	return Term{Kind: KindValue, Key: key, Modifiers: mods, val: payload{valueKind: props.KindPair, pair: p}}
}

// NewDateTerm builds an absolute or relative date term.
func NewDateTerm(key props.Key, d DateParts, mods Modifiers) Term {
	return Term{Kind: KindDate, Key: key, Modifiers: mods, val: payload{date: d}}
}

// NewLocationTerm builds a "within radius km of c" term.
func NewLocationTerm(c metadata.Coordinate, radiusKm float64, mods Modifiers) Term {
	return Term{Kind: KindLocation, Key: props.Location, Modifiers: mods, val: payload{loc: c, radius: radiusKm}}
}

// NewMediaTypeTerm builds a media group term.
func NewMediaTypeTerm(ft mediatypes.FileType, mods Modifiers) Term {
	return Term{Kind: KindMediaType, Modifiers: mods, val: payload{media: ft}}
}

// NewHasTypeTerm builds a "property has a value" term.
func NewHasTypeTerm(key props.Key, mods Modifiers) Term {
	return Term{Kind: KindHasType, Key: key, Modifiers: mods}
}

// NewExtensionTerm builds an extension term. Leading dots are dropped.
func NewExtensionTerm(ext string, mods Modifiers) Term {
	ext = strings.TrimLeft(strings.TrimSpace(ext), ".")
	return Term{Kind: KindExtension, Key: props.Extension, Modifiers: mods, val: payload{text: ext}}
}

// NewDuplicateTerm builds a "has duplicates" term.
func NewDuplicateTerm(mods Modifiers) Term {
	return Term{Kind: KindDuplicate, Key: props.Duplicates, Modifiers: mods}
}

// Text returns the text of a text or extension term.
func (t Term) Text() string {
	t.mustBe("Text", KindText, KindExtension)
	return t.val.text
}

// ValueKind returns the payload type of a value term.
func (t Term) ValueKind() props.ValueKind {
	t.mustBe("ValueKind", KindValue)
	return t.val.valueKind
}

// Int returns the payload of an int or int64 value term.
func (t Term) Int() int64 {
	t.mustValue("Int", props.KindInt, props.KindInt64)
	return t.val.num
}

// Float returns the payload of a float value term.
func (t Term) Float() float64 {
	t.mustValue("Float", props.KindFloat)
	return t.val.float
}

// Pair returns the payload of a pair value term.
func (t Term) Pair() metadata.Pair {
	t.mustValue("Pair", props.KindPair)
	return t.val.pair
}

// Date returns the payload of a date term.
func (t Term) Date() DateParts {
	t.mustBe("Date", KindDate)
	return t.val.date
}

// Location returns the centre and radius of a location term.
func (t Term) Location() (metadata.Coordinate, float64) {
	t.mustBe("Location", KindLocation)
	return t.val.loc, t.val.radius
}

// MediaType returns the group of a media type term.
func (t Term) MediaType() mediatypes.FileType {
	t.mustBe("MediaType", KindMediaType)
	return t.val.media
}

// HasFolderWildcard reports whether t is a text term containing "**",
// which is matched against folder paths.
func (t Term) HasFolderWildcard() bool {
	return t.Kind == KindText && strings.Contains(t.val.text, "**")
}

// String renders the term back into query syntax.
func (t Term) String() string {
	var scope, value string
	switch t.Kind {
	case KindText:
		value = quoteIfNeeded(t.val.text)
		if t.Key == props.Tag {
			value = "#" + value
		} else if t.Key.IsValid() {
			scope = t.Key.Name()
		}
	case KindValue:
		scope, value = t.Key.Name(), t.valueString()
	case KindDate:
		if t.val.date.Relative {
			scope, value = "age", strconv.Itoa(t.val.date.AgeDays)
		} else {
			scope, value = t.Key.Name(), t.val.date.String()
		}
	case KindLocation:
		scope = "loc"
		value = fmt.Sprintf("%g,%g,%g", t.val.loc.Latitude, t.val.loc.Longitude, t.val.radius)
	case KindMediaType:
		value = "@" + string(t.val.media)
	case KindHasType:
		scope, value = "with", t.Key.Name()
	case KindExtension:
		scope, value = "ext", t.val.text
	case KindDuplicate:
		value = "@duplicates"
	}

	m := t.Modifiers
	var sb strings.Builder
	if m.Op == OpOr {
		sb.WriteString("or ")
	}
	sb.WriteString(strings.Repeat("(", m.BeginGroup))
	if !m.Positive {
		sb.WriteByte('-')
	}
	if scope != "" {
		sb.WriteString(scope)
		sb.WriteByte(':')
	}
	sb.WriteString(m.relation())
	sb.WriteString(value)
	sb.WriteString(strings.Repeat(")", m.EndGroup))
	return sb.String()
}

func (t Term) valueString() string {
	switch t.val.valueKind {
	case props.KindFloat:
		return strconv.FormatFloat(t.val.float, 'f', -1, 64)
	case props.KindPair:
		return metadata.FormatPair(t.val.pair)
	default:
		return strconv.FormatInt(t.val.num, 10)
	}
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t\"'():#@") {
		return `"` + s + `"`
	}
	return s
}

// Compare is a total order over terms used by Normalize.
func (t Term) Compare(o Term) int {
	if c := cmp.Compare(t.Kind, o.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(t.Key, o.Key); c != 0 {
		return c
	}
	a, b := t.val, o.val
	if c := cmp.Compare(a.valueKind, b.valueKind); c != 0 {
		return c
	}
	if c := strings.Compare(paths.Fold(a.text), paths.Fold(b.text)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.num, b.num); c != 0 {
		return c
	}
	if c := cmp.Compare(a.float, b.float); c != 0 {
		return c
	}
	if c := cmp.Compare(a.pair.X, b.pair.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.pair.Y, b.pair.Y); c != 0 {
		return c
	}
	if c := compareDates(a.date, b.date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.loc.Latitude, b.loc.Latitude); c != 0 {
		return c
	}
	if c := cmp.Compare(a.loc.Longitude, b.loc.Longitude); c != 0 {
		return c
	}
	if c := cmp.Compare(a.radius, b.radius); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.media), string(b.media)); c != 0 {
		return c
	}
	return compareModifiers(t.Modifiers, o.Modifiers)
}

// Equal reports whether two terms have the same meaning.
func (t Term) Equal(o Term) bool {
	return t.Compare(o) == 0
}

func compareDates(a, b DateParts) int {
	if a.Relative != b.Relative {
		if a.Relative {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.AgeDays, b.AgeDays); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Month, b.Month); c != 0 {
		return c
	}
	return cmp.Compare(a.Day, b.Day)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareModifiers(a, b Modifiers) int {
	for _, c := range []int{
		cmp.Compare(boolInt(a.Positive), boolInt(b.Positive)),
		cmp.Compare(boolInt(a.Equals), boolInt(b.Equals)),
		cmp.Compare(boolInt(a.LessThan), boolInt(b.LessThan)),
		cmp.Compare(boolInt(a.GreaterThan), boolInt(b.GreaterThan)),
		cmp.Compare(a.Op, b.Op),
		cmp.Compare(a.BeginGroup, b.BeginGroup),
		cmp.Compare(a.EndGroup, b.EndGroup),
	} {
		if c != 0 {
			return c
		}
	}
	return 0
}
