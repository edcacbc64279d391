package search

import (
	"testing"

	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
)

type fakeResolver struct {
	folders map[string]bool
	files   map[string]bool
}

func (f fakeResolver) FolderExists(folder paths.Folder) bool { return f.folders[folder.Key()] }
func (f fakeResolver) FileExists(file paths.File) bool       { return f.files[file.Key()] }

func newResolver() fakeResolver {
	return fakeResolver{
		folders: map[string]bool{
			paths.NewFolder("/media/photos").Key(): true,
			paths.NewFolder(`C:\Pictures`).Key():   true,
		},
		files: map[string]bool{
			paths.ParseFile("/media/photos/a.jpg").Key(): true,
		},
	}
}

func single(t *testing.T, query string) Term {
	t.Helper()
	s := Parse(query, nil)
	if len(s.Terms) != 1 {
		t.Fatalf("Parse(%q) produced %d terms: %v", query, len(s.Terms), s.Terms)
	}
	return s.Terms[0]
}

func TestParseHeuristics(t *testing.T) {
	tests := []struct {
		query string
		kind  TermKind
		key   props.Key
		check func(Term) bool
	}{
		{"1:30", KindValue, props.Duration, func(tm Term) bool { return tm.Int() == 90 }},
		{"1:02:03", KindValue, props.Duration, func(tm Term) bool { return tm.Int() == 3723 }},
		{"dec-25", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Month: 12, Day: 25} }},
		{"25dec", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Month: 12, Day: 25} }},
		{"2023-12", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Year: 2023, Month: 12} }},
		{"dec-2023", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Year: 2023, Month: 12} }},
		{"2023-dec-25", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Year: 2023, Month: 12, Day: 25} }},
		{"2023-12-25", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Year: 2023, Month: 12, Day: 25} }},
		{"3", KindValue, props.Rating, func(tm Term) bool { return tm.Int() == 3 }},
		{"2023", KindValue, props.Year, func(tm Term) bool { return tm.Int() == 2023 }},
		{"december", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Month: 12} }},
		{"f/2.8", KindValue, props.FNumber, func(tm Term) bool { return tm.Float() == 2.8 }},
		{"ISO400", KindValue, props.ISO, func(tm Term) bool { return tm.Int() == 400 }},
		{"50mm", KindValue, props.FocalLength, func(tm Term) bool { return tm.Float() == 50 }},
		{"1920x1080", KindValue, props.Dimensions, func(tm Term) bool { return tm.Pair() == metadata.Pair{X: 1920, Y: 1080} }},
		{"1/500s", KindValue, props.ExposureTime, func(tm Term) bool { return tm.Float() == 1.0/500 }},
		{"sunset", KindText, props.None, func(tm Term) bool { return tm.Text() == "sunset" }},
		{"42", KindText, props.None, func(tm Term) bool { return tm.Text() == "42" }},
		{`"2023"`, KindText, props.None, func(tm Term) bool { return tm.Text() == "2023" }},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tm := single(t, tt.query)
			if tm.Kind != tt.kind || tm.Key != tt.key {
				t.Fatalf("Parse(%q) = %s/%s, want %s/%s", tt.query, tm.Kind, tm.Key, tt.kind, tt.key)
			}
			if !tt.check(tm) {
				t.Errorf("Parse(%q) payload wrong: %v", tt.query, tm)
			}
		})
	}
}

func TestParseWrittenDates(t *testing.T) {
	xmas := DateParts{Year: 2023, Month: 12, Day: 25}
	tests := []struct {
		query string
		key   props.Key
		want  DateParts
	}{
		{"dec 25 2023", props.Created, xmas},
		{"December 25, 2023", props.Created, xmas},
		{"25 December 2023", props.Created, xmas},
		{"25th of december 2023", props.Created, xmas},
		{"2023 dec 25", props.Created, xmas},
		{"dec 25", props.Created, DateParts{Month: 12, Day: 25}},
		{"december 2023", props.Created, DateParts{Year: 2023, Month: 12}},
		{"25.12.2023", props.Created, xmas},
		{"12/25/2023", props.Created, xmas},
		{"12-25-2023", props.Created, xmas},
		{"created: December 25, 2023", props.Created, xmas},
		{"taken: 25 dec 2023", props.DateTaken, xmas},
		{`created:"December 25, 2023"`, props.Created, xmas},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tm := single(t, tt.query)
			if tm.Kind != KindDate || tm.Key != tt.key {
				t.Fatalf("Parse(%q) = %s/%s, want date/%s", tt.query, tm.Kind, tm.Key, tt.key)
			}
			if tm.Date() != tt.want {
				t.Errorf("Parse(%q) date = %+v, want %+v", tt.query, tm.Date(), tt.want)
			}
		})
	}
}

func TestParseWrittenDateInContext(t *testing.T) {
	s := Parse("@photo (dec 25 2023) sunset", nil)
	if len(s.Terms) != 3 {
		t.Fatalf("terms = %v", s.Terms)
	}
	d := s.Terms[1]
	if d.Kind != KindDate || d.Date() != (DateParts{Year: 2023, Month: 12, Day: 25}) {
		t.Errorf("date term = %v", d)
	}
	if d.Modifiers.BeginGroup != 1 || d.Modifiers.EndGroup != 1 {
		t.Errorf("group markers lost: %+v", d.Modifiers)
	}

	tests := []struct {
		query string
		terms int
	}{
		{"dec 25 or 2023", 2},
		{"rating:5 may", 2},
		{"3 2023", 2},
		{"beach 25", 2},
		{"dec -25 2023", 3},
	}
	for _, tt := range tests {
		if got := Parse(tt.query, nil); len(got.Terms) != tt.terms {
			t.Errorf("Parse(%q) = %d terms %v, want %d", tt.query, len(got.Terms), got.Terms, tt.terms)
		}
	}
}

func TestParseScoped(t *testing.T) {
	tests := []struct {
		query string
		kind  TermKind
		key   props.Key
		check func(Term) bool
	}{
		{"rating: >3", KindValue, props.Rating, func(tm Term) bool { return tm.Int() == 3 && tm.Modifiers.GreaterThan }},
		{"#sunset", KindText, props.Tag, func(tm Term) bool { return tm.Text() == "sunset" }},
		{"@photo", KindMediaType, props.None, func(tm Term) bool { return tm.MediaType() == mediatypes.FileTypeImage }},
		{"@music", KindMediaType, props.None, func(tm Term) bool { return tm.MediaType() == mediatypes.FileTypeAudio }},
		{"@duplicates", KindDuplicate, props.Duplicates, func(Term) bool { return true }},
		{"@gps", KindHasType, props.Location, func(Term) bool { return true }},
		{"age: 7", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{AgeDays: 7, Relative: true} }},
		{"age: 2w", KindDate, props.Created, func(tm Term) bool { return tm.Date().AgeDays == 14 }},
		{"created: 2023-dec-25", KindDate, props.Created, func(tm Term) bool { return tm.Date() == DateParts{Year: 2023, Month: 12, Day: 25} }},
		{"taken: 2021", KindDate, props.DateTaken, func(tm Term) bool { return tm.Date() == DateParts{Year: 2021} }},
		{"ext: .JPG", KindExtension, props.Extension, func(tm Term) bool { return tm.Text() == "JPG" }},
		{"type: video", KindMediaType, props.None, func(tm Term) bool { return tm.MediaType() == mediatypes.FileTypeVideo }},
		{"type: png", KindExtension, props.Extension, func(tm Term) bool { return tm.Text() == "png" }},
		{"size: >2mb", KindValue, props.Size, func(tm Term) bool { return tm.Int() == 2_000_000 && tm.Modifiers.GreaterThan }},
		{"f_number: f/4", KindValue, props.FNumber, func(tm Term) bool { return tm.Float() == 4 }},
		{"exposure: 1/250", KindValue, props.ExposureTime, func(tm Term) bool { return tm.Float() == 1.0/250 }},
		{"duration: 2m", KindValue, props.Duration, func(tm Term) bool { return tm.Int() == 120 }},
		{"channels: stereo", KindValue, props.AudioChannels, func(tm Term) bool { return tm.Int() == 2 }},
		{"sample_type: 24bit", KindValue, props.AudioSampleType, func(tm Term) bool { return tm.Int() == props.SampleS24 }},
		{"track: 3/12", KindValue, props.Track, func(tm Term) bool { return tm.Pair() == metadata.Pair{X: 3, Y: 12} }},
		{"with: gps", KindHasType, props.Location, func(tm Term) bool { return tm.Modifiers.Positive }},
		{"without: rating", KindHasType, props.Rating, func(tm Term) bool { return !tm.Modifiers.Positive }},
		{"artist: ana", KindText, props.Artist, func(tm Term) bool { return tm.Text() == "ana" }},
		{"rating: lots", KindText, props.Rating, func(tm Term) bool { return tm.Text() == "lots" }},
		{"foo:bar", KindText, props.None, func(tm Term) bool { return tm.Text() == "foo:bar" }},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tm := single(t, tt.query)
			if tm.Kind != tt.kind || tm.Key != tt.key {
				t.Fatalf("Parse(%q) = %s/%s, want %s/%s", tt.query, tm.Kind, tm.Key, tt.kind, tt.key)
			}
			if !tt.check(tm) {
				t.Errorf("Parse(%q) payload wrong: %v", tt.query, tm)
			}
		})
	}
}

func TestParseLocation(t *testing.T) {
	tm := single(t, "loc: 51.5,-0.12,5")
	if tm.Kind != KindLocation {
		t.Fatalf("kind = %s", tm.Kind)
	}
	c, r := tm.Location()
	if c.Latitude != 51.5 || c.Longitude != -0.12 || r != 5 {
		t.Errorf("location = %v radius %v", c, r)
	}

	tm = single(t, "loc: 51.5,-0.12")
	if _, r := tm.Location(); r != 1 {
		t.Errorf("default radius = %v, want 1", r)
	}

	if tm := single(t, "loc: nowhere"); tm.Kind != KindText {
		t.Errorf("bad location should degrade to text, got %s", tm.Kind)
	}
}

func TestParseRelated(t *testing.T) {
	s := Parse(`related: C:\path\to\file.jpg`, nil)
	if len(s.Terms) != 0 {
		t.Errorf("related should not add terms: %v", s.Terms)
	}
	if !s.HasRelated() || s.Related.Name() != "file.jpg" || s.Related.Folder().Text() != `C:\path\to` {
		t.Errorf("Related = %q", s.Related.Text())
	}
}

func TestParseKeepsModifiers(t *testing.T) {
	s := Parse("red (green or -blue)", nil)
	if len(s.Terms) != 3 {
		t.Fatalf("terms = %v", s.Terms)
	}
	if s.Terms[1].Modifiers.BeginGroup != 1 {
		t.Errorf("green should open a group: %+v", s.Terms[1].Modifiers)
	}
	m := s.Terms[2].Modifiers
	if m.Positive || m.Op != OpOr || m.EndGroup != 1 {
		t.Errorf("blue modifiers = %+v", m)
	}
}

func TestParseDroppedFragmentKeepsGroups(t *testing.T) {
	s := Parse("red (related:/a/b.jpg green)", nil)
	if len(s.Terms) != 2 {
		t.Fatalf("terms = %v", s.Terms)
	}
	if s.Terms[1].Modifiers.BeginGroup != 1 || s.Terms[1].Modifiers.EndGroup != 1 {
		t.Errorf("group markers not carried: %+v", s.Terms[1].Modifiers)
	}
}

func TestParsePath(t *testing.T) {
	r := newResolver()

	tests := []struct {
		query     string
		folder    string
		recursive bool
		wildcard  string
	}{
		{"/media/photos", "/media/photos", false, ""},
		{"/Media/Photos/", "/Media/Photos", false, ""},
		{"/media/photos/**", "/media/photos", true, ""},
		{`"C:\Pictures"`, `C:\Pictures`, false, ""},
		{"/media/photos/a.jpg", "/media/photos", false, "a.jpg"},
		{"/anything/*.png", "/anything", false, "*.png"},
		{"/anything/**/*.png", "/anything", true, "*.png"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s := Parse(tt.query, r)
			if len(s.Terms) != 0 || len(s.Selectors) != 1 {
				t.Fatalf("Parse(%q) = terms %v selectors %v", tt.query, s.Terms, s.Selectors)
			}
			sel := s.Selectors[0]
			if sel.Folder.Text() != tt.folder || sel.Recursive != tt.recursive || sel.Wildcard != tt.wildcard {
				t.Errorf("selector = %+v", sel)
			}
			if !s.IsBrowse() {
				t.Error("single selector without terms should be a browse search")
			}
		})
	}

	if s := ParsePath("/missing", r); !s.IsEmpty() {
		t.Errorf("missing path should give an empty search: %+v", s)
	}
	if s := ParsePath("/media/photos", nil); !s.IsEmpty() {
		t.Error("nil resolver should disable path parsing")
	}
}

func TestParseSelectorWithTerms(t *testing.T) {
	s := Parse("/media/photos #beach", newResolver())
	if len(s.Selectors) != 1 || len(s.Terms) != 1 {
		t.Fatalf("selectors %v terms %v", s.Selectors, s.Terms)
	}
	if s.Terms[0].Key != props.Tag {
		t.Errorf("term = %v", s.Terms[0])
	}
}

func TestParseFromInput(t *testing.T) {
	s := ParseFromInput("file:///media/photos", newResolver())
	if !s.IsBrowse() || s.Selectors[0].Folder.Text() != "/media/photos" {
		t.Errorf("file URL not resolved: %+v", s)
	}
	if s.Text != "file:///media/photos" {
		t.Errorf("Text = %q", s.Text)
	}
}

func TestParseNeverDropsText(t *testing.T) {
	for _, q := range []string{"((", ")))", "-", "a:", "@", "#"} {
		s := Parse(q, nil)
		for _, tm := range s.Terms {
			if tm.Kind == KindEmpty {
				t.Errorf("Parse(%q) produced an empty term", q)
			}
		}
	}
	if s := Parse("@unknownflag", nil); len(s.Terms) != 1 || s.Terms[0].Kind != KindText {
		t.Errorf("unknown flag should become text: %v", s.Terms)
	}
}

func TestNormalize(t *testing.T) {
	a := Parse("#b rating:3 #a #b", nil).Normalize()
	b := Parse("#a rating:3 #b", nil).Normalize()

	if !a.Equal(b) {
		t.Errorf("normalized searches differ:\n%v\n%v", a, b)
	}
	if len(a.Terms) != 3 {
		t.Errorf("duplicates not removed: %v", a.Terms)
	}
	if !a.Normalize().Equal(a) {
		t.Error("Normalize is not idempotent")
	}
	if Parse("#a", nil).Normalize().Equal(Parse("-#a", nil).Normalize()) {
		t.Error("negation must distinguish terms")
	}
}

func TestTermAccessorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched accessor")
		}
	}()
	NewTextTerm(props.None, "x", DefaultModifiers()).Int()
}

func TestValueAccessorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched value kind")
		}
	}()
	NewIntTerm(props.Rating, 3, DefaultModifiers()).Float()
}

func TestTermStringRoundTrip(t *testing.T) {
	for _, q := range []string{
		"rating:>3", "#sunset", "@image", "age:7", "ext:jpg", "with:location", "-#beach",
		"-taken:2023", "-rating:<3", "-ext:png", "-age:30", "-@video", "(a or -taken:2023-dec-25)",
	} {
		first := Parse(q, nil)
		second := Parse(first.String(), nil)
		if !first.Normalize().Equal(second.Normalize()) {
			t.Errorf("%q -> %q did not round trip", q, first.String())
		}
	}
}

func TestNegatedScopedTermString(t *testing.T) {
	got := single(t, "-taken:2023").String()
	if got != "-taken:2023" {
		t.Errorf("String() = %q, want %q", got, "-taken:2023")
	}
	if term := single(t, got); term.Kind != KindDate || term.Modifiers.Positive {
		t.Errorf("re-parsed %q as %v", got, term)
	}
}
