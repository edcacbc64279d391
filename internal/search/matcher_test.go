package search

import (
	"reflect"
	"testing"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
	"media-catalog/internal/props"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func file(name string, md *metadata.Metadata) *catalog.FileItem {
	f := catalog.NewFileItem(catalog.Attributes{
		Name:     name,
		Size:     1000,
		Created:  testNow.AddDate(0, 0, -30),
		Modified: testNow.AddDate(0, 0, -30),
	})
	if md != nil {
		f.SetMetadata(md)
	}
	return f
}

func fileCreated(name string, created time.Time) *catalog.FileItem {
	return catalog.NewFileItem(catalog.Attributes{Name: name, Size: 1000, Created: created, Modified: created})
}

var photos = paths.NewFolder("/photos")

func match(query string, folder paths.Folder, f *catalog.FileItem) Match {
	return NewMatcher(Parse(query, nil), testNow, nil).MatchItem(folder, f)
}

func TestMatchTagScenario(t *testing.T) {
	f := file("a.jpg", &metadata.Metadata{Tags: "beach, sunset, 2023"})
	got := match("#sunset", photos, f)
	if got.Kind != MatchProperty || got.Prop != props.Tag {
		t.Errorf("match = %+v, want tag property match", got)
	}
	if match("#sun", photos, f).IsMatch() {
		t.Error("tag terms should compare whole tags")
	}
	if got := match("sun", photos, f); got.Kind != MatchProperty || got.Prop != props.Tag {
		t.Errorf("free text should find tag substrings: %+v", got)
	}
}

func TestMatchRatingScenario(t *testing.T) {
	tests := []struct {
		rating int
		want   bool
	}{
		{4, true},
		{3, false},
		{0, false},
	}
	for _, tt := range tests {
		f := file("a.jpg", &metadata.Metadata{Rating: tt.rating})
		if got := match("rating: >3", photos, f).IsMatch(); got != tt.want {
			t.Errorf("rating %d: match = %v, want %v", tt.rating, got, tt.want)
		}
	}
	if match("rating: >3", photos, file("a.jpg", nil)).IsMatch() {
		t.Error("file without metadata should not match")
	}
}

func TestMatchAgeScenario(t *testing.T) {
	recent := fileCreated("a.jpg", testNow.AddDate(0, 0, -5))
	old := fileCreated("b.jpg", testNow.AddDate(0, 0, -10))

	if !match("age: 7", photos, recent).IsMatch() {
		t.Error("5 day old file should match age 7")
	}
	if match("age: 7", photos, old).IsMatch() {
		t.Error("10 day old file should not match age 7")
	}
	if !match("age: >7", photos, old).IsMatch() {
		t.Error("10 day old file should match age >7")
	}
}

func TestMatchFNumberScenario(t *testing.T) {
	f := file("a.jpg", &metadata.Metadata{FNumber: 2.9})
	if !match("f/2.8", photos, f).IsMatch() {
		t.Error("2.9 should round to f/2.8")
	}
	if match("f/4", photos, f).IsMatch() {
		t.Error("2.9 should not match f/4")
	}
}

func TestMatchLocationScenario(t *testing.T) {
	near := file("a.jpg", &metadata.Metadata{Location: metadata.Coordinate{Latitude: 51.505, Longitude: -0.119}})
	far := file("b.jpg", &metadata.Metadata{Location: metadata.Coordinate{Latitude: 51.545, Longitude: -0.12}})
	none := file("c.jpg", &metadata.Metadata{Title: "x"})

	if !match("loc: 51.5,-0.12,1", photos, near).IsMatch() {
		t.Error("0.6 km away should match")
	}
	if match("loc: 51.5,-0.12,1", photos, far).IsMatch() {
		t.Error("5 km away should not match")
	}
	if match("loc: 51.5,-0.12,1", photos, none).IsMatch() {
		t.Error("file without GPS should not match")
	}
}

func TestMatchFolderWildcardScenario(t *testing.T) {
	folder := paths.NewFolder(`C:\Photos\2023\Summer`)
	f := file("a.jpg", nil)

	got := match(`"**\2023\**"`, folder, f)
	if got.Kind != MatchFolder {
		t.Errorf("match = %+v, want folder match", got)
	}
	if got := match(`"**\2023\**" zzz`, folder, f); got.Kind != MatchFolder {
		t.Errorf("folder wildcard should win regardless of other terms: %+v", got)
	}
	if match(`"**\2023\**"`, paths.NewFolder(`C:\Photos\2024`), f).IsMatch() {
		t.Error("other folder should not match")
	}
	if !match(`"**\2023\**"`, paths.NewFolder(`C:\Photos\2023`), f).IsMatch() {
		t.Error("last folder component should match")
	}
}

func TestMatchDates(t *testing.T) {
	xmas := fileCreated("a.jpg", time.Date(2023, 12, 25, 9, 0, 0, 0, time.UTC))
	eve := fileCreated("b.jpg", time.Date(2023, 12, 24, 9, 0, 0, 0, time.UTC))

	tests := []struct {
		query string
		file  *catalog.FileItem
		want  bool
	}{
		{"2023-dec-25", xmas, true},
		{"2023-dec-25", eve, false},
		{"2023-12-25", xmas, true},
		{"dec-25", xmas, true},
		{"dec-25", eve, false},
		{"2023-12", eve, true},
		{"december", eve, true},
		{"created: <2023-dec-25", eve, true},
		{"created: <2023-dec-25", xmas, false},
		{"created: >=2023-dec-25", xmas, true},
		{"created: 2022", xmas, false},
		{"2023", xmas, true},
		{"dec 25 2023", xmas, true},
		{"dec 25 2023", eve, false},
		{"December 25, 2023", xmas, true},
		{"25 December 2023", xmas, true},
		{"created: December 25, 2023", xmas, true},
		{"created: December 25, 2023", eve, false},
		{"25.12.2023", xmas, true},
		{"12/25/2023", xmas, true},
		{"2023.12.25", xmas, true},
		{`created:"December 25, 2023"`, xmas, true},
	}

	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.file.Name, func(t *testing.T) {
			if got := match(tt.query, photos, tt.file).IsMatch(); got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchGrouping(t *testing.T) {
	tests := []struct {
		query string
		name  string
		want  bool
	}{
		{"red (green or blue)", "red-green.jpg", true},
		{"red (green or blue)", "red-blue.jpg", true},
		{"red (green or blue)", "red-pink.jpg", false},
		{"red (green or blue)", "green-blue.jpg", false},
		{"red or green blue", "red-blue.jpg", true},
		{"red or green blue", "green-blue.jpg", true},
		{"red or green blue", "red-green.jpg", false},
		{"red | green", "green.jpg", true},
		{"red & green", "green.jpg", false},
		{"(red or green) (blue or pink)", "green-pink.jpg", true},
		{"(red or green) (blue or pink)", "green-white.jpg", false},
		{"((red green", "red-green.jpg", true},
		{"red) green", "red-green.jpg", true},
		{"red -green", "red-blue.jpg", true},
		{"red -green", "red-green.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.name, func(t *testing.T) {
			if got := match(tt.query, photos, file(tt.name, nil)).IsMatch(); got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchProvenance(t *testing.T) {
	f := file("x.jpg", &metadata.Metadata{Title: "sunset", Artist: "ana"})

	got := match("sunset ana", photos, f)
	if got.Kind != MatchProperty || got.Prop != props.Title {
		t.Errorf("match = %+v, want first positive term's property", got)
	}

	got = match("-zzz", photos, f)
	if got.Kind != Matched {
		t.Errorf("negated match = %+v, want plain match", got)
	}
}

func TestMatchFirstFieldWins(t *testing.T) {
	f := file("holiday.jpg", &metadata.Metadata{Title: "holiday", Comment: "holiday"})
	got := match("holiday", photos, f)
	if got.Prop != props.FileName {
		t.Errorf("Prop = %v, want the first field in scan order", got.Prop)
	}
}

func TestFreeTextFindsEveryTextField(t *testing.T) {
	typ := reflect.TypeOf(metadata.Metadata{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Type.Kind() != reflect.String {
			continue
		}
		t.Run(field.Name, func(t *testing.T) {
			md := &metadata.Metadata{}
			reflect.ValueOf(md).Elem().Field(i).SetString("zebracrossing")
			f := file("a.jpg", md)
			if !match("zebracrossing", photos, f).IsMatch() {
				t.Errorf("free text not found in %s", field.Name)
			}
			if !match("crossing", photos, f).IsMatch() {
				t.Errorf("free text substring not found in %s", field.Name)
			}
		})
	}
}

func TestMatchMediaTypeAndBloom(t *testing.T) {
	img := file("a.jpg", nil)
	vid := file("b.mp4", nil)

	if !match("@photo", photos, img).IsMatch() || match("@photo", photos, vid).IsMatch() {
		t.Error("media type match wrong")
	}
	if !match("-@photo", photos, vid).IsMatch() {
		t.Error("negated media type should match other groups")
	}
	if !match("@photo or @video", photos, vid).IsMatch() {
		t.Error("OR of media types must not be rejected by the bloom filter")
	}
}

func TestBloomSoundness(t *testing.T) {
	dup := file("a.jpg", &metadata.Metadata{DateTaken: testNow})
	dup.SetDuplicates(1, 2)
	plain := file("b.mp4", nil)
	items := []*catalog.FileItem{dup, plain, file("c.mp3", &metadata.Metadata{Title: "song"})}

	queries := []string{
		"@photo", "@video", "@duplicates", "-@duplicates", "taken: 2024",
		"@photo or @video", "-@photo", "(@photo or song) @duplicates", "taken: <2020 or @audio",
		"with: date", "rating: 3", "song",
	}
	for _, q := range queries {
		s := Parse(q, nil)
		m := NewMatcher(s, testNow, nil)
		full := NewMatcher(s, testNow, nil)
		full.bloom = 0
		for _, it := range items {
			if !it.Bloom().Satisfies(m.Bloom()) && full.MatchItem(photos, it).IsMatch() {
				t.Errorf("bloom for %q rejects %s which matches", q, it.Name)
			}
		}
	}
}

func TestMatchValues(t *testing.T) {
	f := catalog.NewFileItem(catalog.Attributes{Name: "a.jpg", Size: 1_960_000})
	f.SetMetadata(&metadata.Metadata{
		Width: 4000, Height: 3000, ISO: 400, ExposureTime: 1.0 / 500, FocalLength: 50,
		Duration: 90, Track: metadata.Pair{X: 3, Y: 12},
	})

	tests := []struct {
		query string
		want  bool
	}{
		{"size: 2mb", true},
		{"size: >3mb", false},
		{"size: <3mb", true},
		{"ISO400", true},
		{"iso: >=400", true},
		{"iso: >400", false},
		{"exposure: 1/500", true},
		{"exposure: <1/250", true},
		{"50mm", true},
		{"12mp", true},
		{"megapixels: >20", false},
		{"4000x3000", true},
		{"dimensions: >1920x1080", true},
		{"1:30", true},
		{"duration: >2m", false},
		{"track: 3", true},
		{"track: 3/10", false},
		{"with: iso", true},
		{"without: gps", true},
		{"with: rating", false},
		{"ext: JPG", true},
		{"ext: .png", false},
		{"name: a.jpg", true},
		{"name: =a", false},
		{"folder: photo", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := match(tt.query, photos, f).IsMatch(); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestMatchRelated(t *testing.T) {
	rel := catalog.NewFileItem(catalog.Attributes{Name: "a.jpg", Size: 10, Hash: "h1"})
	sameHash := catalog.NewFileItem(catalog.Attributes{Name: "copy.jpg", Size: 10, Hash: "h1"})
	sameNameSize := catalog.NewFileItem(catalog.Attributes{Name: "A.JPG", Size: 10})
	other := catalog.NewFileItem(catalog.Attributes{Name: "b.jpg", Size: 11, Hash: "h2"})

	s := Parse("related: /photos/a.jpg", nil)
	m := NewMatcher(s, testNow, rel)

	if got := m.MatchItem(photos, rel); got.Kind != Similar {
		t.Errorf("item itself = %+v", got)
	}
	if got := m.MatchItem(paths.NewFolder("/backup"), sameHash); got.Kind != Similar {
		t.Errorf("same hash = %+v", got)
	}
	if got := m.MatchItem(paths.NewFolder("/backup"), sameNameSize); got.Kind != Similar {
		t.Errorf("same name and size = %+v", got)
	}
	if m.MatchItem(photos, other).IsMatch() {
		t.Error("unrelated file matched")
	}

	strict := m.WithEquivalence(func(a, b *catalog.FileItem) bool { return a.Hash == b.Hash })
	if strict.MatchItem(paths.NewFolder("/backup"), sameNameSize).IsMatch() {
		t.Error("custom equivalence rule not applied")
	}

	unresolved := NewMatcher(s, testNow, nil)
	if !unresolved.MatchItem(photos, file("a.jpg", nil)).IsMatch() {
		t.Error("path identity should match without a resolved item")
	}
}

func TestMatchBrowse(t *testing.T) {
	s := &Search{Selectors: []Selector{{Folder: photos, Recursive: true}}}
	m := NewMatcher(s, testNow, nil)

	if got := m.MatchItem(paths.NewFolder("/photos/2023"), file("a.jpg", nil)); got.Kind != MatchFolder {
		t.Errorf("inside selector = %+v", got)
	}
	if m.MatchItem(paths.NewFolder("/music"), file("a.jpg", nil)).IsMatch() {
		t.Error("outside selector matched")
	}

	wild := NewMatcher(&Search{Selectors: []Selector{{Folder: photos, Wildcard: "*.png"}}}, testNow, nil)
	if wild.MatchItem(photos, file("a.jpg", nil)).IsMatch() {
		t.Error("wildcard selector should filter names")
	}
}

func TestMatchEmptySearch(t *testing.T) {
	if match("", photos, file("a.jpg", nil)).IsMatch() {
		t.Error("empty search should not match")
	}
}

func TestBuildTreeUnbalanced(t *testing.T) {
	s := Parse("((a b", nil)
	tree := buildTree(s.Terms)
	if tree.depth() != 3 {
		t.Errorf("depth = %d, want 3", tree.depth())
	}
	s = Parse("a)))) b", nil)
	if buildTree(s.Terms).depth() != 1 {
		t.Error("surplus closes should be ignored")
	}
}
