package index

import (
	"context"
	"testing"

	"media-catalog/internal/catalog"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
	"media-catalog/internal/search"
)

var (
	photos     = paths.NewFolder("/photos")
	photos2023 = paths.NewFolder("/photos/2023")
	music      = paths.NewFolder("/music")
)

func queryState() *State {
	s := newTestState(nil, nil)
	s.MergeFolder(photos, []*catalog.FileItem{
		item("beach.jpg", 100, &metadata.Metadata{Tags: "beach, sunset"}),
		item("city.jpg", 200, &metadata.Metadata{Tags: "city"}),
		catalog.NewFolderEntry("2023", testNow),
	}, testNow)
	s.MergeFolder(photos2023, []*catalog.FileItem{
		item("dusk.jpg", 300, &metadata.Metadata{Tags: "sunset"}),
		item("dawn.jpg", 400, nil),
	}, testNow)
	s.MergeFolder(music, []*catalog.FileItem{
		item("track.mp3", 500, &metadata.Metadata{Title: "Sunset Boulevard"}),
	}, testNow)
	return s
}

func TestCountMatches(t *testing.T) {
	s := queryState()
	ctx := context.Background()

	tests := []struct {
		query   string
		files   int
		folders int
		size    int64
	}{
		{"#sunset", 2, 2, 400},
		{"sunset", 3, 3, 900},
		{"sunset @photo", 2, 2, 400},
		{"/photos/2023", 2, 1, 700},
		{`/photos/**`, 4, 2, 1000},
		{"zebra", 0, 0, 0},
		{"", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := s.CountMatches(ctx, search.Parse(tt.query, s))
			if got.Files != tt.files || got.Folders != tt.folders || got.Size != tt.size || got.Cancelled {
				t.Errorf("CountMatches(%q) = %+v, want files=%d folders=%d size=%d", tt.query, got, tt.files, tt.folders, tt.size)
			}
		})
	}
}

func TestQueryItemsStreamsHits(t *testing.T) {
	s := queryState()
	var hits []Hit
	n, cancelled := s.QueryItems(context.Background(), search.Parse("#sunset", s), nil, func(h Hit) bool {
		hits = append(hits, h)
		return true
	})
	if n != 2 || cancelled || len(hits) != 2 {
		t.Fatalf("QueryItems = %d, %v; hits %d", n, cancelled, len(hits))
	}
	for _, h := range hits {
		if h.Match.Kind != search.MatchProperty {
			t.Errorf("%s: kind = %v, want property match", h.File(), h.Match.Kind)
		}
	}
}

func TestQueryItemsSkipsExisting(t *testing.T) {
	s := queryState()
	existing := map[string]struct{}{
		paths.NewFile(photos, "beach.jpg").Key(): {},
	}
	var names []string
	s.QueryItems(context.Background(), search.Parse("#sunset", s), existing, func(h Hit) bool {
		names = append(names, h.Item.Name)
		return true
	})
	if len(names) != 1 || names[0] != "dusk.jpg" {
		t.Errorf("names = %v, want [dusk.jpg]", names)
	}
}

func TestQueryItemsStopsWhenCallbackDeclines(t *testing.T) {
	s := queryState()
	calls := 0
	n, _ := s.QueryItems(context.Background(), search.Parse("sunset", s), nil, func(Hit) bool {
		calls++
		return false
	})
	if calls != 1 || n != 1 {
		t.Errorf("calls = %d, n = %d, want 1", calls, n)
	}
}

func TestQueryCancelled(t *testing.T) {
	s := queryState()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := s.CountMatches(ctx, search.Parse("sunset", s))
	if !got.Cancelled || got.Files != 0 {
		t.Errorf("cancelled count = %+v", got)
	}
	_, cancelled := s.QueryItems(ctx, search.Parse("sunset", s), nil, func(Hit) bool { return true })
	if !cancelled {
		t.Error("cancelled query should report it")
	}
}

func TestBeginQueryCancelsPrevious(t *testing.T) {
	s := newTestState(nil, nil)
	first, cancel1 := s.BeginQuery(context.Background())
	defer cancel1()
	gen := s.Generation()

	second, cancel2 := s.BeginQuery(context.Background())
	defer cancel2()

	if first.Err() == nil {
		t.Error("first query should be cancelled when the second begins")
	}
	if second.Err() != nil {
		t.Error("second query should still run")
	}
	if s.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d", s.Generation(), gen+1)
	}
}

func TestQueryRelated(t *testing.T) {
	s := newTestState(nil, nil)
	a := catalog.NewFileItem(catalog.Attributes{Name: "a.jpg", Size: 10, Hash: "same"})
	b := catalog.NewFileItem(catalog.Attributes{Name: "copy.jpg", Size: 10, Hash: "same"})
	c := catalog.NewFileItem(catalog.Attributes{Name: "other.jpg", Size: 10, Hash: "different"})
	s.MergeFolder(photos, []*catalog.FileItem{a, c}, testNow)
	s.MergeFolder(music, []*catalog.FileItem{b}, testNow)

	q := &search.Search{Related: paths.NewFile(photos, "a.jpg")}
	var names []string
	s.QueryItems(context.Background(), q, nil, func(h Hit) bool {
		if h.Match.Kind != search.Similar {
			t.Errorf("kind = %v, want similar", h.Match.Kind)
		}
		names = append(names, h.Item.Name)
		return true
	})
	if len(names) != 2 {
		t.Errorf("related hits = %v, want a.jpg and copy.jpg", names)
	}
}
