package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	thumbs   map[string][]byte
	failures int64
}

func (f *fakeStore) LoadThumbnail(file paths.File) ([]byte, bool) {
	b, ok := f.thumbs[file.Key()]
	return b, ok
}

func (f *fakeStore) Failures() int64 { return f.failures }

type fakeExtractor struct {
	mu         sync.Mutex
	extracted  []string
	failOn     string
	thumbnails int
}

func (f *fakeExtractor) Extract(_ context.Context, path string, _ mediatypes.FileType) (*metadata.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filepath.Base(path) == f.failOn {
		return nil, errors.New("unreadable")
	}
	f.extracted = append(f.extracted, filepath.Base(path))
	return &metadata.Metadata{Title: "title of " + filepath.Base(path)}, nil
}

func (f *fakeExtractor) Thumbnail(context.Context, string, mediatypes.FileType) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbnails++
	return []byte("thumb"), nil
}

func (f *fakeExtractor) Hash(path string) (string, error) {
	return "hash-" + filepath.Base(path), nil
}

func newTestState(store Store, ex Extractor) *State {
	return New(store, ex, Options{Workers: 2, Now: func() time.Time { return testNow }})
}

func item(name string, size int64, md *metadata.Metadata) *catalog.FileItem {
	f := catalog.NewFileItem(catalog.Attributes{
		Name:     name,
		Size:     size,
		Created:  testNow.AddDate(0, 0, -30),
		Modified: testNow.AddDate(0, 0, -30),
	})
	if md != nil {
		f.SetMetadata(md)
	}
	return f
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("data of "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMergeFolderPreservesRicherMetadata(t *testing.T) {
	s := newTestState(nil, nil)
	folder := paths.NewFolder("/photos")

	rich := item("a.jpg", 100, &metadata.Metadata{Title: "Beach", Rating: 4})
	rich.SetCRC(42)
	s.MergeFolder(folder, []*catalog.FileItem{rich}, testNow)

	thin := item("a.jpg", 100, nil)
	entry, removed := s.MergeFolder(folder, []*catalog.FileItem{thin}, testNow)
	if len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
	got, ok := entry.Find("A.JPG")
	if !ok {
		t.Fatal("item not found")
	}
	if md := got.Metadata(); md == nil || md.Title != "Beach" || md.Rating != 4 {
		t.Errorf("metadata not preserved: %+v", md)
	}
	if got.CRC() != 42 {
		t.Errorf("CRC = %d, want 42", got.CRC())
	}
}

func TestMergeFolderDropsStateOfChangedFiles(t *testing.T) {
	s := newTestState(nil, nil)
	folder := paths.NewFolder("/photos")

	s.MergeFolder(folder, []*catalog.FileItem{item("a.jpg", 100, &metadata.Metadata{Title: "Old"})}, testNow)
	entry, _ := s.MergeFolder(folder, []*catalog.FileItem{item("a.jpg", 200, nil)}, testNow)

	got, _ := entry.Find("a.jpg")
	if got.Metadata() != nil {
		t.Error("metadata of a changed file should not be carried over")
	}
}

func TestMergeFolderReportsRemoved(t *testing.T) {
	s := newTestState(nil, nil)
	folder := paths.NewFolder("/photos")
	s.MergeFolder(folder, []*catalog.FileItem{item("a.jpg", 1, nil), item("b.jpg", 1, nil), item("c.jpg", 1, nil)}, testNow)

	_, removed := s.MergeFolder(folder, []*catalog.FileItem{item("b.jpg", 1, nil)}, testNow)
	if len(removed) != 2 || removed[0] != "a.jpg" || removed[1] != "c.jpg" {
		t.Errorf("removed = %v, want [a.jpg c.jpg]", removed)
	}
}

func TestMergeFolderKeepsItemsSorted(t *testing.T) {
	s := newTestState(nil, nil)
	folder := paths.NewFolder("/x")
	entry, _ := s.MergeFolder(folder, []*catalog.FileItem{item("c.jpg", 1, nil), item("A.jpg", 1, nil), item("b.jpg", 1, nil)}, testNow)

	var names []string
	for _, f := range entry.Files() {
		names = append(names, f.Name)
	}
	want := []string{"A.jpg", "b.jpg", "c.jpg"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestReplaceAndRemoveItem(t *testing.T) {
	s := newTestState(nil, nil)
	folder := paths.NewFolder("/x")
	s.ReplaceItem(folder, item("a.jpg", 1, nil))
	s.ReplaceItem(folder, item("b.jpg", 1, nil))

	if !s.FileExists(paths.NewFile(folder, "B.JPG")) {
		t.Error("replaced item not found")
	}
	old := s.FolderItem(folder)
	if !s.RemoveItem(paths.NewFile(folder, "a.jpg")) {
		t.Error("RemoveItem reported nothing removed")
	}
	if s.RemoveItem(paths.NewFile(folder, "a.jpg")) {
		t.Error("second RemoveItem should report false")
	}
	if old.Len() != 2 {
		t.Error("readers holding the old entry must not see the removal")
	}
	writes := s.DequeueAll()
	if len(writes) != 1 || writes[0].Kind != WriteRemove {
		t.Errorf("writes = %+v, want one removal", writes)
	}
}

func TestSubtreeAndRemoveFolder(t *testing.T) {
	s := newTestState(nil, nil)
	for _, f := range []string{"/media", "/media/a", "/media/a/b", "/mediafiles", "/other"} {
		s.MergeFolder(paths.NewFolder(f), nil, testNow)
	}

	if got := len(s.subtree(paths.NewFolder("/media"), true)); got != 3 {
		t.Errorf("recursive subtree = %d folders, want 3", got)
	}
	if got := len(s.subtree(paths.NewFolder("/media"), false)); got != 1 {
		t.Errorf("flat subtree = %d folders, want 1", got)
	}
	if n := s.RemoveFolder(paths.NewFolder("/media/a"), true); n != 2 {
		t.Errorf("RemoveFolder = %d, want 2", n)
	}
	if got := len(s.Folders()); got != 3 {
		t.Errorf("remaining folders = %d, want 3", got)
	}
}

func TestLinkSubfolders(t *testing.T) {
	s := newTestState(nil, nil)
	s.MergeFolder(paths.NewFolder("/media"), []*catalog.FileItem{item("a.jpg", 1, nil)}, testNow)
	s.MergeFolder(paths.NewFolder("/media/2023"), nil, testNow)
	s.MergeFolder(paths.NewFolder("/media/2023/june"), nil, testNow)

	if n := s.LinkSubfolders(); n != 2 {
		t.Fatalf("LinkSubfolders = %d, want 2", n)
	}
	if e, ok := s.FolderItem(paths.NewFolder("/media")).Find("2023"); !ok || !e.IsFolder() {
		t.Error("expected a folder entry for 2023 in /media")
	}
	if _, ok := s.FolderItem(paths.NewFolder("/media/2023")).Find("june"); !ok {
		t.Error("expected a folder entry for june in /media/2023")
	}
	if n := s.LinkSubfolders(); n != 0 {
		t.Errorf("second LinkSubfolders = %d, want 0", n)
	}
	if got := len(s.FolderItem(paths.NewFolder("/media")).Files()); got != 2 {
		t.Errorf("/media lists %d items, want 2", got)
	}
}

func TestWriteQueue(t *testing.T) {
	store := &fakeStore{thumbs: map[string][]byte{}}
	s := newTestState(store, nil)
	folder := paths.NewFolder("/x")
	file := paths.NewFile(folder, "a.jpg")
	s.ReplaceItem(folder, item("a.jpg", 1, nil))

	if !s.SaveCRC(file, 7) || !s.SaveMediaPosition(file, 90) {
		t.Error("saving a catalogued file failed")
	}
	if !s.SaveLocation(file, metadata.Coordinate{Latitude: 51.5, Longitude: -0.1}) {
		t.Error("SaveLocation failed for a catalogued file")
	}
	if s.SaveLocation(paths.NewFile(folder, "missing.jpg"), metadata.Coordinate{Latitude: 1, Longitude: 1}) {
		t.Error("SaveLocation should fail for unknown files")
	}
	s.SaveThumbnail(file, []byte("new"))

	got, _ := s.File(file)
	if got.CRC() != 7 || got.MediaPosition() != 90 || !got.HasThumbnail() {
		t.Error("in-memory item not updated")
	}
	if loc, ok := got.Metadata().Coordinate(); !ok || loc.Latitude != 51.5 {
		t.Errorf("location = %+v", loc)
	}
	if thumb, ok := s.Thumbnail(file); !ok || string(thumb) != "new" {
		t.Errorf("queued thumbnail = %q, %v", thumb, ok)
	}

	writes := s.DequeueAll()
	kinds := []WriteKind{WriteCRC, WritePosition, WriteProperties, WriteThumbnail}
	if len(writes) != len(kinds) {
		t.Fatalf("got %d writes, want %d", len(writes), len(kinds))
	}
	for i, k := range kinds {
		if writes[i].Kind != k {
			t.Errorf("write %d = %v, want %v", i, writes[i].Kind, k)
		}
	}
	if s.PendingWrites() != 0 {
		t.Error("queue not drained")
	}

	store.thumbs[file.Key()] = []byte("stored")
	if thumb, ok := s.Thumbnail(file); !ok || string(thumb) != "stored" {
		t.Errorf("stored thumbnail = %q, %v", thumb, ok)
	}

	s.SaveCRC(file, 8)
	s.Requeue(writes[:2])
	again := s.DequeueAll()
	if len(again) != 3 || again[0].Kind != WriteCRC || again[0].CRC != 7 || again[2].CRC != 8 {
		t.Errorf("requeued writes out of order: %+v", again)
	}
}

func TestSaveSkipsUnknownFiles(t *testing.T) {
	s := newTestState(&fakeStore{}, nil)
	folder := paths.NewFolder("/x")
	s.ReplaceItem(folder, item("a.jpg", 1, nil))
	ghost := paths.NewFile(folder, "ghost.jpg")

	if s.SaveCRC(ghost, 7) {
		t.Error("SaveCRC accepted a file that is not catalogued")
	}
	if s.SaveMediaPosition(ghost, 90) {
		t.Error("SaveMediaPosition accepted a file that is not catalogued")
	}
	if s.SaveMediaPosition(paths.NewFile(paths.NewFolder("/elsewhere"), "a.jpg"), 90) {
		t.Error("SaveMediaPosition accepted a file in an unknown folder")
	}
	if n := s.PendingWrites(); n != 0 {
		t.Errorf("%d writes queued for unknown files", n)
	}
}

func TestHasErrors(t *testing.T) {
	store := &fakeStore{}
	s := newTestState(store, nil)
	if s.HasErrors() {
		t.Error("fresh state reports errors")
	}
	store.failures = 1
	if !s.HasErrors() {
		t.Error("database failures should be reported")
	}
	store.failures = 0
	s.recordError()
	if !s.HasErrors() {
		t.Error("scan errors should be reported")
	}
}

func TestReset(t *testing.T) {
	s := newTestState(nil, nil)
	folder := paths.NewFolder("/x")
	s.MergeFolder(folder, []*catalog.FileItem{item("a.jpg", 1, nil)}, testNow)
	s.SaveCRC(paths.NewFile(folder, "a.jpg"), 1)
	s.UpdateSummary()
	ctx, cancel := s.BeginQuery(context.Background())
	defer cancel()

	s.Reset()
	if len(s.Folders()) != 0 || s.PendingWrites() != 0 || s.Summary().Files != 0 {
		t.Error("state not cleared")
	}
	if ctx.Err() == nil {
		t.Error("running query should be cancelled")
	}
}

func TestStats(t *testing.T) {
	s := newTestState(nil, nil)
	offline := catalog.NewFileItem(catalog.Attributes{Name: "gone.jpg", Offline: true})
	s.MergeFolder(paths.NewFolder("/x"), []*catalog.FileItem{
		item("a.jpg", 10, nil),
		item("b.mp3", 20, nil),
		offline,
		catalog.NewFolderEntry("sub", testNow),
	}, testNow)

	st := s.Stats()
	if st.Folders != 1 || st.Files != 3 || st.Offline != 1 || st.TotalSize != 30 {
		t.Errorf("stats = %+v", st)
	}
}
