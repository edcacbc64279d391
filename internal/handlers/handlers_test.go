package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/index"
	"media-catalog/internal/indexer"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/paths"
	"media-catalog/internal/startup"

	"github.com/gorilla/mux"
)

type testEnv struct {
	mediaDir string
	db       *database.Database
	idx      *indexer.Indexer
	h        *Handlers
	router   *mux.Router
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// setupTestEnv indexes a small media tree into a real sqlite catalog.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir := t.TempDir()
	mediaDir := filepath.Join(tempDir, "media")
	for _, dir := range []string{"photos", "music"} {
		if err := os.MkdirAll(filepath.Join(mediaDir, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writePNG(t, filepath.Join(mediaDir, "photos", "red.png"), 200, 100)
	writePNG(t, filepath.Join(mediaDir, "photos", "blue.png"), 50, 50)
	if err := os.WriteFile(filepath.Join(mediaDir, "music", "song.mp3"), []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mediaDir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err := database.New(context.Background(), filepath.Join(tempDir, "catalog.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})

	state := index.New(db, nil, index.Options{Workers: 2})
	idx := indexer.New(state, db, indexer.Config{Roots: []paths.Folder{paths.NewFolder(mediaDir)}})
	// Registered after the database so background work stops before it closes.
	t.Cleanup(idx.Stop)

	if err := idx.Index(context.Background(), false); err != nil {
		t.Fatalf("Index: %v", err)
	}

	h := New(idx, db, &startup.Config{GenerateThumbnails: true, ThumbnailSize: 64})
	router := mux.NewRouter()
	h.RegisterRoutes(router, true)

	return &testEnv{mediaDir: mediaDir, db: db, idx: idx, h: h, router: router}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) file(parts ...string) paths.File {
	return paths.ParseFile(filepath.Join(append([]string{e.mediaDir}, parts...)...))
}

func TestSearchStreamsJSONArray(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/search?q="+url.QueryEscape("@photo"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var items []ItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	for _, item := range items {
		if item.Type != mediatypes.FileTypeImage {
			t.Errorf("%s: type = %s, want image", item.Path, item.Type)
		}
		if !strings.HasPrefix(item.Path, env.mediaDir) {
			t.Errorf("path %q outside media dir", item.Path)
		}
		if item.Match == "" {
			t.Errorf("%s: match kind missing", item.Path)
		}
	}
}

func TestSearchLimitAndEmptyQuery(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"limit caps results", "/api/search?limit=1&q=" + url.QueryEscape("@photo"), 1},
		{"empty query", "/api/search?q=", 0},
		{"no matches", "/api/search?q=zebra", 0},
		{"live search", "/api/search?live=true&q=" + url.QueryEscape("@music"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.query, nil)
			var items []ItemResponse
			if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
				t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
			}
			if len(items) != tt.want {
				t.Errorf("got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestCount(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/count?q="+url.QueryEscape("@photo"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result index.CountResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Files != 2 || result.Folders != 1 || result.Cancelled {
		t.Errorf("count = %+v, want 2 files in 1 folder", result)
	}
}

func TestSummaryAndStats(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/summary", nil)
	var sum index.Summary
	if err := json.NewDecoder(w.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Files != 3 {
		t.Errorf("summary files = %d, want 3", sum.Files)
	}
	if sum.Types[mediatypes.FileTypeImage] != 2 || sum.Types[mediatypes.FileTypeAudio] != 1 {
		t.Errorf("summary types = %v", sum.Types)
	}

	w = env.do(t, http.MethodGet, "/api/stats", nil)
	var stats index.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Files != 3 {
		t.Errorf("stats files = %d, want 3", stats.Files)
	}
}

func TestPredictions(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/predictions?limit=3&q="+url.QueryEscape("red @"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var preds []string
	if err := json.NewDecoder(w.Body).Decode(&preds); err != nil {
		t.Fatal(err)
	}
	if preds == nil || len(preds) > 3 {
		t.Errorf("predictions = %v, want a JSON array of at most 3", preds)
	}
}

func TestThumbnailGeneratedOnDemand(t *testing.T) {
	env := setupTestEnv(t)
	file := env.file("photos", "red.png")

	w := env.do(t, http.MethodGet, "/api/thumbnail"+filepath.ToSlash(file.Text()), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("thumbnail is %dx%d, want 64x32", b.Dx(), b.Dy())
	}

	// The generated thumbnail is queued and served from the queue next time.
	if _, ok := env.h.state.Thumbnail(file); !ok {
		t.Error("generated thumbnail was not saved")
	}
}

func TestThumbnailErrors(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name   string
		file   paths.File
		status int
	}{
		{"not catalogued", env.file("notes.txt"), http.StatusNotFound},
		{"missing", env.file("photos", "gone.png"), http.StatusNotFound},
		{"unsupported type", env.file("music", "song.mp3"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/thumbnail"+filepath.ToSlash(tt.file.Text()), nil)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestItem(t *testing.T) {
	env := setupTestEnv(t)
	file := env.file("photos", "blue.png")

	w := env.do(t, http.MethodGet, "/api/items?path="+url.QueryEscape(file.Text()), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var item ItemResponse
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatal(err)
	}
	if item.Name != "blue.png" || item.Size == 0 {
		t.Errorf("item = %+v", item)
	}

	if w := env.do(t, http.MethodGet, "/api/items?path=", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty path status = %d, want 400", w.Code)
	}
}

func TestComputeCRC(t *testing.T) {
	env := setupTestEnv(t)
	file := env.file("music", "song.mp3")

	w := env.do(t, http.MethodPost, "/api/items/crc", map[string]string{"path": file.Text()})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("%08X", crc32.ChecksumIEEE([]byte("not really audio")))
	if resp["crc"] != want {
		t.Errorf("crc = %q, want %q", resp["crc"], want)
	}
	item, _ := env.h.state.File(file)
	if fmt.Sprintf("%08X", item.CRC()) != want {
		t.Errorf("item CRC = %08X, want %s", item.CRC(), want)
	}
}

func TestSavePositionAndLocation(t *testing.T) {
	env := setupTestEnv(t)
	file := env.file("photos", "red.png")

	tests := []struct {
		name   string
		target string
		body   interface{}
		status int
	}{
		{"position", "/api/items/position", map[string]interface{}{"path": file.Text(), "position": 42}, http.StatusOK},
		{"negative position", "/api/items/position", map[string]interface{}{"path": file.Text(), "position": -1}, http.StatusBadRequest},
		{"position unknown file", "/api/items/position", map[string]interface{}{"path": "/elsewhere/x.png", "position": 1}, http.StatusNotFound},
		{"location", "/api/items/location", map[string]interface{}{"path": file.Text(), "latitude": 48.8584, "longitude": 2.2945}, http.StatusOK},
		{"invalid location", "/api/items/location", map[string]interface{}{"path": file.Text(), "latitude": 95.0, "longitude": 0.5}, http.StatusBadRequest},
		{"unknown field", "/api/items/location", map[string]interface{}{"path": file.Text(), "lat": 1.0}, http.StatusBadRequest},
		{"malformed body", "/api/items/crc", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.target, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}

	item, _ := env.h.state.File(file)
	if item.MediaPosition() != 42 {
		t.Errorf("position = %d, want 42", item.MediaPosition())
	}
	if loc := item.Metadata().Location; loc.Latitude != 48.8584 {
		t.Errorf("location = %+v", loc)
	}
	if env.h.state.PendingWrites() == 0 {
		t.Error("updates should be queued for the database")
	}
}

func TestImports(t *testing.T) {
	env := setupTestEnv(t)
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	w := env.do(t, http.MethodPost, "/api/imports", ImportRequest{Name: "IMG_0001.JPG", Modified: modified, Size: 1234})
	if w.Code != http.StatusCreated {
		t.Fatalf("record status = %d, body %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name     string
		query    string
		status   int
		imported bool
	}{
		{"unix seconds", fmt.Sprintf("name=img_0001.jpg&size=1234&modified=%d", modified.Unix()), http.StatusOK, true},
		{"date string", "name=IMG_0001.JPG&size=1234&modified=" + url.QueryEscape("2024-05-01 12:00:00"), http.StatusOK, true},
		{"different size", fmt.Sprintf("name=IMG_0001.JPG&size=1&modified=%d", modified.Unix()), http.StatusOK, false},
		{"missing name", "size=1&modified=0", http.StatusBadRequest, false},
		{"bad size", "name=a&size=big&modified=0", http.StatusBadRequest, false},
		{"bad time", "name=a&size=1&modified=whenever", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/imports/check?"+tt.query, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp map[string]bool
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp["imported"] != tt.imported {
				t.Errorf("imported = %v, want %v", resp["imported"], tt.imported)
			}
		})
	}

	if w := env.do(t, http.MethodPost, "/api/imports", map[string]interface{}{"name": "", "size": 1}); w.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", w.Code)
	}
}

func TestReindexAndMaintenance(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/maintenance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("compact status = %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/reindex?full=true", nil)
	if w.Code != http.StatusAccepted && w.Code != http.StatusConflict {
		t.Fatalf("reindex status = %d", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/api/reindex", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reindex status = %d, want 405", w.Code)
	}
}

func TestWrongMethodIsRejected(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/reindex", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/search?q=a", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/items/crc", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/thumbnail/x.png", http.StatusMethodNotAllowed},
		{http.MethodPost, "/healthz", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/nothing-here", http.StatusNotFound},
		{http.MethodGet, "/nothing-here", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := env.do(t, tt.method, tt.target, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusMethodNotAllowed {
				if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
					t.Errorf("Content-Type = %q, want JSON", ct)
				}
			}
		})
	}
}

func TestMaintenanceReset(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/maintenance?reset=true", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("reset status = %d, body %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(10 * time.Second)
	for env.idx.IsIndexing() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if env.idx.IsIndexing() {
		t.Fatal("reset did not finish")
	}
	if got := env.h.state.Summary().Files; got != 3 {
		t.Errorf("files after reset = %d, want 3", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != statusHealthy || !health.Ready {
		t.Errorf("health = %+v", health)
	}
	if health.TotalFiles != 3 {
		t.Errorf("health total files = %d, want 3", health.TotalFiles)
	}

	for _, path := range []string{"/livez", "/readyz"} {
		if w := env.do(t, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}

func TestHealthStatus(t *testing.T) {
	tests := []struct {
		name   string
		status indexer.HealthStatus
		want   string
	}{
		{"loading", indexer.HealthStatus{}, statusStarting},
		{"ready", indexer.HealthStatus{Ready: true}, statusHealthy},
		{"first index failed", indexer.HealthStatus{Ready: true, InitialIndexError: "boom"}, statusDegraded},
		{"database failing", indexer.HealthStatus{Ready: true, DatabaseErrors: true}, statusDegraded},
		{"loading with errors", indexer.HealthStatus{DatabaseErrors: true}, statusStarting},
	}
	for _, tt := range tests {
		if got := healthStatus(tt.status); got != tt.want {
			t.Errorf("%s: healthStatus = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestHealthNotReady(t *testing.T) {
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	idx := indexer.New(index.New(db, nil, index.Options{}), db, indexer.Config{})
	h := New(idx, db, &startup.Config{})

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", w.Code)
	}
}

func TestGetVersion(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/api/version", http.NoBody))

	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
	var info startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion missing")
	}
}

func TestMetricsRoute(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "media_catalog_") {
		t.Error("metrics output lacks catalog metrics")
	}
}

func TestParseFilePath(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/media/a.jpg", "/media/a.jpg", true},
		{"media/a.jpg", "/media/a.jpg", true},
		{`C:\photos\a.jpg`, `C:\photos\a.jpg`, true},
		{"", "", false},
		{"/media/", "", false},
	}

	for _, tt := range tests {
		got, ok := parseFilePath(tt.in)
		if ok != tt.wantOK {
			t.Errorf("parseFilePath(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && got.Text() != tt.want {
			t.Errorf("parseFilePath(%q) = %q, want %q", tt.in, got.Text(), tt.want)
		}
	}
}
