package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidstream/gateway/internal/services/media"
	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/types"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name    string
		header  string
		start   int64
		end     int64
		wantErr bool
	}{
		{name: "no header means full object", header: "", start: 0, end: 999},
		{name: "explicit span", header: "bytes=0-499", start: 0, end: 499},
		{name: "mid span", header: "bytes=200-299", start: 200, end: 299},
		{name: "single byte", header: "bytes=42-42", start: 42, end: 42},
		{name: "open ended", header: "bytes=500-", start: 500, end: 999},
		{name: "suffix", header: "bytes=-100", start: 900, end: 999},
		{name: "suffix larger than object", header: "bytes=-5000", start: 0, end: 999},
		{name: "multi range uses first", header: "bytes=0-5,100-200", start: 0, end: 5},
		{name: "last byte", header: "bytes=999-999", start: 999, end: 999},
		{name: "start beyond size", header: "bytes=1000-1001", wantErr: true},
		{name: "end beyond size", header: "bytes=0-1000", wantErr: true},
		{name: "inverted", header: "bytes=500-400", wantErr: true},
		{name: "missing unit", header: "0-499", wantErr: true},
		{name: "garbage", header: "bytes=abc-def", wantErr: true},
		{name: "negative suffix", header: "bytes=--5", wantErr: true},
		{name: "empty spec", header: "bytes=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(size, tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %q", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Fatalf("Expected [%d, %d], got [%d, %d]", tt.start, tt.end, start, end)
			}
		})
	}
}

type fakeCatalog struct {
	videos map[string]*types.Video
}

func (c *fakeCatalog) CreateVideo(_ context.Context, video *types.Video) error {
	c.videos[video.Reference] = video
	return nil
}

func (c *fakeCatalog) FindVideoByReference(_ context.Context, reference string) (*types.Video, error) {
	video, ok := c.videos[reference]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return video, nil
}

func (c *fakeCatalog) FindAvailableVideos(context.Context) ([]types.Video, error) {
	return nil, nil
}

func (c *fakeCatalog) FindVideosUpdatedSince(context.Context, time.Time) ([]types.Video, error) {
	return nil, nil
}

func (c *fakeCatalog) ApplyCompletion(context.Context, types.CompletionEvent, string) (*types.Video, error) {
	return nil, storage.ErrNotFound
}

func (c *fakeCatalog) DeleteVideo(context.Context, string) (*types.Video, error) {
	return nil, storage.ErrNotFound
}

type fakeStore struct {
	objects map[string][]byte
}

func (s *fakeStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, string, error) {
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, "", &media.Error{StatusCode: http.StatusNotFound, Message: "the specified key does not exist"}
	}
	return io.NopCloser(bytes.NewReader(data)), "video/mp4", nil
}

func (s *fakeStore) GetRange(_ context.Context, bucket, key string, start, end int64) (io.ReadCloser, string, error) {
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, "", &media.Error{StatusCode: http.StatusNotFound, Message: "the specified key does not exist"}
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), "video/mp4", nil
}

type fakeCounter struct {
	increments map[string]int
}

func (c *fakeCounter) Increment(_ context.Context, reference string) error {
	if c.increments == nil {
		c.increments = make(map[string]int)
	}
	c.increments[reference]++
	return nil
}

func objectBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func playbackSetup() (*fakeCatalog, *fakeStore, *fakeCounter, []byte) {
	content := objectBytes(1000)

	catalog := &fakeCatalog{videos: map[string]*types.Video{
		"vid_ready": {
			Reference: "vid_ready",
			Size:      int64(len(content)),
			Available: true,
			Duration:  120,
			Previews:  []string{"p1"},
		},
		"vid_pending": {
			Reference: "vid_pending",
			Size:      int64(len(content)),
			Available: false,
		},
	}}

	store := &fakeStore{objects: map[string][]byte{
		media.VideosBucket + "/vid_ready": content,
	}}

	return catalog, store, &fakeCounter{}, content
}

func playbackRequest(id, rangeHeader string) (*httptest.ResponseRecorder, *http.Request) {
	r := httptest.NewRequest(http.MethodGet, "/video-playback/"+id, nil)
	r.SetPathValue("id", id)
	if rangeHeader != "" {
		r.Header.Set("Range", rangeHeader)
	}
	return httptest.NewRecorder(), r
}

func TestVideo_RangeRequest(t *testing.T) {
	catalog, store, counter, content := playbackSetup()
	handler := Video(catalog, store, counter)

	w, r := playbackRequest("vid_ready", "bytes=100-299")
	handler(w, r)

	if w.Code != http.StatusPartialContent {
		t.Fatalf("Expected 206, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != "200" {
		t.Fatalf("Expected Content-Length 200, got %q", got)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 100-299/1000" {
		t.Fatalf("Unexpected Content-Range %q", got)
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Unexpected Accept-Ranges %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("Unexpected Content-Type %q", got)
	}

	if !bytes.Equal(w.Body.Bytes(), content[100:300]) {
		t.Fatal("Body does not match the requested byte span")
	}

	if counter.increments["vid_ready"] != 1 {
		t.Fatalf("Expected exactly 1 view, got %d", counter.increments["vid_ready"])
	}
}

func TestVideo_NoRangeHeaderServesFullObject(t *testing.T) {
	catalog, store, counter, content := playbackSetup()
	handler := Video(catalog, store, counter)

	w, r := playbackRequest("vid_ready", "")
	handler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 without Range header, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != "1000" {
		t.Fatalf("Expected Content-Length 1000, got %q", got)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Fatal("Body does not match the full object")
	}
	if counter.increments["vid_ready"] != 1 {
		t.Fatalf("Expected exactly 1 view, got %d", counter.increments["vid_ready"])
	}
}

func TestVideo_UnsatisfiableRange(t *testing.T) {
	catalog, store, counter, _ := playbackSetup()
	handler := Video(catalog, store, counter)

	for _, header := range []string{"bytes=1000-1001", "bytes=0-1000", "bytes=500-400", "garbage"} {
		w, r := playbackRequest("vid_ready", header)
		handler(w, r)

		if w.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("Expected 416 for %q, got %d", header, w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes */1000" {
			t.Fatalf("Expected Content-Range \"bytes */1000\" for %q, got %q", header, got)
		}
		if w.Body.Len() != 0 {
			t.Fatalf("Expected empty body for %q", header)
		}
	}

	if len(counter.increments) != 0 {
		t.Fatal("Expected no views for unsatisfiable requests")
	}
}

func TestVideo_NotFound(t *testing.T) {
	catalog, store, counter, _ := playbackSetup()
	handler := Video(catalog, store, counter)

	// Unknown reference and not-yet-processed record both read as 404.
	for _, id := range []string{"vid_unknown", "vid_pending"} {
		w, r := playbackRequest(id, "")
		handler(w, r)

		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404 for %q, got %d", id, w.Code)
		}
	}

	if len(counter.increments) != 0 {
		t.Fatal("Expected no views for unserved requests")
	}
}

func TestVideo_MissingID(t *testing.T) {
	catalog, store, counter, _ := playbackSetup()
	handler := Video(catalog, store, counter)

	w, r := playbackRequest("", "")
	handler(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	_ = counter
}

func TestVideo_EveryValidRangeMatchesSlice(t *testing.T) {
	catalog, store, counter, content := playbackSetup()
	handler := Video(catalog, store, counter)

	spans := [][2]int64{{0, 0}, {0, 999}, {999, 999}, {1, 998}, {250, 750}}

	for _, span := range spans {
		w, r := playbackRequest("vid_ready", fmt.Sprintf("bytes=%d-%d", span[0], span[1]))
		handler(w, r)

		if w.Code != http.StatusPartialContent {
			t.Fatalf("Expected 206 for span %v, got %d", span, w.Code)
		}
		if got := w.Header().Get("Content-Length"); got != fmt.Sprintf("%d", span[1]-span[0]+1) {
			t.Fatalf("Unexpected Content-Length %q for span %v", got, span)
		}
		if !bytes.Equal(w.Body.Bytes(), content[span[0]:span[1]+1]) {
			t.Fatalf("Body mismatch for span %v", span)
		}
	}

	if counter.increments["vid_ready"] != len(spans) {
		t.Fatalf("Expected %d views, got %d", len(spans), counter.increments["vid_ready"])
	}
}

func TestPreview_ServesImage(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{
		media.PreviewsBucket + "/prev_1": []byte("png-bytes"),
	}}
	handler := Preview(store)

	r := httptest.NewRequest(http.MethodGet, "/previews/prev_1", nil)
	r.SetPathValue("id", "prev_1")
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("Expected image/png, got %q", got)
	}
	if w.Body.String() != "png-bytes" {
		t.Fatal("Unexpected preview body")
	}
}

func TestPreview_StoreErrorStatusPassesThrough(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	handler := Preview(store)

	r := httptest.NewRequest(http.MethodGet, "/previews/prev_missing", nil)
	r.SetPathValue("id", "prev_missing")
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected the store's 404 to pass through, got %d", w.Code)
	}
}

func TestServeStoreError_Fallback(t *testing.T) {
	w := httptest.NewRecorder()
	serveStoreError(w, errors.New("connection reset"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 fallback, got %d", w.Code)
	}
}
