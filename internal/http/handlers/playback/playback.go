package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vidstream/gateway/internal/services/media"
	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/utils/response"
)

// MediaStore is the part of the object store the serving path needs.
type MediaStore interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, string, error)
	GetRange(ctx context.Context, bucket, key string, start, end int64) (io.ReadCloser, string, error)
}

// ViewCounter records playback views.
type ViewCounter interface {
	Increment(ctx context.Context, reference string) error
}

// Video serves video bytes from the media store honoring HTTP Range
// requests, and counts a view for every satisfied playback request.
func Video(catalog storage.Catalog, store MediaStore, counter ViewCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.PathValue("id")
		if reference == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("you need to provide a video ID")))
			return
		}

		video, err := catalog.FindVideoByReference(r.Context(), reference)
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("video does not exist")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		// An unprocessed video looks the same as a missing one from outside.
		if !video.Available {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("video is not yet available")))
			return
		}

		rangeHeader := r.Header.Get("Range")

		start, end, err := parseRange(video.Size, rangeHeader)
		if err != nil {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", video.Size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		object, contentType, err := store.GetRange(r.Context(), media.VideosBucket, reference, start, end)
		if err != nil {
			serveStoreError(w, err)
			return
		}
		defer object.Close()

		status := http.StatusOK
		if rangeHeader != "" {
			status = http.StatusPartialContent
		}

		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, video.Size))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)

		if _, err := io.Copy(w, object); err != nil {
			slog.Warn("playback stream interrupted",
				slog.String("reference", reference),
				slog.String("error", err.Error()))
			return
		}

		// One view per satisfied request. Players issuing many small range
		// requests over-count; accepted approximation.
		if err := counter.Increment(r.Context(), reference); err != nil {
			slog.Error("failed to record view", slog.String("reference", reference), slog.String("error", err.Error()))
		}
	}
}

// Preview serves a preview image from the media store. There is no record
// gating and no view counting; store errors pass through with the store's
// reported status.
func Preview(store MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("id")
		if key == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("you need to provide a preview ID")))
			return
		}

		object, _, err := store.Get(r.Context(), media.PreviewsBucket, key)
		if err != nil {
			serveStoreError(w, err)
			return
		}
		defer object.Close()

		w.Header().Set("Content-Type", "image/png")

		if _, err := io.Copy(w, object); err != nil {
			slog.Warn("preview stream interrupted",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
}

// serveStoreError maps a media store failure to the status code the store
// reported, falling back to 500.
func serveStoreError(w http.ResponseWriter, err error) {
	var storeErr *media.Error
	if errors.As(err, &storeErr) && storeErr.StatusCode != 0 {
		response.WriteJSON(w, storeErr.StatusCode, response.GeneralError(storeErr))
		return
	}

	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
