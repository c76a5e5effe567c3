package videos

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidstream/gateway/internal/services/media"
	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/types"
	"github.com/vidstream/gateway/internal/utils/response"
)

// acceptedMimeTypes is the fixed set of upload types the gateway takes.
var acceptedMimeTypes = []string{
	"video/avi",
	"video/mpeg",
	"video/x-mpeg",
	"video/mp4",
	"video/ogg",
	"video/webm",
}

const defaultTitle = "Untitled video"

// MediaStore is the part of the object store the upload path needs.
type MediaStore interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (int64, error)
}

// JobPublisher publishes processing jobs for the external worker.
type JobPublisher interface {
	PublishProcessingJob(ctx context.Context, job types.ProcessingJob) error
}

// ViewCounter reads per-video view counts.
type ViewCounter interface {
	Get(ctx context.Context, reference string) (int64, error)
	GetMany(ctx context.Context, references []string) (map[string]int64, error)
}

// ListResponse carries the available videos plus a catch-up token the client
// can use to resume notifications from this point.
type ListResponse struct {
	Token  int64               `json:"token"`
	Videos []types.PublicVideo `json:"videos"`
}

// List returns every available video with its view count, stamped with a
// fresh token.
func List(catalog storage.Catalog, counter ViewCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := catalog.FindAvailableVideos(r.Context())
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		references := make([]string, len(records))
		for i, record := range records {
			references[i] = record.Reference
		}

		counts, err := counter.GetMany(r.Context(), references)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		videos := make([]types.PublicVideo, len(records))
		for i, record := range records {
			videos[i] = record.Public(counts[record.Reference])
		}

		response.WriteJSON(w, http.StatusOK, ListResponse{
			Token:  time.Now().UnixMilli(),
			Videos: videos,
		})
	}
}

// Get returns one video record with its view count.
func Get(catalog storage.Catalog, counter ViewCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.PathValue("id")
		if reference == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("video ID is required")))
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

		count, err := counter.Get(r.Context(), reference)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, video.Public(count))
	}
}

// Upload accepts a single-file multipart upload, streams it into the media
// store, registers the pending catalog record and publishes a processing job.
// The store write completes before the record is created, and the record
// exists before the job is published, so the completion consumer can never
// observe a job for a record that is not there yet.
func Upload(catalog storage.Catalog, store MediaStore, publisher JobPublisher, maxFileSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)

		reader, err := r.MultipartReader()
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("couldn't process the file successfully")))
			return
		}

		title := defaultTitle

		// Walk the parts until the file shows up; a title field may precede it.
		var filePart io.Reader
		var mimetype string

		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if isBodyTooLarge(err) {
					response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.GeneralError(errors.New("uploaded file exceeds the size limit")))
					return
				}
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("couldn't process the file successfully")))
				return
			}

			if part.FileName() == "" {
				if part.FormName() == "title" {
					if value := readFormValue(part); value != "" {
						title = value
					}
				}
				continue
			}

			filePart = part
			mimetype = part.Header.Get("Content-Type")
			break
		}

		if filePart == nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("couldn't process the file successfully")))
			return
		}

		if !isAcceptedMimeType(mimetype) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("provided file's mimetype is not supported")))
			return
		}

		// Create a unique reference for the video.
		reference := "vid_" + uuid.NewString()

		// Stream the body straight into the store; size is unknown up front.
		size, err := store.Put(r.Context(), media.VideosBucket, reference, filePart, -1, mimetype)
		if err != nil {
			if isBodyTooLarge(err) {
				response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.GeneralError(errors.New("uploaded file exceeds the size limit")))
				return
			}
			slog.Error("failed to store upload", slog.String("reference", reference), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to store the file")))
			return
		}

		video := &types.Video{
			Reference: reference,
			Title:     title,
			MimeType:  mimetype,
			Size:      size,
			Available: false,
			Previews:  []string{},
		}

		if err := catalog.CreateVideo(r.Context(), video); err != nil {
			slog.Error("failed to create video record", slog.String("reference", reference), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to register the video")))
			return
		}

		job := types.ProcessingJob{Reference: reference, MimeType: mimetype}
		if err := publisher.PublishProcessingJob(r.Context(), job); err != nil {
			slog.Error("failed to publish processing job", slog.String("reference", reference), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to queue the video for processing")))
			return
		}

		slog.Info("video uploaded",
			slog.String("reference", reference),
			slog.String("mimetype", mimetype),
			slog.Int64("size", size))

		response.WriteJSON(w, http.StatusOK, video.Public(0))
	}
}

// isBodyTooLarge reports whether an error originated from the request body
// hitting the MaxBytesReader cap, however deep it sits in the wrap chain.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func isAcceptedMimeType(mimetype string) bool {
	for _, accepted := range acceptedMimeTypes {
		if mimetype == accepted {
			return true
		}
	}
	return false
}

// readFormValue reads a small text field from a multipart part.
func readFormValue(part io.Reader) string {
	value, err := io.ReadAll(io.LimitReader(part, 256))
	if err != nil {
		return ""
	}
	return string(value)
}
