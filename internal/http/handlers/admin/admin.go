package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vidstream/gateway/internal/services/media"
	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/types/admins"
	"github.com/vidstream/gateway/internal/utils/jwt"
	"github.com/vidstream/gateway/internal/utils/password"
	"github.com/vidstream/gateway/internal/utils/response"
)

// MediaRemover deletes objects from the media store.
type MediaRemover interface {
	Remove(ctx context.Context, bucket, key string) error
}

// ViewDeleter removes a video's view counter.
type ViewDeleter interface {
	Delete(ctx context.Context, reference string) error
}

// CreateAccount registers a new admin account and returns a token for it.
func CreateAccount(store storage.Admins, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req admins.CreateRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		_, err := store.FindAdminByName(r.Context(), req.Name)
		if err == nil {
			response.WriteJSON(w, http.StatusConflict, response.GeneralError(errors.New("the provided name is already an admin")))
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		hashed, err := password.HashPassword(req.Password)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to hash password")))
			return
		}

		admin := &admins.Admin{Name: req.Name, Password: hashed}
		if err := store.CreateAdmin(r.Context(), admin); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		slog.Info("admin account created", slog.String("name", req.Name))

		token, err := jwt.GenerateAdminToken(jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// Auth authenticates an admin and returns a fresh token.
func Auth(store storage.Admins, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req admins.AuthRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		admin, err := store.FindAdminByName(r.Context(), req.Name)
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("admin name or password is incorrect")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		if !password.CheckPassword(req.Password, admin.Password) {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("admin name or password is incorrect")))
			return
		}

		token, err := jwt.GenerateAdminToken(jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// DeleteVideo removes a video record together with its stored objects and
// its view counter.
func DeleteVideo(catalog storage.Catalog, store MediaRemover, counter ViewDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.PathValue("id")
		if reference == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("video ID is required")))
			return
		}

		video, err := catalog.DeleteVideo(r.Context(), reference)
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("video does not exist")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		if err := store.Remove(r.Context(), media.VideosBucket, reference); err != nil {
			slog.Error("failed to remove video object", slog.String("reference", reference), slog.String("error", err.Error()))
		}

		for _, preview := range video.Previews {
			if err := store.Remove(r.Context(), media.PreviewsBucket, preview); err != nil {
				slog.Error("failed to remove preview object", slog.String("key", preview), slog.String("error", err.Error()))
			}
		}

		if err := counter.Delete(r.Context(), reference); err != nil {
			slog.Error("failed to delete view counter", slog.String("reference", reference), slog.String("error", err.Error()))
		}

		slog.Info("video deleted", slog.String("reference", reference))

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Video deleted successfully", nil))
	}
}
