package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vidstream/gateway/internal/types"
	"github.com/vidstream/gateway/internal/types/admins"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Catalog is the contract the gateway requires from the video metadata store.
type Catalog interface {
	CreateVideo(ctx context.Context, video *types.Video) error
	FindVideoByReference(ctx context.Context, reference string) (*types.Video, error)
	FindAvailableVideos(ctx context.Context) ([]types.Video, error)
	FindVideosUpdatedSince(ctx context.Context, since time.Time) ([]types.Video, error)
	ApplyCompletion(ctx context.Context, event types.CompletionEvent, thumbnail string) (*types.Video, error)
	DeleteVideo(ctx context.Context, reference string) (*types.Video, error)
}

// Admins is the contract for administrator account storage.
type Admins interface {
	CreateAdmin(ctx context.Context, admin *admins.Admin) error
	FindAdminByName(ctx context.Context, name string) (*admins.Admin, error)
}
