package types

import "time"

// Video is the catalog record kept for every uploaded media file. The
// reference is the only identifier clients ever see; the Mongo object id
// stays internal.
type Video struct {
	Reference string    `bson:"reference" json:"reference"`
	Title     string    `bson:"title" json:"title"`
	MimeType  string    `bson:"mimetype" json:"mimetype"`
	Size      int64     `bson:"size" json:"size"`
	Available bool      `bson:"available" json:"available"`
	Duration  float64   `bson:"duration" json:"duration"`
	Step      int       `bson:"step" json:"step"`
	Previews  []string  `bson:"previews" json:"previews"`
	Thumbnail string    `bson:"thumbnail" json:"thumbnail"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicVideo is the wire representation of a video record. The internal
// reference field is renamed to id and storage-only fields are dropped.
type PublicVideo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Duration  float64   `json:"duration"`
	Size      int64     `json:"size"`
	Available bool      `json:"available"`
	Views     int64     `json:"views"`
	Previews  []string  `json:"previews"`
	Step      int       `json:"step"`
	Thumbnail string    `json:"thumbnail"`
	MimeType  string    `json:"mimetype"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public converts a catalog record into its wire representation, merging in
// the current view count.
func (v *Video) Public(views int64) PublicVideo {
	previews := v.Previews
	if previews == nil {
		previews = []string{}
	}

	return PublicVideo{
		ID:        v.Reference,
		Title:     v.Title,
		Duration:  v.Duration,
		Size:      v.Size,
		Available: v.Available,
		Views:     views,
		Previews:  previews,
		Step:      v.Step,
		Thumbnail: v.Thumbnail,
		MimeType:  v.MimeType,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// ProcessingJob is the message published to the process queue after a
// successful upload. The external worker picks it up from there.
type ProcessingJob struct {
	Reference string `json:"reference"`
	MimeType  string `json:"mimetype"`
}

// CompletionEvent is the message the external worker publishes to the
// metadata queue once transcoding and preview generation have finished.
type CompletionEvent struct {
	Reference string   `json:"reference"`
	Duration  float64  `json:"duration"`
	Step      int      `json:"step"`
	Previews  []string `json:"previews"`
}
