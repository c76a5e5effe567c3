package types

// EventType represents the type of real-time event pushed to clients.
type EventType string

const (
	EventSingleVideoUpdate EventType = "event/single-video-update"
	EventBatchVideoUpdate  EventType = "event/batch-video-update"
)

// Event is the JSON envelope delivered over the notifications socket.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewSingleVideoUpdate wraps one updated video record for broadcast.
func NewSingleVideoUpdate(video PublicVideo) *Event {
	return &Event{
		Type:    EventSingleVideoUpdate,
		Payload: video,
	}
}

// NewBatchVideoUpdate wraps a catch-up batch of video records.
func NewBatchVideoUpdate(videos []PublicVideo) *Event {
	return &Event{
		Type:    EventBatchVideoUpdate,
		Payload: videos,
	}
}
