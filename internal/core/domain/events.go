package domain

import "time"

// EventType enumerates everything the pipeline publishes while running.
type EventType string

const (
	EventStageComplete    EventType = "stage_complete"
	EventStageProgress    EventType = "stage_progress"
	EventPipelineProgress EventType = "pipeline_progress"
	EventSourcesReady     EventType = "sources_ready"
	EventImagesReady      EventType = "images_ready"
	EventVideosReady      EventType = "videos_ready"
	EventResponseChunk    EventType = "response_chunk"
	EventResponseComplete EventType = "response_complete"
	EventSearchComplete   EventType = "search_complete"
	EventSearchError      EventType = "search_error"
)

// StreamEvent is one progress or partial-result notification. Data is
// event-type specific and must be JSON-serializable.
type StreamEvent struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
