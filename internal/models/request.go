// ABOUTME: Request-side data structures for one critique run
// ABOUTME: Defines RequestItem payloads and size-bounded Chunks
package models

// RequestStatus tracks where a request is in the pipeline.
type RequestStatus string

const (
	// StatusPending means the request exists but has not been submitted.
	StatusPending RequestStatus = "pending"

	// StatusSubmitted means the request is part of an in-flight batch.
	StatusSubmitted RequestStatus = "submitted"

	// StatusResolved means a ResultItem (success or error) exists for it.
	StatusResolved RequestStatus = "resolved"
)

// Payload is the encoded request body for a single image.
type Payload struct {
	// Data is the base64-encoded image bytes.
	Data string

	// MediaType is the MIME type the encoding was derived from.
	MediaType string

	// Size is the encoded byte count used for chunk packing.
	Size int64
}

// RequestItem is one unit of work: a single image to critique.
// Immutable after creation except for Status.
type RequestItem struct {
	// ID is stable across runs for the same file and position, e.g. img_0003_sunset.
	ID       string
	Path     string
	Filename string

	// Index is the position in discovery order; used for tie-breaking in reports.
	Index int

	Payload Payload
	Status  RequestStatus
}

// Chunk is an ordered, non-empty group of requests submitted as one batch.
type Chunk struct {
	// ID is derived from chunk position, so identical input produces
	// identical IDs and a checkpoint from a prior run maps cleanly.
	ID    string
	Items []RequestItem
}

// TotalBytes returns the summed payload size of all items in the chunk.
func (c Chunk) TotalBytes() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Payload.Size
	}
	return total
}

// ItemIDs returns the ids of all items in order.
func (c Chunk) ItemIDs() []string {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ID
	}
	return ids
}
