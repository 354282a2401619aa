// ABOUTME: Result-side data structures: critiques and per-item errors
// ABOUTME: Exactly one ResultItem exists per resolved RequestItem
package models

// ErrorKind classifies why an item has no critique.
type ErrorKind string

const (
	// ErrCorruptInput means the source file could not be read or decoded.
	ErrCorruptInput ErrorKind = "corrupt_input"

	// ErrPayloadTooLarge means a single payload exceeds the per-batch byte ceiling.
	ErrPayloadTooLarge ErrorKind = "payload_too_large"

	// ErrProviderRejected means the provider declined to process this item.
	ErrProviderRejected ErrorKind = "provider_rejected"

	// ErrMissingResult means the batch ended but no response carried this id.
	ErrMissingResult ErrorKind = "missing_result"
)

// Critique is the parsed model response for one image.
type Critique struct {
	CompositionScore float64  `json:"composition_score"`
	CompositionNotes string   `json:"composition_notes"`
	LightingScore    float64  `json:"lighting_score"`
	LightingNotes    string   `json:"lighting_notes"`
	SubjectScore     float64  `json:"subject_score"`
	SubjectNotes     string   `json:"subject_notes"`
	TechnicalScore   float64  `json:"technical_score"`
	TechnicalNotes   string   `json:"technical_notes"`
	OverallScore     float64  `json:"overall_score"`
	Summary          string   `json:"summary"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
}

// ComputeOverall sets OverallScore to the mean of the four category scores
// when the model omitted it.
func (c *Critique) ComputeOverall() {
	if c.OverallScore != 0 {
		return
	}
	c.OverallScore = (c.CompositionScore + c.LightingScore + c.SubjectScore + c.TechnicalScore) / 4
}

// ResultItem is the outcome for one RequestItem: a critique or an error.
type ResultItem struct {
	ID       string    `json:"custom_id"`
	Path     string    `json:"path"`
	Filename string    `json:"filename"`
	Index    int       `json:"-"`
	Critique *Critique `json:"critique,omitempty"`
	ErrKind  ErrorKind `json:"error_kind,omitempty"`
	ErrMsg   string    `json:"error_message,omitempty"`
}

// Succeeded reports whether the item carries a critique.
func (r ResultItem) Succeeded() bool {
	return r.Critique != nil
}

// Overall returns the overall score, or 0 for errored items.
func (r ResultItem) Overall() float64 {
	if r.Critique == nil {
		return 0
	}
	return r.Critique.OverallScore
}

// ErrorResult builds an error ResultItem for a request.
func ErrorResult(item RequestItem, kind ErrorKind, msg string) ResultItem {
	return ResultItem{
		ID:       item.ID,
		Path:     item.Path,
		Filename: item.Filename,
		Index:    item.Index,
		ErrKind:  kind,
		ErrMsg:   msg,
	}
}
