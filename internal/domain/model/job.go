package model

// ClipJob asks for a clip to be matched to a stored highlight.
type ClipJob struct {
	// GenerationID groups the jobs of one generation run.
	GenerationID string
	Highlight    Highlight
	// PlayerName is the display name used in the search query.
	PlayerName string
}
