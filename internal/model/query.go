package model

// ScorePlaceRequest represents a single-place scoring request
type ScorePlaceRequest struct {
	Place   Place          `json:"place" binding:"required"`
	Reality RealityContext `json:"reality"`
}

// RankRequest represents an in-memory ranking request
type RankRequest struct {
	Places         []Place             `json:"places" binding:"required"`
	Preferences    TravelerPreferences `json:"preferences"`
	RealityPenalty float64             `json:"reality_penalty"`
}

// RecommendRequest represents a ranking request over a city's stored places
type RecommendRequest struct {
	Preferences TravelerPreferences `json:"preferences"`
	Limit       int                 `json:"limit"`
}

// RankResponse represents ranked places
type RankResponse struct {
	Results []RankedPlace `json:"results"`
	Total   int           `json:"total"`
	Took    int64         `json:"took_ms"`
}

// EmbeddingBatchRequest represents a batch vibe embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem is an image-derived vibe embedding for one place
type EmbeddingItem struct {
	PlaceID   string    `json:"place_id" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
