package models

// ExternalListing is one product entry returned by the external catalog
// provider's search. Listings are ephemeral: fetched per query, deduplicated
// by ExternalID within a batch, and never persisted verbatim.
type ExternalListing struct {
	ExternalID    string  `json:"external_id"`
	Title         string  `json:"title"`
	CategoryLabel string  `json:"category_label"`
	LoosePrice    float64 `json:"loose_price,omitempty"`
	CompletePrice float64 `json:"complete_price,omitempty"`
	NewPrice      float64 `json:"new_price,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
}

// UnmatchedListing records a listing that no candidate set accepted, kept
// for operator review rather than guessed at.
type UnmatchedListing struct {
	ExternalID    string `json:"external_id"`
	Title         string `json:"title"`
	CategoryLabel string `json:"category_label"`
	SetName       string `json:"set_name"`
	Reason        string `json:"reason"`
}
