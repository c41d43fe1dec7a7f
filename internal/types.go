package internal

import "time"

// Credentials are the account login fields
type Credentials struct {
	Username string
	Password string
}

// UploadSummary aggregates one batch of uploads
type UploadSummary struct {
	BatchID   string
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64
	Elapsed   time.Duration
}

// HistoryEntry is one recorded upload attempt
type HistoryEntry struct {
	BatchID    string    `json:"batch_id"`
	Path       string    `json:"path"`
	URL        string    `json:"url,omitempty"`
	Error      string    `json:"error,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}
