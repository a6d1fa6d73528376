package api

import "time"

// ThreadMessage is one email of a thread submitted to the draft API.
type ThreadMessage struct {
	From    string `json:"from" binding:"required"`
	To      string `json:"to"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// GenerateDraftRequest is the body of POST /generate-draft.
type GenerateDraftRequest struct {
	Thread    []ThreadMessage `json:"thread" binding:"required,min=1"`
	UserEmail string          `json:"user_email" binding:"required"`
	Subject   string          `json:"subject"`
}

// GenerateDraftResponse carries the generated draft.
type GenerateDraftResponse struct {
	Draft        string  `json:"draft"`
	DetectedTone string  `json:"detected_tone"`
	Confidence   float64 `json:"confidence"`
}

// PubSubMessage is the inner message of a Pub/Sub push delivery. The
// data field holds base64-encoded JSON from Gmail.
type PubSubMessage struct {
	Data        string    `json:"data" binding:"required"`
	MessageID   string    `json:"messageId"`
	PublishTime time.Time `json:"publishTime"`
}

// PubSubPushRequest is the body Pub/Sub posts to /webhook/gmail.
type PubSubPushRequest struct {
	Message      PubSubMessage `json:"message" binding:"required"`
	Subscription string        `json:"subscription"`
}

// RenewWatchResponse is the body of POST /renew-watch.
type RenewWatchResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	HistoryID  uint64     `json:"history_id,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// WatchStatusResponse is the body of GET /watch-status.
type WatchStatusResponse struct {
	Active      bool       `json:"active"`
	Expiration  *time.Time `json:"expiration,omitempty"`
	LabelName   string     `json:"label_name"`
	PubSubTopic string     `json:"pubsub_topic"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
