package model

// Envelope is the dispatch-outcome record published to Kafka and
// consumed by the recorder worker.
type Envelope struct {
	RecordID     string    `json:"record_id"` // ULID
	AccountID    string    `json:"account_id"`
	EventID      string    `json:"event_id"`
	TrackingCode string    `json:"tracking_code,omitempty"`
	RelayJobID   int64     `json:"relay_job_id,omitempty"`
	Status       JobStatus `json:"status"`
	Stage        string    `json:"stage"`
	Detail       string    `json:"detail,omitempty"`
}
