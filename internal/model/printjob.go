package model

import "time"

// PrintJob is the relay's acknowledgement of a submitted job.
type PrintJob struct {
	RelayJobID     int64
	RelayPrinterID int64
	Title          string
	SubmittedAt    time.Time
}

type JobStatus string

const (
	JobPrinted         JobStatus = "printed"
	JobDuplicate       JobStatus = "duplicate"
	JobAwaitingPrinter JobStatus = "awaiting_printer"
	JobFailed          JobStatus = "failed"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) Valid() bool {
	return s == JobPrinted || s == JobDuplicate || s == JobAwaitingPrinter || s == JobFailed
}

// JobRecord is the job-history row persisted by the recorder worker.
type JobRecord struct {
	ID           string    `db:"id"` // ULID
	AccountID    string    `db:"account_id"`
	EventID      string    `db:"event_id"`
	TrackingCode string    `db:"tracking_code"`
	RelayJobID   int64     `db:"relay_job_id"` // 0 when nothing was submitted
	Status       JobStatus `db:"status"`
	Stage        string    `db:"stage"` // last pipeline stage reached
	Detail       string    `db:"detail"`
	CreatedAt    time.Time `db:"created_at"`
}
