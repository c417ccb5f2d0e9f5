package pipeline

import "github.com/labelgw/label-gateway/internal/model"

// Class drives the gateway's transport mapping: OK and Permanent are
// acknowledged to the carrier (permanent failures are logged, never
// retried), Transient asks the carrier to redeliver.
type Class int

const (
	ClassOK Class = iota
	ClassTransient
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Pipeline stages, recorded on outcomes for diagnostics.
const (
	StageReceived  = "received"
	StageValidated = "validated"
	StageTracker   = "tracker"
	StageShipment  = "shipment"
	StageLabel     = "label"
	StageConvert   = "convert"
	StagePrinter   = "printer"
	StageSubmit    = "submit"
)

// Outcome is the single terminal result of one dispatched event. The
// gateway translates it to an HTTP status; the recorder stream
// persists it; nothing downstream inspects Err beyond logging.
type Outcome struct {
	Status       model.JobStatus
	Class        Class
	Stage        string
	RelayJobID   int64
	TrackingCode string
	Err          error
}

func success(stage string, status model.JobStatus) Outcome {
	return Outcome{Status: status, Class: ClassOK, Stage: stage}
}

func failed(stage string, class Class, err error) Outcome {
	return Outcome{Status: model.JobFailed, Class: class, Stage: stage, Err: err}
}
