package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/labelgw/label-gateway/internal/carrier"
	"github.com/labelgw/label-gateway/internal/convert"
	"github.com/labelgw/label-gateway/internal/dedup"
	"github.com/labelgw/label-gateway/internal/metrics"
	"github.com/labelgw/label-gateway/internal/model"
	"github.com/labelgw/label-gateway/internal/printrelay"
	"github.com/labelgw/label-gateway/internal/repository"
	"github.com/labelgw/label-gateway/internal/util"
)

// CarrierAPI is the slice of the carrier client the pipeline needs.
// Credentials are passed per call, never held ambiently.
type CarrierAPI interface {
	GetTracker(ctx context.Context, apiKey, trackerID string) (model.Tracker, error)
	FindShipment(ctx context.Context, apiKey, trackingCode string) (model.Shipment, error)
	DownloadLabel(ctx context.Context, shipment model.Shipment) (model.LabelArtifact, error)
}

type RelayAPI interface {
	Submit(ctx context.Context, apiKey string, printerID int64, artifact model.LabelArtifact, title string) (model.PrintJob, error)
}

// OutcomePublisher feeds terminal outcomes to the recorder stream.
// Publishing is best-effort: the outcome itself is authoritative.
type OutcomePublisher interface {
	Publish(ctx context.Context, env model.Envelope) error
}

// Pipeline orchestrates one webhook event end to end: dedup claim,
// account validation, carrier fetches, format conversion, printer
// resolution, relay submission, ledger bookkeeping.
type Pipeline struct {
	accounts  repository.AccountsRepository
	ledger    dedup.Ledger
	carrier   CarrierAPI
	converter convert.Converter
	relay     RelayAPI
	publisher OutcomePublisher // optional
	log       *zap.Logger
}

func New(
	accounts repository.AccountsRepository,
	ledger dedup.Ledger,
	carrierAPI CarrierAPI,
	converter convert.Converter,
	relay RelayAPI,
	publisher OutcomePublisher,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		accounts:  accounts,
		ledger:    ledger,
		carrier:   carrierAPI,
		converter: converter,
		relay:     relay,
		publisher: publisher,
		log:       log,
	}
}

// Dispatch runs the event to a terminal outcome. The incoming request
// context is detached first: once a delivery is claimed, in-flight
// carrier/relay calls finish even if the webhook connection drops, so
// the event is either fully processed or cleanly retryable.
func (p *Pipeline) Dispatch(ctx context.Context, event model.InboundEvent) Outcome {
	ctx = context.WithoutCancel(ctx)

	claimed, err := p.ledger.Claim(ctx, event.AccountID, event.ID)
	if err != nil {
		return p.finish(ctx, event, failed(StageReceived, ClassTransient, fmt.Errorf("dedup claim: %w", err)))
	}
	if !claimed {
		// already processed, or an identical delivery is in flight
		return p.finish(ctx, event, success(StageReceived, model.JobDuplicate))
	}

	out := p.run(ctx, event)

	switch out.Class {
	case ClassTransient:
		if err := p.ledger.Release(ctx, event.AccountID, event.ID); err != nil {
			p.log.Warn("dedup release failed",
				zap.String("account_id", event.AccountID),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	default:
		// terminal outcomes, permanent failures included: retrying a
		// broken configuration only wastes carrier quota
		if err := p.ledger.MarkProcessed(ctx, event.AccountID, event.ID); err != nil {
			p.log.Warn("dedup mark failed",
				zap.String("account_id", event.AccountID),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	return p.finish(ctx, event, out)
}

func (p *Pipeline) run(ctx context.Context, event model.InboundEvent) Outcome {
	account, err := p.accounts.GetAccount(ctx, event.AccountID)
	if err != nil {
		return failed(StageValidated, ClassTransient, fmt.Errorf("account lookup: %w", err))
	}
	if account == nil || !account.IsActive {
		return failed(StageValidated, ClassPermanent, fmt.Errorf("account %s unknown or inactive", event.AccountID))
	}

	if event.TrackerID == "" {
		return failed(StageValidated, ClassPermanent, fmt.Errorf("event %s has no tracker reference", event.ID))
	}

	tracker, err := p.carrier.GetTracker(ctx, account.CarrierAPIKey, event.TrackerID)
	if err != nil {
		return failed(StageTracker, classifyCarrier(err), fmt.Errorf("get tracker %s: %w", event.TrackerID, err))
	}

	shipment, err := p.carrier.FindShipment(ctx, account.CarrierAPIKey, tracker.TrackingCode)
	if err != nil {
		out := failed(StageShipment, classifyCarrier(err), fmt.Errorf("find shipment: %w", err))
		out.TrackingCode = tracker.TrackingCode
		return out
	}

	artifact, err := p.carrier.DownloadLabel(ctx, shipment)
	if err != nil {
		out := failed(StageLabel, classifyCarrier(err), fmt.Errorf("download label: %w", err))
		out.TrackingCode = tracker.TrackingCode
		return out
	}

	printer, err := p.accounts.GetDefaultActivePrinter(ctx, account.ID)
	if err != nil {
		out := failed(StagePrinter, ClassTransient, fmt.Errorf("printer lookup: %w", err))
		out.TrackingCode = tracker.TrackingCode
		return out
	}
	if printer == nil {
		// intentional business outcome: label fetched, nothing to print
		// on yet, never retried
		out := success(StagePrinter, model.JobAwaitingPrinter)
		out.TrackingCode = tracker.TrackingCode
		return out
	}

	converted, err := p.converter.Convert(ctx, artifact, printer.Format)
	if err != nil {
		class := ClassTransient
		if errors.Is(err, convert.ErrUnsupported) {
			class = ClassPermanent
		}
		out := failed(StageConvert, class, fmt.Errorf("convert label: %w", err))
		out.TrackingCode = tracker.TrackingCode
		return out
	}

	title := fmt.Sprintf("Shipping Label - %s (%s)", tracker.TrackingCode, account.ID)
	job, err := p.relay.Submit(ctx, printer.RelayAPIKey, printer.RelayPrinterID, converted, title)
	if err != nil {
		out := failed(StageSubmit, classifyRelay(err), fmt.Errorf("relay submit: %w", err))
		out.TrackingCode = tracker.TrackingCode
		return out
	}

	metrics.RelayJobsTotal.Inc()

	out := success(StageSubmit, model.JobPrinted)
	out.RelayJobID = job.RelayJobID
	out.TrackingCode = tracker.TrackingCode
	return out
}

// finish records metrics, logs, and publishes the outcome envelope.
func (p *Pipeline) finish(ctx context.Context, event model.InboundEvent, out Outcome) Outcome {
	metrics.EventsTotal.WithLabelValues(out.Stage, out.Class.String()).Inc()

	fields := []zap.Field{
		zap.String("account_id", event.AccountID),
		zap.String("event_id", event.ID),
		zap.String("stage", out.Stage),
		zap.String("status", out.Status.String()),
		zap.String("class", out.Class.String()),
	}
	if out.TrackingCode != "" {
		fields = append(fields, zap.String("tracking_code", out.TrackingCode))
	}
	if out.RelayJobID != 0 {
		fields = append(fields, zap.Int64("relay_job_id", out.RelayJobID))
	}

	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
		if out.Class == ClassTransient {
			p.log.Warn("dispatch failed, carrier will redeliver", fields...)
		} else {
			p.log.Error("dispatch failed permanently", fields...)
		}
	} else {
		p.log.Info("dispatch complete", fields...)
	}

	if p.publisher != nil {
		env := model.Envelope{
			RecordID:     util.New(),
			AccountID:    event.AccountID,
			EventID:      event.ID,
			TrackingCode: out.TrackingCode,
			RelayJobID:   out.RelayJobID,
			Status:       out.Status,
			Stage:        out.Stage,
		}
		if out.Err != nil {
			env.Detail = out.Err.Error()
		}
		if err := p.publisher.Publish(ctx, env); err != nil {
			p.log.Warn("outcome publish failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}

	return out
}

func classifyCarrier(err error) Class {
	switch {
	case errors.Is(err, carrier.ErrAmbiguousShipment),
		errors.Is(err, carrier.ErrUnknownLabelFormat),
		errors.Is(err, carrier.ErrAuthFailed):
		return ClassPermanent
	default:
		// NotFound and NoLabel are retried through carrier redelivery: a
		// label often appears moments after tracker creation
		return ClassTransient
	}
}

func classifyRelay(err error) Class {
	switch {
	case errors.Is(err, printrelay.ErrPrinterNotFound),
		errors.Is(err, printrelay.ErrAuthFailed):
		return ClassPermanent
	default:
		return ClassTransient
	}
}
