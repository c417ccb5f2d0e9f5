package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/labelgw/label-gateway/internal/kafka"
	"github.com/labelgw/label-gateway/internal/model"
	"github.com/labelgw/label-gateway/internal/repository"
	"github.com/labelgw/label-gateway/internal/util"
)

// Recorder:
// - fetches dispatch-outcome envelopes from Kafka,
// - batches job-history inserts into MySQL and ClickHouse.
// At-least-once: inserts are idempotent on the envelope's record id.
type Recorder struct {
	// Dependencies
	Consumer *kafka.Consumer
	Jobs     repository.JobsRepository
	CHJobs   repository.CHJobsRepository

	// Behavior
	Workers   int           // goroutines decoding messages
	BatchSize int           // max buffered records per flush
	BatchWait time.Duration // max time to wait before flush
}

// NewRecorder builds a recorder with sane defaults.
func NewRecorder(consumer *kafka.Consumer, jobs repository.JobsRepository, chJobs repository.CHJobsRepository) *Recorder {
	return &Recorder{
		Consumer:  consumer,
		Jobs:      jobs,
		CHJobs:    chJobs,
		Workers:   8,
		BatchSize: 200,
		BatchWait: 300 * time.Millisecond,
	}
}

// Run starts the recorder and blocks until ctx is cancelled.
func (w *Recorder) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 8
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 200
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 300 * time.Millisecond
	}

	records := make(chan model.JobRecord, w.BatchSize*2)
	defer close(records)

	// Start batch writer
	go w.runBatchWriter(ctx, records)

	// Fetch loop → fan-out to processors
	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := w.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[recorder] kafka fetch err: %v", err)
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgCh <- m
			}
		}
	}()

	// Start processors
	for i := 0; i < w.Workers; i++ {
		go w.runProcessor(ctx, msgCh, records)
	}

	// Block until shutdown
	<-ctx.Done()
	return nil
}

func (w *Recorder) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- model.JobRecord) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m, out)
		}
	}
}

func (w *Recorder) processOne(ctx context.Context, m kafka.Message, out chan<- model.JobRecord) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.EventID == "" {
		_ = w.Consumer.Commit(ctx, m) // poison → commit, skip
		if err != nil {
			log.Printf("[recorder] bad envelope json: %v", err)
		} else {
			log.Printf("[recorder] envelope missing event id")
		}
		return
	}

	rec := model.JobRecord{
		ID:           env.RecordID,
		AccountID:    env.AccountID,
		EventID:      env.EventID,
		TrackingCode: env.TrackingCode,
		RelayJobID:   env.RelayJobID,
		Status:       env.Status,
		Stage:        env.Stage,
		Detail:       env.Detail,
		CreatedAt:    time.Now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = util.New()
	}

	out <- rec

	// Always commit (at-least-once; inserts are idempotent on record id)
	if err := w.Consumer.Commit(ctx, m); err != nil {
		log.Printf("[recorder] commit err: %v", err)
	}
}

// runBatchWriter does size/time-based flush of history inserts.
func (w *Recorder) runBatchWriter(ctx context.Context, in <-chan model.JobRecord) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var buf []model.JobRecord

	flush := func() {
		if len(buf) == 0 {
			return
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := w.Jobs.BatchInsert(fctx, nil, buf); err != nil {
			log.Printf("[recorder] mysql insert err (%d records): %v", len(buf), err)
		}
		if w.CHJobs != nil {
			if err := w.CHJobs.BatchInsert(fctx, buf); err != nil {
				log.Printf("[recorder] clickhouse insert err (%d records): %v", len(buf), err)
			}
		}

		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case rec, ok := <-in:
			if !ok {
				flush()
				return
			}
			buf = append(buf, rec)
			if len(buf) >= w.BatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		}
	}
}
