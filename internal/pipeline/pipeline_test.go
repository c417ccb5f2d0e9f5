package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/labelgw/label-gateway/internal/carrier"
	"github.com/labelgw/label-gateway/internal/convert"
	"github.com/labelgw/label-gateway/internal/dedup"
	"github.com/labelgw/label-gateway/internal/model"
	"github.com/labelgw/label-gateway/internal/printrelay"
)

// ---- stubs ----

type stubAccounts struct {
	account    *model.Account
	accountErr error
	printer    *model.Printer
	printerErr error
}

func (s *stubAccounts) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	if s.account != nil && s.account.ID == id {
		return s.account, nil
	}
	return nil, nil
}

func (s *stubAccounts) GetDefaultActivePrinter(ctx context.Context, accountID string) (*model.Printer, error) {
	return s.printer, s.printerErr
}

type stubCarrier struct {
	tracker    model.Tracker
	trackerErr error
	shipment   model.Shipment
	shipErr    error
	artifact   model.LabelArtifact
	labelErr   error

	keysSeen []string
}

func (s *stubCarrier) GetTracker(ctx context.Context, apiKey, trackerID string) (model.Tracker, error) {
	s.keysSeen = append(s.keysSeen, apiKey)
	return s.tracker, s.trackerErr
}

func (s *stubCarrier) FindShipment(ctx context.Context, apiKey, trackingCode string) (model.Shipment, error) {
	s.keysSeen = append(s.keysSeen, apiKey)
	return s.shipment, s.shipErr
}

func (s *stubCarrier) DownloadLabel(ctx context.Context, shipment model.Shipment) (model.LabelArtifact, error) {
	return s.artifact, s.labelErr
}

type stubConverter struct {
	out    model.LabelArtifact
	err    error
	called int
}

func (s *stubConverter) Convert(ctx context.Context, artifact model.LabelArtifact, target model.LabelFormat) (model.LabelArtifact, error) {
	s.called++
	if s.err != nil {
		return model.LabelArtifact{}, s.err
	}
	if s.out.Content == nil {
		out := artifact
		out.Format = target
		return out, nil
	}
	return s.out, nil
}

type stubRelay struct {
	job     model.PrintJob
	err     error
	calls   int
	lastKey string
	lastArt model.LabelArtifact
}

func (s *stubRelay) Submit(ctx context.Context, apiKey string, printerID int64, artifact model.LabelArtifact, title string) (model.PrintJob, error) {
	s.calls++
	s.lastKey = apiKey
	s.lastArt = artifact
	if s.err != nil {
		return model.PrintJob{}, s.err
	}
	return s.job, nil
}

type stubPublisher struct {
	envs []model.Envelope
}

func (s *stubPublisher) Publish(ctx context.Context, env model.Envelope) error {
	s.envs = append(s.envs, env)
	return nil
}

// ---- fixtures ----

func testEvent() model.InboundEvent {
	return model.InboundEvent{
		ID:        "evt_1",
		Type:      model.EventTrackerCreated,
		TrackerID: "trk_1",
		AccountID: "acct_A",
	}
}

func activeAccount() *model.Account {
	return &model.Account{ID: "acct_A", Name: "A", CarrierAPIKey: "EZAK_A", IsActive: true}
}

func zplPrinter() *model.Printer {
	return &model.Printer{
		ID: "prn_1", AccountID: "acct_A", Name: "Dock Zebra",
		RelayAPIKey: "PNK_A", RelayPrinterID: 42,
		Format: model.FormatZPL, IsDefault: true, IsActive: true,
	}
}

type fixture struct {
	accounts  *stubAccounts
	carrier   *stubCarrier
	converter *stubConverter
	relay     *stubRelay
	publisher *stubPublisher
	ledger    *dedup.MemoryLedger
	pipe      *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		accounts: &stubAccounts{account: activeAccount(), printer: zplPrinter()},
		carrier: &stubCarrier{
			tracker:  model.Tracker{ID: "trk_1", TrackingCode: "9400TEST"},
			shipment: model.Shipment{ID: "shp_1", TrackingCode: "9400TEST"},
			artifact: model.LabelArtifact{Content: []byte("%PDF"), Format: model.FormatPDF},
		},
		converter: &stubConverter{},
		relay:     &stubRelay{job: model.PrintJob{RelayJobID: 473, RelayPrinterID: 42}},
		publisher: &stubPublisher{},
		ledger:    dedup.NewMemoryLedger(time.Hour),
	}
	f.pipe = New(f.accounts, f.ledger, f.carrier, f.converter, f.relay, f.publisher, zap.NewNop())
	return f
}

func (f *fixture) marked(t *testing.T) bool {
	t.Helper()
	// a processed pair refuses a fresh claim; an unmarked one accepts
	ok, err := f.ledger.Claim(context.Background(), "acct_A", "evt_1")
	if err != nil {
		t.Fatalf("ledger probe: %v", err)
	}
	if ok {
		_ = f.ledger.Release(context.Background(), "acct_A", "evt_1")
	}
	return !ok
}

// ---- tests ----

func TestDispatch_HappyPathConvertsAndPrints(t *testing.T) {
	f := newFixture()

	out := f.pipe.Dispatch(context.Background(), testEvent())

	if out.Status != model.JobPrinted || out.Class != ClassOK {
		t.Fatalf("outcome = %s/%s, want printed/ok", out.Status, out.Class)
	}
	if out.RelayJobID != 473 {
		t.Fatalf("relay job id = %d", out.RelayJobID)
	}
	if out.TrackingCode != "9400TEST" {
		t.Fatalf("tracking code = %q", out.TrackingCode)
	}
	if f.converter.called != 1 {
		t.Fatalf("converter called %d times, want 1", f.converter.called)
	}
	if f.relay.calls != 1 {
		t.Fatalf("relay called %d times, want 1", f.relay.calls)
	}
	if f.relay.lastArt.Format != model.FormatZPL {
		t.Fatalf("relay got %s artifact, want converted zpl", f.relay.lastArt.Format)
	}
	if f.relay.lastKey != "PNK_A" {
		t.Fatalf("relay key = %q, want the printer's key", f.relay.lastKey)
	}
	for _, k := range f.carrier.keysSeen {
		if k != "EZAK_A" {
			t.Fatalf("carrier saw key %q, want the account's key", k)
		}
	}
	if !f.marked(t) {
		t.Fatal("successful dispatch must be marked processed")
	}
}

func TestDispatch_RedeliveryIsNoOp(t *testing.T) {
	f := newFixture()

	first := f.pipe.Dispatch(context.Background(), testEvent())
	if first.Status != model.JobPrinted {
		t.Fatalf("first outcome = %s", first.Status)
	}

	second := f.pipe.Dispatch(context.Background(), testEvent())
	if second.Status != model.JobDuplicate || second.Class != ClassOK {
		t.Fatalf("second outcome = %s/%s, want duplicate/ok", second.Status, second.Class)
	}
	if f.relay.calls != 1 {
		t.Fatalf("relay called %d times across redelivery, want 1", f.relay.calls)
	}
}

func TestDispatch_NoPrinterIsNoOpSuccess(t *testing.T) {
	f := newFixture()
	f.accounts.printer = nil

	out := f.pipe.Dispatch(context.Background(), testEvent())

	if out.Status != model.JobAwaitingPrinter || out.Class != ClassOK {
		t.Fatalf("outcome = %s/%s, want awaiting_printer/ok", out.Status, out.Class)
	}
	if f.relay.calls != 0 {
		t.Fatal("relay must not be called without a printer")
	}
	if !f.marked(t) {
		t.Fatal("the no-printer no-op must be marked processed, never retried")
	}
}

func TestDispatch_NoLabelYetIsTransientUnmarked(t *testing.T) {
	f := newFixture()
	f.carrier.labelErr = fmt.Errorf("shipment shp_1: %w", carrier.ErrNoLabel)

	out := f.pipe.Dispatch(context.Background(), testEvent())

	if out.Class != ClassTransient {
		t.Fatalf("class = %s, want transient", out.Class)
	}
	if out.Stage != StageLabel {
		t.Fatalf("stage = %s, want label", out.Stage)
	}
	if f.relay.calls != 0 {
		t.Fatal("relay must not be called when the label is missing")
	}
	if f.marked(t) {
		t.Fatal("transient failure must not be marked processed")
	}
}

func TestDispatch_UnknownAccountIsPermanent(t *testing.T) {
	f := newFixture()
	f.accounts.account = nil

	out := f.pipe.Dispatch(context.Background(), testEvent())

	if out.Class != ClassPermanent {
		t.Fatalf("class = %s, want permanent", out.Class)
	}
	if out.Stage != StageValidated {
		t.Fatalf("stage = %s, want validated", out.Stage)
	}
	if len(f.carrier.keysSeen) != 0 {
		t.Fatal("no carrier call may happen for an unknown account")
	}
	if !f.marked(t) {
		t.Fatal("permanent failures are marked processed to stop retries")
	}
}

func TestDispatch_InactiveAccountIsPermanent(t *testing.T) {
	f := newFixture()
	f.accounts.account.IsActive = false

	out := f.pipe.Dispatch(context.Background(), testEvent())
	if out.Class != ClassPermanent || out.Stage != StageValidated {
		t.Fatalf("outcome = %s at %s, want permanent at validated", out.Class, out.Stage)
	}
}

func TestDispatch_UnsupportedConversionIsPermanent(t *testing.T) {
	f := newFixture()
	f.converter.err = fmt.Errorf("pdf to zpl: %w", convert.ErrUnsupported)

	out := f.pipe.Dispatch(context.Background(), testEvent())

	if out.Class != ClassPermanent || out.Stage != StageConvert {
		t.Fatalf("outcome = %s at %s, want permanent at convert", out.Class, out.Stage)
	}
	if f.relay.calls != 0 {
		t.Fatal("relay must not see an unconvertible artifact")
	}
	if !f.marked(t) {
		t.Fatal("unsupported conversion is permanent, marked processed")
	}
}

func TestDispatch_AmbiguousShipmentIsPermanent(t *testing.T) {
	f := newFixture()
	f.carrier.shipErr = fmt.Errorf("tracking code 9400TEST: %w", carrier.ErrAmbiguousShipment)

	out := f.pipe.Dispatch(context.Background(), testEvent())
	if out.Class != ClassPermanent || out.Stage != StageShipment {
		t.Fatalf("outcome = %s at %s, want permanent at shipment", out.Class, out.Stage)
	}
}

func TestDispatch_RelayOutageIsTransient(t *testing.T) {
	f := newFixture()
	f.relay.err = fmt.Errorf("relay submit status=503: %w", printrelay.ErrUpstreamUnavailable)

	out := f.pipe.Dispatch(context.Background(), testEvent())

	if out.Class != ClassTransient || out.Stage != StageSubmit {
		t.Fatalf("outcome = %s at %s, want transient at submit", out.Class, out.Stage)
	}
	if f.marked(t) {
		t.Fatal("relay outage must leave the event retryable")
	}
}

func TestDispatch_PrinterGoneFromRelayIsPermanent(t *testing.T) {
	f := newFixture()
	f.relay.err = fmt.Errorf("printer 42: %w", printrelay.ErrPrinterNotFound)

	out := f.pipe.Dispatch(context.Background(), testEvent())
	if out.Class != ClassPermanent || out.Stage != StageSubmit {
		t.Fatalf("outcome = %s at %s, want permanent at submit", out.Class, out.Stage)
	}
}

func TestDispatch_CarrierAuthFailureIsPermanent(t *testing.T) {
	f := newFixture()
	f.carrier.trackerErr = fmt.Errorf("carrier request status=401: %w", carrier.ErrAuthFailed)

	out := f.pipe.Dispatch(context.Background(), testEvent())
	if out.Class != ClassPermanent || out.Stage != StageTracker {
		t.Fatalf("outcome = %s at %s, want permanent at tracker", out.Class, out.Stage)
	}
}

func TestDispatch_PublishesOutcomeEnvelope(t *testing.T) {
	f := newFixture()

	f.pipe.Dispatch(context.Background(), testEvent())

	if len(f.publisher.envs) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(f.publisher.envs))
	}
	env := f.publisher.envs[0]
	if env.AccountID != "acct_A" || env.EventID != "evt_1" {
		t.Fatalf("envelope keys = %s/%s", env.AccountID, env.EventID)
	}
	if env.Status != model.JobPrinted {
		t.Fatalf("envelope status = %s", env.Status)
	}
	if env.RelayJobID != 473 {
		t.Fatalf("envelope relay job id = %d", env.RelayJobID)
	}
	if env.RecordID == "" {
		t.Fatal("envelope needs a record id for idempotent inserts")
	}
}
