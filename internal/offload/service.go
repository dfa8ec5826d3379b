package offload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// Journal module names.
const (
	ModuleStart    = "offload_start"
	ModuleComplete = "offload_complete"
)

var (
	// ErrAlreadyCompleted is returned when completing a completed offload.
	ErrAlreadyCompleted = errors.New("offload: already completed")
	// ErrNoStation is returned when the user is not attached to a station.
	ErrNoStation = errors.New("offload: no station selected")
)

// DraftStore persists wizard drafts per browser session.
type DraftStore interface {
	Load(ctx context.Context, sessionID, slot string, out any) error
	Save(ctx context.Context, sessionID, slot string, draft any) error
	Clear(ctx context.Context, sessionID, slot string) error
}

// Journal records submission attempts by idempotency key.
type Journal interface {
	Begin(ctx context.Context, key, module, subject string, payload any) error
	MarkSucceeded(ctx context.Context, key string) error
	MarkFailed(ctx context.Context, key string, cause error) error
}

// Locker serializes submissions for the same subject.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Recorder counts submission outcomes.
type Recorder interface {
	RecordSubmission(module, outcome string)
}

// Service drives both offload phases.
type Service struct {
	gateway  Gateway
	store    DraftStore
	journal  Journal
	locker   Locker
	recorder Recorder
	validate *validator.Validate
	region   string
	logger   *slog.Logger
	now      func() time.Time

	start    phase[StartDraft, *StartDraft]
	complete phase[CompleteDraft, *CompleteDraft]
}

// Option customises the service.
type Option func(*Service)

// WithJournal enables the submission journal.
func WithJournal(j Journal) Option { return func(s *Service) { s.journal = j } }

// WithLocker enables the submission lock.
func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

// WithRecorder enables submission metrics.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs the service. phoneRegion is the default region for
// driver phone numbers entered without a country code.
func NewService(gateway Gateway, store DraftStore, logger *slog.Logger, phoneRegion string, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		gateway:  gateway,
		store:    store,
		validate: shared.NewValidator(phoneRegion),
		region:   phoneRegion,
		logger:   logger,
		now:      time.Now,
		start:    phase[StartDraft, *StartDraft]{flow: StartFlow, store: store},
		complete: phase[CompleteDraft, *CompleteDraft]{flow: CompleteFlow, store: store},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startSlot(stationID int64) string {
	return "offload-start:" + strconv.FormatInt(stationID, 10)
}

func completeSlot(offloadID int64) string {
	return "offload-complete:" + strconv.FormatInt(offloadID, 10)
}

// List returns offloads newest first. Station scoped roles only see their
// own station.
func (s *Service) List(ctx context.Context, p shared.Principal, f Filter) ([]Offload, error) {
	if p.StationID > 0 {
		f.StationID = p.StationID
	}
	items, err := s.gateway.ListOffloads(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list offloads: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartedAt.After(items[j].StartedAt)
	})
	return items, nil
}

// Get returns one offload.
func (s *Service) Get(ctx context.Context, id int64) (Offload, error) {
	return s.gateway.GetOffload(ctx, id)
}

// BeginStart resumes or seeds the start draft of a station.
func (s *Service) BeginStart(ctx context.Context, sessionID string, stationID int64) (StartDraft, error) {
	if stationID <= 0 {
		return StartDraft{}, ErrNoStation
	}
	d, err := s.start.load(ctx, sessionID, startSlot(stationID))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, wizard.ErrNoDraft) {
		return StartDraft{}, err
	}
	opts, err := s.gateway.StartOptions(ctx, stationID)
	if err != nil {
		return StartDraft{}, fmt.Errorf("load offload options: %w", err)
	}
	d = StartDraft{
		StationID:      stationID,
		Step:           StartFlow.First(),
		IdempotencyKey: uuid.NewString(),
		StartedAt:      s.now(),
		Options:        opts,
	}
	if err := s.store.Save(ctx, sessionID, startSlot(stationID), d); err != nil {
		return StartDraft{}, err
	}
	return d, nil
}

// StartDraft loads the start draft in progress.
func (s *Service) StartDraft(ctx context.Context, sessionID string, stationID int64) (StartDraft, error) {
	return s.start.load(ctx, sessionID, startSlot(stationID))
}

// PurchaseInput is the first start step.
type PurchaseInput struct {
	PurchaseID       int64
	TankID           int64
	ExpectedQuantity decimal.Decimal
}

// SavePurchase links the purchase and tank. The expected quantity defaults
// to the purchased quantity.
func (s *Service) SavePurchase(ctx context.Context, sessionID string, stationID int64, in PurchaseInput) (StartDraft, error) {
	return s.start.update(ctx, sessionID, startSlot(stationID), func(d *StartDraft) error {
		errs := FieldErrors{}
		d.PurchaseID = in.PurchaseID
		d.ExpectedQuantity = in.ExpectedQuantity
		if p, ok := d.Purchase(); ok && d.ExpectedQuantity.IsZero() {
			d.ExpectedQuantity = p.Quantity
		}
		if d.ExpectedQuantity.IsNegative() {
			errs["expected_quantity"] = "Must not be negative"
		}
		if t, ok := d.Options.Tank(in.TankID); ok {
			d.selectTank(t.ID)
			if d.ExpectedQuantity.GreaterThan(t.Ullage()) && t.Capacity.IsPositive() {
				errs["expected_quantity"] = "Exceeds the free capacity of " + t.Name + " (" + t.Ullage().StringFixed(0) + " L)"
			}
		} else {
			d.TankID = 0
			d.PrePumps = nil
		}
		return errs.err()
	})
}

// SaveDelivery validates and stores the delivery details. The driver phone
// is stored in E.164 form when it parses.
func (s *Service) SaveDelivery(ctx context.Context, sessionID string, stationID int64, in Delivery) (StartDraft, error) {
	return s.start.update(ctx, sessionID, startSlot(stationID), func(d *StartDraft) error {
		in.TruckPlate = strings.ToUpper(strings.TrimSpace(in.TruckPlate))
		in.DriverName = strings.TrimSpace(in.DriverName)
		in.DeliveryNote = strings.TrimSpace(in.DeliveryNote)
		if e164, err := shared.NormalizePhone(in.DriverPhone, s.region); err == nil {
			in.DriverPhone = e164
		}
		d.Delivery = in
		return deliveryFieldErrors(s.validate.Struct(in))
	})
}

// SavePreReadings stores the readings taken before offloading.
func (s *Service) SavePreReadings(ctx context.Context, sessionID string, stationID int64, tank TankReading, pumps []PumpReading) (StartDraft, error) {
	return s.start.update(ctx, sessionID, startSlot(stationID), func(d *StartDraft) error {
		errs := FieldErrors{}
		checkTank(errs, "pre", tank)
		d.PreTank = tank
		mergePumps(errs, "pre", d.PrePumps, pumps)
		return errs.err()
	})
}

// NextStart advances the start wizard.
func (s *Service) NextStart(ctx context.Context, sessionID string, stationID int64) (StartDraft, error) {
	return s.start.next(ctx, sessionID, startSlot(stationID))
}

// BackStart retreats the start wizard.
func (s *Service) BackStart(ctx context.Context, sessionID string, stationID int64) (StartDraft, error) {
	return s.start.back(ctx, sessionID, startSlot(stationID))
}

// GoToStart jumps back in the start wizard.
func (s *Service) GoToStart(ctx context.Context, sessionID string, stationID int64, target wizard.Step) (StartDraft, error) {
	return s.start.goTo(ctx, sessionID, startSlot(stationID), target)
}

// CancelStart discards the start draft.
func (s *Service) CancelStart(ctx context.Context, sessionID string, stationID int64) error {
	return s.store.Clear(ctx, sessionID, startSlot(stationID))
}

// SubmitStart posts the start phase.
func (s *Service) SubmitStart(ctx context.Context, sessionID string, stationID int64) (Offload, error) {
	slot := startSlot(stationID)
	d, err := s.start.load(ctx, sessionID, slot)
	if err != nil {
		return Offload{}, err
	}
	if err := s.start.ready(d); err != nil {
		return Offload{}, err
	}
	payload := BuildStartPayload(d, s.now())
	ref := fmt.Sprintf("%d-%d", stationID, d.PurchaseID)
	var out Offload
	err = s.submit(ctx, ModuleStart, d.IdempotencyKey, shared.OffloadLockKey("start", ref), ref, payload, func(ctx context.Context) error {
		o, err := s.gateway.StartOffload(ctx, payload, d.IdempotencyKey)
		out = o
		return err
	})
	if err != nil {
		if !errors.Is(err, shared.ErrAlreadySubmitted) && !errors.Is(err, shared.ErrSubmissionInProgress) {
			d.LastError = err.Error()
			if serr := s.store.Save(ctx, sessionID, slot, d); serr != nil {
				s.logger.Warn("save offload draft", slog.Any("error", serr))
			}
		}
		if errors.Is(err, shared.ErrAlreadySubmitted) {
			s.clear(ctx, sessionID, slot)
		}
		return Offload{}, err
	}
	s.clear(ctx, sessionID, slot)
	s.logger.Info("offload started", slog.Int64("offload_id", out.ID), slog.Int64("station_id", stationID), slog.Int64("purchase_id", d.PurchaseID))
	return out, nil
}

// BeginComplete resumes or seeds the complete draft of an offload.
func (s *Service) BeginComplete(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error) {
	d, err := s.complete.load(ctx, sessionID, completeSlot(offloadID))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, wizard.ErrNoDraft) {
		return CompleteDraft{}, err
	}
	o, err := s.gateway.GetOffload(ctx, offloadID)
	if err != nil {
		return CompleteDraft{}, fmt.Errorf("load offload %d: %w", offloadID, err)
	}
	if o.Completed() {
		return CompleteDraft{}, ErrAlreadyCompleted
	}
	d = CompleteDraft{
		OffloadID:      offloadID,
		Step:           CompleteFlow.First(),
		IdempotencyKey: uuid.NewString(),
		StartedAt:      s.now(),
		Offload:        o,
	}
	for _, p := range o.PrePumps {
		d.PostPumps = append(d.PostPumps, PumpReading{PumpID: p.PumpID, PumpName: p.PumpName})
	}
	if err := s.store.Save(ctx, sessionID, completeSlot(offloadID), d); err != nil {
		return CompleteDraft{}, err
	}
	return d, nil
}

// CompleteDraft loads the complete draft in progress.
func (s *Service) CompleteDraft(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error) {
	return s.complete.load(ctx, sessionID, completeSlot(offloadID))
}

// PostReadingsInput is the complete phase capture.
type PostReadingsInput struct {
	Tank           TankReading
	Pumps          []PumpReading
	ActualQuantity decimal.Decimal
	Notes          string
}

// SavePostReadings stores the readings after offloading.
func (s *Service) SavePostReadings(ctx context.Context, sessionID string, offloadID int64, in PostReadingsInput) (CompleteDraft, error) {
	return s.complete.update(ctx, sessionID, completeSlot(offloadID), func(d *CompleteDraft) error {
		errs := FieldErrors{}
		checkTank(errs, "post", in.Tank)
		if in.ActualQuantity.IsNegative() {
			errs["actual_quantity"] = "Must not be negative"
		}
		d.PostTank = in.Tank
		d.ActualQuantity = in.ActualQuantity
		d.Notes = strings.TrimSpace(in.Notes)
		mergePumps(errs, "post", d.PostPumps, in.Pumps)
		return errs.err()
	})
}

// NextComplete advances the complete wizard.
func (s *Service) NextComplete(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error) {
	return s.complete.next(ctx, sessionID, completeSlot(offloadID))
}

// BackComplete retreats the complete wizard.
func (s *Service) BackComplete(ctx context.Context, sessionID string, offloadID int64) (CompleteDraft, error) {
	return s.complete.back(ctx, sessionID, completeSlot(offloadID))
}

// GoToComplete jumps back in the complete wizard.
func (s *Service) GoToComplete(ctx context.Context, sessionID string, offloadID int64, target wizard.Step) (CompleteDraft, error) {
	return s.complete.goTo(ctx, sessionID, completeSlot(offloadID), target)
}

// CancelComplete discards the complete draft.
func (s *Service) CancelComplete(ctx context.Context, sessionID string, offloadID int64) error {
	return s.store.Clear(ctx, sessionID, completeSlot(offloadID))
}

// SubmitComplete posts the complete phase.
func (s *Service) SubmitComplete(ctx context.Context, sessionID string, offloadID int64) (Offload, error) {
	slot := completeSlot(offloadID)
	d, err := s.complete.load(ctx, sessionID, slot)
	if err != nil {
		return Offload{}, err
	}
	if err := s.complete.ready(d); err != nil {
		return Offload{}, err
	}
	payload := BuildCompletePayload(d, s.now())
	ref := strconv.FormatInt(offloadID, 10)
	var out Offload
	err = s.submit(ctx, ModuleComplete, d.IdempotencyKey, shared.OffloadLockKey("complete", ref), ref, payload, func(ctx context.Context) error {
		o, err := s.gateway.CompleteOffload(ctx, offloadID, payload, d.IdempotencyKey)
		out = o
		return err
	})
	if err != nil {
		if !errors.Is(err, shared.ErrAlreadySubmitted) && !errors.Is(err, shared.ErrSubmissionInProgress) {
			d.LastError = err.Error()
			if serr := s.store.Save(ctx, sessionID, slot, d); serr != nil {
				s.logger.Warn("save offload draft", slog.Any("error", serr))
			}
		}
		if errors.Is(err, shared.ErrAlreadySubmitted) {
			s.clear(ctx, sessionID, slot)
		}
		return Offload{}, err
	}
	s.clear(ctx, sessionID, slot)
	s.logger.Info("offload completed",
		slog.Int64("offload_id", offloadID),
		slog.String("actual", payload.ActualQuantity.String()),
		slog.String("variance", payload.Variance.String()))
	return out, nil
}

// submit runs call under the subject lock with journal bookkeeping and
// records the outcome.
func (s *Service) submit(ctx context.Context, module, key, lockKey, subject string, payload any, call func(context.Context) error) error {
	run := func(ctx context.Context) error {
		if s.journal != nil {
			if err := s.journal.Begin(ctx, key, module, subject, payload); err != nil {
				return err
			}
		}
		if err := call(ctx); err != nil {
			if s.journal != nil {
				if jerr := s.journal.MarkFailed(ctx, key, err); jerr != nil {
					s.logger.Warn("journal mark failed", slog.Any("error", jerr))
				}
			}
			return err
		}
		if s.journal != nil {
			if jerr := s.journal.MarkSucceeded(ctx, key); jerr != nil {
				s.logger.Warn("journal mark succeeded", slog.Any("error", jerr))
			}
		}
		return nil
	}
	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, lockKey, run)
	} else {
		err = run(ctx)
	}
	outcome := "succeeded"
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrAlreadySubmitted):
		outcome = "duplicate"
	case errors.Is(err, shared.ErrSubmissionInProgress):
		outcome = "locked"
	default:
		outcome = "failed"
		s.logger.Warn("offload submission failed", slog.String("module", module), slog.String("subject", subject), slog.Any("error", err))
	}
	if s.recorder != nil {
		s.recorder.RecordSubmission(module, outcome)
	}
	return err
}

func (s *Service) clear(ctx context.Context, sessionID, slot string) {
	if err := s.store.Clear(ctx, sessionID, slot); err != nil {
		s.logger.Warn("clear offload draft", slog.String("slot", slot), slog.Any("error", err))
	}
}

func checkTank(errs FieldErrors, prefix string, t TankReading) {
	for field, v := range map[string]decimal.Decimal{
		"dip": t.Dip, "volume": t.Volume, "density": t.Density,
	} {
		if v.IsNegative() {
			errs[prefix+"_"+field] = "Must not be negative"
		}
	}
}

// mergePumps copies submitted electric readings onto the draft's pump rows.
func mergePumps(errs FieldErrors, prefix string, rows, in []PumpReading) {
	for _, p := range in {
		for i := range rows {
			if rows[i].PumpID != p.PumpID {
				continue
			}
			if p.Electric.IsNegative() {
				errs[fmt.Sprintf("%s_pump_%d", prefix, p.PumpID)] = "Must not be negative"
			}
			rows[i].Electric = p.Electric
		}
	}
}

var deliveryFields = map[string]string{
	"TruckPlate":   "truck_plate",
	"DriverName":   "driver_name",
	"DriverPhone":  "driver_phone",
	"DeliveryNote": "delivery_note",
	"ArrivalTime":  "arrival_time",
}

func deliveryFieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := FieldErrors{}
	for _, fe := range verrs {
		name := deliveryFields[fe.Field()]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			errs[name] = "Required"
		case "phone":
			errs[name] = "Enter a valid phone number"
		case "max":
			errs[name] = "Too long (max " + fe.Param() + " characters)"
		default:
			errs[name] = "Invalid value"
		}
	}
	return errs
}
