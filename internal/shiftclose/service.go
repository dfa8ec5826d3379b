package shiftclose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pumpline-erp/pumpline/internal/reconcile"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/shifts"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// ModuleName labels journal rows and metrics.
const ModuleName = "shift_close"

// ErrShiftClosed is returned when the backend reports the shift as closed.
var ErrShiftClosed = errors.New("shiftclose: shift already closed")

// DraftStore persists wizard drafts per browser session.
type DraftStore interface {
	Load(ctx context.Context, sessionID, slot string, out any) error
	Save(ctx context.Context, sessionID, slot string, draft any) error
	Clear(ctx context.Context, sessionID, slot string) error
	Slots(ctx context.Context, sessionID string) ([]string, error)
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

// Config tunes the service.
type Config struct {
	FuelTolerance decimal.Decimal
}

// Service drives the closing wizard.
type Service struct {
	gateway  Gateway
	store    DraftStore
	journal  Journal
	locker   Locker
	recorder Recorder
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithJournal enables the submission journal.
func WithJournal(j Journal) Option { return func(s *Service) { s.journal = j } }

// WithLocker enables the finalize lock.
func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

// WithRecorder enables submission metrics.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs the service.
func NewService(gateway Gateway, store DraftStore, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{gateway: gateway, store: store, logger: logger, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const slotPrefix = "shift-close:"

func slot(shiftID int64) string {
	return slotPrefix + strconv.FormatInt(shiftID, 10)
}

// InProgress lists the shifts the session has an unfinished closing for.
func (s *Service) InProgress(ctx context.Context, sessionID string) ([]int64, error) {
	slots, err := s.store.Slots(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(slots))
	for _, sl := range slots {
		raw, ok := strings.CutPrefix(sl, slotPrefix)
		if !ok {
			continue
		}
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Start resumes the session's draft for the shift or seeds a new one from
// the backend closing context.
func (s *Service) Start(ctx context.Context, sessionID string, shiftID int64) (Draft, error) {
	d, err := s.Draft(ctx, sessionID, shiftID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, wizard.ErrNoDraft) {
		return Draft{}, err
	}

	var (
		sh    shifts.Shift
		cc    ClosingContext
		check PreClosingCheck
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sh, err = s.gateway.GetShift(gctx, shiftID)
		return err
	})
	g.Go(func() error {
		var err error
		cc, err = s.gateway.ClosingContext(gctx, shiftID)
		return err
	})
	g.Go(func() error {
		var err error
		check, err = s.gateway.PreClosingCheck(gctx, shiftID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Draft{}, fmt.Errorf("load closing context for shift %d: %w", shiftID, err)
	}
	if sh.Closed() {
		return Draft{}, ErrShiftClosed
	}
	cc.Shift = sh

	d = NewDraft(cc, check, uuid.NewString(), s.now())
	if err := s.store.Save(ctx, sessionID, slot(shiftID), d); err != nil {
		return Draft{}, err
	}
	s.logger.Info("shift closing started", slog.Int64("shift_id", shiftID), slog.Int("pumps", len(d.Pumps)), slog.Int("tanks", len(d.Tanks)))
	return d, nil
}

// Draft loads the draft in progress.
func (s *Service) Draft(ctx context.Context, sessionID string, shiftID int64) (Draft, error) {
	var d Draft
	if err := s.store.Load(ctx, sessionID, slot(shiftID), &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Summary derives the reconciliation of a draft.
func (s *Service) Summary(d Draft) Summary {
	return d.Summarize(s.cfg.FuelTolerance)
}

// RefreshCheck re-runs the backend pre-closing check.
func (s *Service) RefreshCheck(ctx context.Context, sessionID string, shiftID int64) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		var (
			sh    shifts.Shift
			check PreClosingCheck
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sh, err = s.gateway.GetShift(gctx, shiftID)
			return err
		})
		g.Go(func() error {
			var err error
			check, err = s.gateway.PreClosingCheck(gctx, shiftID)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("refresh pre-closing check: %w", err)
		}
		d.Context.Shift = sh
		d.Check = check
		return nil
	})
}

// PumpInput is the closing capture of one pump.
type PumpInput struct {
	PumpID      int64
	EndElectric decimal.Decimal
	EndManual   decimal.Decimal
	EndCash     decimal.Decimal
}

// TankInput is the closing capture of one tank.
type TankInput struct {
	TankID      int64
	EndDip      decimal.Decimal
	EndVolume   decimal.Decimal
	Temperature decimal.Decimal
	Density     decimal.Decimal
}

// CollectionInput is the collection of one island.
type CollectionInput struct {
	IslandID int64
	Amounts  reconcile.Collection
	Notes    string
}

// SavePumps stores pump readings. Unknown pumps are ignored.
func (s *Service) SavePumps(ctx context.Context, sessionID string, shiftID int64, in []PumpInput) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		errs := FieldErrors{}
		for _, p := range in {
			for i := range d.Pumps {
				if d.Pumps[i].PumpID != p.PumpID {
					continue
				}
				key := strconv.FormatInt(p.PumpID, 10)
				errs.negative("end_electric_"+key, p.EndElectric)
				errs.negative("end_manual_"+key, p.EndManual)
				errs.negative("end_cash_"+key, p.EndCash)
				d.Pumps[i].EndElectric = p.EndElectric
				d.Pumps[i].EndManual = p.EndManual
				d.Pumps[i].EndCash = p.EndCash
			}
		}
		return errs.err()
	})
}

// SaveTanks stores tank dips. Unknown tanks are ignored.
func (s *Service) SaveTanks(ctx context.Context, sessionID string, shiftID int64, in []TankInput) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		errs := FieldErrors{}
		for _, t := range in {
			for i := range d.Tanks {
				if d.Tanks[i].TankID != t.TankID {
					continue
				}
				key := strconv.FormatInt(t.TankID, 10)
				errs.negative("end_dip_"+key, t.EndDip)
				errs.negative("end_volume_"+key, t.EndVolume)
				errs.negative("density_"+key, t.Density)
				d.Tanks[i].EndDip = t.EndDip
				d.Tanks[i].EndVolume = t.EndVolume
				d.Tanks[i].Temperature = t.Temperature
				d.Tanks[i].Density = t.Density
			}
		}
		return errs.err()
	})
}

// SaveCollections stores island collections and the closing notes.
func (s *Service) SaveCollections(ctx context.Context, sessionID string, shiftID int64, in []CollectionInput, notes string) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		errs := FieldErrors{}
		for _, c := range in {
			for i := range d.Collections {
				if d.Collections[i].IslandID != c.IslandID {
					continue
				}
				key := strconv.FormatInt(c.IslandID, 10)
				errs.negative("cash_"+key, c.Amounts.Cash)
				errs.negative("mobile_money_"+key, c.Amounts.MobileMoney)
				errs.negative("visa_"+key, c.Amounts.Visa)
				errs.negative("mastercard_"+key, c.Amounts.Mastercard)
				errs.negative("debt_"+key, c.Amounts.Debt)
				errs.negative("other_"+key, c.Amounts.Other)
				d.Collections[i].Amounts = c.Amounts
				d.Collections[i].Notes = c.Notes
			}
		}
		d.Notes = notes
		return errs.err()
	})
}

// Next advances the wizard when the current step's guard passes.
func (s *Service) Next(ctx context.Context, sessionID string, shiftID int64) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		next, err := Flow.Next(d.Step, *d)
		if err != nil {
			return err
		}
		d.Step = next
		return nil
	})
}

// Back retreats one step.
func (s *Service) Back(ctx context.Context, sessionID string, shiftID int64) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		prev, err := Flow.Back(d.Step)
		if err != nil {
			return err
		}
		d.Step = prev
		return nil
	})
}

// GoTo jumps back to an earlier step.
func (s *Service) GoTo(ctx context.Context, sessionID string, shiftID int64, target wizard.Step) (Draft, error) {
	return s.update(ctx, sessionID, shiftID, func(d *Draft) error {
		step, err := Flow.GoTo(d.Step, target)
		if err != nil {
			return err
		}
		d.Step = step
		return nil
	})
}

// Cancel discards the draft.
func (s *Service) Cancel(ctx context.Context, sessionID string, shiftID int64) error {
	if err := s.store.Clear(ctx, sessionID, slot(shiftID)); err != nil {
		return err
	}
	s.logger.Info("shift closing cancelled", slog.Int64("shift_id", shiftID))
	return nil
}

// Finalize submits the closing payload. On failure the draft stays on the
// summary step with the error recorded so the user can retry.
func (s *Service) Finalize(ctx context.Context, sessionID string, shiftID int64) (CloseResult, error) {
	d, err := s.Draft(ctx, sessionID, shiftID)
	if err != nil {
		return CloseResult{}, err
	}
	if d.Step != StepSummary {
		return CloseResult{}, fmt.Errorf("%w: finalize from %q", wizard.ErrInvalidTransition, d.Step)
	}
	for _, step := range Flow.Steps() {
		if step == StepSummary {
			break
		}
		if err := Flow.Check(step, d); err != nil {
			return CloseResult{}, err
		}
	}

	payload := BuildPayload(d, s.cfg.FuelTolerance, s.now())
	var result CloseResult
	submit := func(ctx context.Context) error {
		if s.journal != nil {
			if err := s.journal.Begin(ctx, d.IdempotencyKey, ModuleName, strconv.FormatInt(shiftID, 10), payload); err != nil {
				return err
			}
		}
		res, err := s.gateway.CloseShift(ctx, shiftID, payload, d.IdempotencyKey)
		if err != nil {
			if s.journal != nil {
				if jerr := s.journal.MarkFailed(ctx, d.IdempotencyKey, err); jerr != nil {
					s.logger.Warn("journal mark failed", slog.Any("error", jerr))
				}
			}
			return err
		}
		if s.journal != nil {
			if jerr := s.journal.MarkSucceeded(ctx, d.IdempotencyKey); jerr != nil {
				s.logger.Warn("journal mark succeeded", slog.Any("error", jerr))
			}
		}
		result = res
		return nil
	}

	if s.locker != nil {
		err = s.locker.WithLock(ctx, shared.ShiftCloseLockKey(shiftID), submit)
	} else {
		err = submit(ctx)
	}

	switch {
	case err == nil:
		s.record("succeeded")
		if cerr := s.store.Clear(ctx, sessionID, slot(shiftID)); cerr != nil {
			s.logger.Warn("clear closing draft", slog.Any("error", cerr))
		}
		s.logger.Info("shift closed",
			slog.Int64("shift_id", shiftID),
			slog.String("collected", payload.Totals.Collected.String()),
			slog.String("variance", payload.Totals.Variance.String()))
		if result.ShiftID == 0 {
			result.ShiftID = shiftID
		}
		return result, nil
	case errors.Is(err, shared.ErrAlreadySubmitted):
		s.record("duplicate")
		if cerr := s.store.Clear(ctx, sessionID, slot(shiftID)); cerr != nil {
			s.logger.Warn("clear closing draft", slog.Any("error", cerr))
		}
		return CloseResult{}, err
	case errors.Is(err, shared.ErrSubmissionInProgress):
		s.record("locked")
		return CloseResult{}, err
	default:
		s.record("failed")
		s.logger.Warn("shift close submission failed", slog.Int64("shift_id", shiftID), slog.Any("error", err))
		d.LastError = err.Error()
		if serr := s.store.Save(ctx, sessionID, slot(shiftID), d); serr != nil {
			s.logger.Warn("save closing draft", slog.Any("error", serr))
		}
		return CloseResult{}, err
	}
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordSubmission(ModuleName, outcome)
	}
}

// update loads the draft, applies fn and saves it. The draft is saved even
// when fn reports field errors so entered values are not lost.
func (s *Service) update(ctx context.Context, sessionID string, shiftID int64, fn func(*Draft) error) (Draft, error) {
	d, err := s.Draft(ctx, sessionID, shiftID)
	if err != nil {
		return Draft{}, err
	}
	ferr := fn(&d)
	var fieldErrs FieldErrors
	if ferr != nil && !errors.As(ferr, &fieldErrs) {
		return d, ferr
	}
	if err := s.store.Save(ctx, sessionID, slot(shiftID), d); err != nil {
		return Draft{}, err
	}
	return d, ferr
}

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return fmt.Sprintf("shiftclose: %d invalid field(s)", len(f))
}

func (f FieldErrors) negative(field string, v decimal.Decimal) {
	if v.IsNegative() {
		f[field] = "must not be negative"
	}
}

func (f FieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
