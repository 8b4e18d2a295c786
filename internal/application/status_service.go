package application

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	historyDomain "github.com/fixmate/service-marketplace/internal/domain/history"
	jobDomain "github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/async"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
	"github.com/fixmate/service-marketplace/internal/proto/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "service-marketplace"

// errNoGeocodeResult is logged when the geocoder could not resolve an address.
var errNoGeocodeResult = errors.New("geocoder returned no result")

// TransitionOptions carries the optional completion details of a transition.
type TransitionOptions struct {
	TechNotes        string
	MileageAtService domain.Optional[int]
}

// TransitionResult is the response of a successful transition.
type TransitionResult struct {
	BookingID uuid.UUID  `json:"bookingId"`
	Status    string     `json:"status"`
	JobID     *uuid.UUID `json:"jobId,omitempty"`
}

// StatusService drives the booking status state machine and its side effects.
type StatusService struct {
	bookings  bookingDomain.BookingRepository
	vehicles  vehicleDomain.VehicleRepository
	history   historyDomain.RecordRepository
	assigner  bookingDomain.TechnicianAssigner
	geocoder  Geocoder
	publisher EventPublisher
	notifier  Notifier
	runner    *async.Runner
	logger    *zap.Logger
}

// NewStatusService creates a StatusService. geocoder, publisher and notifier may be nil.
// A nil assigner assigns the accepting caller.
func NewStatusService(
	bookings bookingDomain.BookingRepository,
	vehicles vehicleDomain.VehicleRepository,
	history historyDomain.RecordRepository,
	assigner bookingDomain.TechnicianAssigner,
	geocoder Geocoder,
	publisher EventPublisher,
	notifier Notifier,
	runner *async.Runner,
	logger *zap.Logger,
) *StatusService {
	if assigner == nil {
		assigner = bookingDomain.AcceptingCallerAssigner{}
	}
	return &StatusService{
		bookings:  bookings,
		vehicles:  vehicles,
		history:   history,
		assigner:  assigner,
		geocoder:  geocoder,
		publisher: publisher,
		notifier:  notifier,
		runner:    runner,
		logger:    logger,
	}
}

// Transition moves a booking to target on behalf of callerID.
func (s *StatusService) Transition(
	ctx context.Context,
	bookingID uuid.UUID,
	callerID string,
	target bookingDomain.BookingStatus,
	opts TransitionOptions,
) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", target))
	}
	if utf8.RuneCountInString(opts.TechNotes) > historyDomain.MaxTechNotesLength {
		return nil, domain.NewValidationError("tech notes must be at most 1000 characters")
	}
	if m, ok := opts.MileageAtService.Get(); ok && m < 0 {
		return nil, domain.NewValidationError("mileage at service must not be negative")
	}

	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	kind, err := bk.PlanTransition(callerID, target)
	if err != nil {
		return nil, err
	}
	from := bk.Status()

	switch kind {
	case bookingDomain.TransitionAcceptRepeat:
		s.logger.Info("repeat acceptance returned existing job",
			zap.String("booking_id", bk.ID().String()),
			zap.String("technician_id", callerID),
		)
		return toTransitionResult(bk), nil

	case bookingDomain.TransitionAccept:
		if err := s.accept(ctx, bk, callerID); err != nil {
			if domain.IsConflict(err) {
				if repeat := s.acceptedByCaller(ctx, bookingID, callerID); repeat != nil {
					return toTransitionResult(repeat), nil
				}
			}
			return nil, err
		}

	case bookingDomain.TransitionCancel:
		if err := bk.Cancel(); err != nil {
			return nil, err
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			return nil, err
		}

	case bookingDomain.TransitionAdvance, bookingDomain.TransitionComplete:
		if err := bk.Advance(target); err != nil {
			return nil, err
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			return nil, err
		}
		if kind == bookingDomain.TransitionComplete {
			s.recordCompletion(ctx, bk, opts)
		}
	}

	s.logger.Info("booking status changed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("from", string(from)),
		zap.String("to", string(bk.Status())),
		zap.String("caller_id", callerID),
	)
	s.publishStatusChanged(ctx, bk, from, callerID)
	s.notifyCounterparty(ctx, bk, callerID)

	return toTransitionResult(bk), nil
}

// accept creates the job and stamps the booking in one atomic write.
func (s *StatusService) accept(ctx context.Context, bk *bookingDomain.Booking, callerID string) error {
	technicianID, err := s.assigner.AssignTechnician(ctx, bk, callerID)
	if err != nil {
		return fmt.Errorf("failed to assign technician: %w", err)
	}

	j, err := jobDomain.NewJob(bk.ID(), technicianID, bk.CustomerID())
	if err != nil {
		return err
	}
	if err := bk.Accept(technicianID, j.ID()); err != nil {
		return err
	}
	bk.IncrementVersion()

	if err := s.bookings.SaveAcceptance(ctx, bk, j); err != nil {
		if domain.IsConflict(err) {
			return domain.NewConflictError("booking already accepted")
		}
		return err
	}

	s.logger.Info("booking accepted",
		zap.String("booking_id", bk.ID().String()),
		zap.String("job_id", j.ID().String()),
		zap.String("technician_id", technicianID),
	)

	if !bk.Address().HasCoordinates() && s.geocoder != nil {
		s.enrichAddress(ctx, bk.ID(), bk.Address())
	}
	return nil
}

// acceptedByCaller re-reads a booking whose acceptance lost a race and returns
// it when the winner was the same technician.
func (s *StatusService) acceptedByCaller(ctx context.Context, bookingID uuid.UUID, callerID string) *bookingDomain.Booking {
	current, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil
	}
	kind, err := current.PlanTransition(callerID, bookingDomain.StatusAccepted)
	if err != nil || kind != bookingDomain.TransitionAcceptRepeat {
		return nil
	}
	s.logger.Info("concurrent repeat acceptance returned existing job",
		zap.String("booking_id", bookingID.String()),
		zap.String("technician_id", callerID),
	)
	return current
}

// enrichAddress resolves coordinates in the background and patches only the address.
func (s *StatusService) enrichAddress(ctx context.Context, bookingID uuid.UUID, addr bookingDomain.Address) {
	s.runner.Go(ctx, "geocode_address", func(ctx context.Context) error {
		lat, lng, ok := s.geocoder.Geocode(ctx, addr.Line())
		if !ok {
			return errNoGeocodeResult
		}
		addr.Lat, addr.Lng = &lat, &lng
		return s.bookings.UpdateAddress(ctx, bookingID, addr)
	}, zap.String("booking_id", bookingID.String()))
}

// recordCompletion writes the service history record and stamps the vehicle.
// Both run after the status commit and never affect the transition's outcome.
func (s *StatusService) recordCompletion(ctx context.Context, bk *bookingDomain.Booking, opts TransitionOptions) {
	svc := bk.ServiceSnapshot()
	mileage := opts.MileageAtService.OrElse(bk.VehicleSnapshot().Mileage)
	completedAt := time.Now().UTC()
	if bk.CompletedAt() != nil {
		completedAt = *bk.CompletedAt()
	}
	technicianID := ""
	if bk.TechnicianID() != nil {
		technicianID = *bk.TechnicianID()
	}
	fields := []zap.Field{
		zap.String("booking_id", bk.ID().String()),
		zap.String("vehicle_id", bk.VehicleID().String()),
	}

	s.runner.Go(ctx, "create_service_history", func(ctx context.Context) error {
		rec, err := historyDomain.NewRecord(historyDomain.RecordParams{
			VehicleID:        bk.VehicleID(),
			BookingID:        bk.ID(),
			CustomerID:       bk.CustomerID(),
			TechnicianID:     technicianID,
			ServiceType:      svc.Category,
			ServiceTitle:     svc.Title,
			Date:             completedAt,
			CompletedAt:      completedAt,
			MileageAtService: mileage,
			CostCents:        bk.TotalPriceCents(),
			TechNotes:        opts.TechNotes,
		})
		if err != nil {
			return err
		}
		return s.history.Create(ctx, rec)
	}, fields...)

	s.runner.Go(ctx, "stamp_vehicle_service", func(ctx context.Context) error {
		v, err := s.vehicles.FindByID(ctx, bk.VehicleID())
		if err != nil {
			return err
		}
		v.RecordService(vehicleDomain.LastService{
			BookingID:   bk.ID(),
			ServiceType: svc.Category,
			Title:       svc.Title,
			Mileage:     mileage,
			Date:        completedAt,
		})
		v.IncrementVersion()
		return s.vehicles.Update(ctx, v)
	}, fields...)
}

func (s *StatusService) publishStatusChanged(ctx context.Context, bk *bookingDomain.Booking, from bookingDomain.BookingStatus, callerID string) {
	if s.publisher == nil {
		return
	}
	evt := events.BookingStatusChangedEvent{
		BookingID:    bk.ID(),
		CustomerID:   bk.CustomerID(),
		TechnicianID: bk.TechnicianID(),
		JobID:        bk.JobID(),
		FromStatus:   string(from),
		ToStatus:     string(bk.Status()),
		ChangedBy:    callerID,
		OccurredAt:   time.Now().UTC(),
	}
	ce, err := kafka.NewCloudEvent(serviceName, events.BookingStatusChanged, evt)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", events.BookingStatusChanged),
			zap.Error(err),
		)
		return
	}
	ce.Subject = bk.ID().String()

	if err := s.publisher.PublishEvent(ctx, events.TopicBookingEvents, ce); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", events.TopicBookingEvents),
			zap.String("event_type", events.BookingStatusChanged),
			zap.Error(err),
		)
	}
}

func (s *StatusService) notifyCounterparty(ctx context.Context, bk *bookingDomain.Booking, callerID string) {
	if s.notifier == nil {
		return
	}
	recipient, ok := counterparty(bk, callerID)
	if !ok {
		return
	}

	title := fmt.Sprintf("Booking %s", statusLabel(bk.Status()))
	body := fmt.Sprintf("%s is now %s.", bk.ServiceSnapshot().Title, statusLabel(bk.Status()))
	data := map[string]string{
		"booking_id": bk.ID().String(),
		"status":     string(bk.Status()),
	}
	s.runner.Go(ctx, "notify_status_change", func(ctx context.Context) error {
		return s.notifier.Notify(ctx, recipient, notification.KindBookingStatus, title, body, data)
	}, zap.String("booking_id", bk.ID().String()), zap.String("user_id", recipient))
}

func statusLabel(st bookingDomain.BookingStatus) string {
	switch st {
	case bookingDomain.StatusEnRoute:
		return "en route"
	case bookingDomain.StatusInProgress:
		return "in progress"
	default:
		return string(st)
	}
}

func toTransitionResult(bk *bookingDomain.Booking) *TransitionResult {
	return &TransitionResult{
		BookingID: bk.ID(),
		Status:    string(bk.Status()),
		JobID:     bk.JobID(),
	}
}
