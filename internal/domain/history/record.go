package history

import (
	"time"
	"unicode/utf8"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// MaxTechNotesLength bounds the technician notes stored on a record, in characters.
const MaxTechNotesLength = 1000

// RecordParams carries the fields of a service history record.
type RecordParams struct {
	VehicleID        uuid.UUID
	BookingID        uuid.UUID
	CustomerID       string
	TechnicianID     string
	ServiceType      string
	ServiceTitle     string
	Date             time.Time
	CompletedAt      time.Time
	MileageAtService int
	CostCents        int64
	TechNotes        string
	PartsUsed        []string
	PhotoURLs        []string
	WarrantyInfo     string
}

// Record is an immutable entry in a vehicle's service history.
// At most one exists per booking.
type Record struct {
	id        uuid.UUID
	params    RecordParams
	createdAt time.Time
}

// NewRecord validates p and creates a record.
func NewRecord(p RecordParams) (*Record, error) {
	if p.VehicleID == uuid.Nil {
		return nil, domain.NewValidationError("vehicle ID is required")
	}
	if p.BookingID == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if p.MileageAtService < 0 {
		return nil, domain.NewValidationError("mileage at service must not be negative")
	}
	if utf8.RuneCountInString(p.TechNotes) > MaxTechNotesLength {
		return nil, domain.NewValidationError("tech notes must be at most 1000 characters")
	}
	if p.CompletedAt.IsZero() {
		p.CompletedAt = time.Now()
	}
	if p.Date.IsZero() {
		p.Date = p.CompletedAt
	}
	p.CompletedAt = p.CompletedAt.UTC()
	p.Date = p.Date.UTC()
	if p.PartsUsed == nil {
		p.PartsUsed = []string{}
	}
	if p.PhotoURLs == nil {
		p.PhotoURLs = []string{}
	}
	return &Record{id: uuid.New(), params: p, createdAt: time.Now().UTC()}, nil
}

// Reconstruct rebuilds a Record from persistence.
func Reconstruct(id uuid.UUID, p RecordParams, createdAt time.Time) *Record {
	return &Record{id: id, params: p, createdAt: createdAt}
}

// Getters.
func (r *Record) ID() uuid.UUID { return r.id }
func (r *Record) VehicleID() uuid.UUID { return r.params.VehicleID }
func (r *Record) BookingID() uuid.UUID { return r.params.BookingID }
func (r *Record) CustomerID() string { return r.params.CustomerID }
func (r *Record) TechnicianID() string { return r.params.TechnicianID }
func (r *Record) ServiceType() string { return r.params.ServiceType }
func (r *Record) ServiceTitle() string { return r.params.ServiceTitle }
func (r *Record) Date() time.Time { return r.params.Date }
func (r *Record) CompletedAt() time.Time { return r.params.CompletedAt }
func (r *Record) MileageAtService() int { return r.params.MileageAtService }
func (r *Record) CostCents() int64 { return r.params.CostCents }
func (r *Record) TechNotes() string { return r.params.TechNotes }
func (r *Record) WarrantyInfo() string { return r.params.WarrantyInfo }
func (r *Record) CreatedAt() time.Time { return r.createdAt }

func (r *Record) PartsUsed() []string { return append([]string(nil), r.params.PartsUsed...) }
func (r *Record) PhotoURLs() []string { return append([]string(nil), r.params.PhotoURLs...) }

// Params returns a copy of the record's fields.
func (r *Record) Params() RecordParams {
	p := r.params
	p.PartsUsed = r.PartsUsed()
	p.PhotoURLs = r.PhotoURLs()
	return p
}
