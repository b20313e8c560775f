package registration

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPlaceNotFound         = errors.New("place not found")
	ErrPlaceProviderNotFound = errors.New("place provider not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrVisitorNotFound       = errors.New("visitor not found")
	ErrDuplicateBooking      = errors.New("person already booked this slot at this place")
)

// Repository is the store adapter the engine depends on. Lookups return the
// matching Err*NotFound sentinel when nothing exists.
type Repository interface {
	GetPlace(ctx context.Context, placeID string) (*Place, error)
	// GetPlaceProduct returns the product offered directly by a place.
	GetPlaceProduct(ctx context.Context, placeID, productCode string) (*Product, error)
	GetPlaceProvider(ctx context.Context, providerID string) (*PlaceProvider, error)
	GetProduct(ctx context.Context, providerID, productCode string) (*Product, error)

	// Hash index and HR records
	GetRegistrationIDFromHashedID(ctx context.Context, hash string) (uuid.UUID, error)
	GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error)
	// SetRegistration upserts the record and points every hash in hashes at it.
	SetRegistration(ctx context.Context, reg *Registration, hashes []string) (*Registration, error)

	// RegisterVisitor stores v, assigning id and admission code when v.ID is
	// nil. With commit false nothing is written.
	RegisterVisitor(ctx context.Context, v *Visitor, managerEmail string, commit bool) (*Visitor, error)
	GetVisitor(ctx context.Context, id uuid.UUID) (*Visitor, error)
	GetVisitorByPersonalNumber(ctx context.Context, personalNumber string, exact bool) (*Visitor, error)
	EnqueueByCode(ctx context.Context, code int64, identifierSuffix string) (bool, error)
}
