// Package catalog administers the places, place providers and products that
// registrations point at.
package catalog

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/auth"
	"github.com/hackgods/testing-registration/internal/registration"
)

// ReasonInvalidField is reported for any payload field failing its tag rule.
const ReasonInvalidField registration.Reason = "invalid_field"

// Store is the persistence the catalog needs. PgRepository implements it.
type Store interface {
	ListPlaces(ctx context.Context) ([]registration.Place, error)
	GetPlace(ctx context.Context, placeID string) (*registration.Place, error)
	SetPlace(ctx context.Context, p *registration.Place) error
	DeletePlace(ctx context.Context, placeID string) error
	GetPlaceProvider(ctx context.Context, providerID string) (*registration.PlaceProvider, error)
	SetPlaceProvider(ctx context.Context, pp *registration.PlaceProvider) error
	ListPublicPlaceProviders(ctx context.Context) ([]registration.PlaceProvider, error)
	SetProduct(ctx context.Context, p *registration.Product) error
}

type Service struct {
	store    Store
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{store: store, validate: v, log: log}
}

func (s *Service) ListPlaces(ctx context.Context) ([]registration.Place, error) {
	places, err := s.store.ListPlaces(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return places, nil
}

// UpsertPlace creates the place when its id is empty or unknown, otherwise
// overwrites it. The caller must administer the owning provider, and for an
// existing place also the provider that owned it before.
func (s *Service) UpsertPlace(ctx context.Context, caller auth.Caller, p registration.Place) (*registration.Place, error) {
	if err := s.check(&p); err != nil {
		return nil, err
	}
	if !auth.IsPlaceProviderAdmin(caller, p.PlaceProviderID) {
		return nil, denied()
	}

	created := p.ID == ""
	if !created {
		existing, err := s.store.GetPlace(ctx, p.ID)
		switch {
		case errors.Is(err, registration.ErrPlaceNotFound):
			created = true
		case err != nil:
			return nil, storeFailure(err)
		case !auth.IsPlaceProviderAdmin(caller, existing.PlaceProviderID):
			return nil, denied()
		}
	}
	if created {
		p.ID = uuid.NewString()
	}

	if err := s.store.SetPlace(ctx, &p); err != nil {
		return nil, storeFailure(err)
	}
	s.log.Info("place saved",
		zap.String("place_id", p.ID),
		zap.String("place_provider_id", p.PlaceProviderID),
		zap.Bool("created", created),
	)
	return &p, nil
}

func (s *Service) DeletePlace(ctx context.Context, caller auth.Caller, placeID string) (*registration.Place, error) {
	place, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, registration.ErrPlaceNotFound) {
			return nil, placeNotFound(placeID, err)
		}
		return nil, storeFailure(err)
	}
	if !auth.IsPlaceProviderAdmin(caller, place.PlaceProviderID) {
		return nil, denied()
	}
	if err := s.store.DeletePlace(ctx, placeID); err != nil {
		if errors.Is(err, registration.ErrPlaceNotFound) {
			return nil, placeNotFound(placeID, err)
		}
		return nil, storeFailure(err)
	}
	s.log.Info("place deleted", zap.String("place_id", placeID))
	return place, nil
}

// RegisterPlaceProvider signs up a new testing company. It always gets a
// fresh id; role grants for its staff are issued outside this service.
func (s *Service) RegisterPlaceProvider(ctx context.Context, pp registration.PlaceProvider) (*registration.PlaceProvider, error) {
	if err := s.check(&pp); err != nil {
		return nil, err
	}
	pp.ID = uuid.NewString()
	if err := s.store.SetPlaceProvider(ctx, &pp); err != nil {
		return nil, storeFailure(err)
	}
	s.log.Info("place provider registered", zap.String("place_provider_id", pp.ID))
	return &pp, nil
}

func (s *Service) ListPublicProviders(ctx context.Context) ([]registration.PlaceProvider, error) {
	providers, err := s.store.ListPublicPlaceProviders(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return providers, nil
}

// SetProduct stores a provider wide product, or a place scoped one when
// PlaceID is set. A place scoped product must belong to a place of the same provider.
func (s *Service) SetProduct(ctx context.Context, caller auth.Caller, p registration.Product) (*registration.Product, error) {
	if err := s.check(&p); err != nil {
		return nil, err
	}
	if !auth.IsPlaceProviderAdmin(caller, p.PlaceProviderID) {
		return nil, denied()
	}
	if _, err := s.store.GetPlaceProvider(ctx, p.PlaceProviderID); err != nil {
		if errors.Is(err, registration.ErrPlaceProviderNotFound) {
			return nil, &registration.Error{Kind: registration.KindNotFound, Entity: "place_provider", Key: p.PlaceProviderID, Err: err}
		}
		return nil, storeFailure(err)
	}
	if p.PlaceID != "" {
		place, err := s.store.GetPlace(ctx, p.PlaceID)
		if err != nil {
			if errors.Is(err, registration.ErrPlaceNotFound) {
				return nil, placeNotFound(p.PlaceID, err)
			}
			return nil, storeFailure(err)
		}
		if place.PlaceProviderID != p.PlaceProviderID {
			return nil, denied()
		}
	}

	if err := s.store.SetProduct(ctx, &p); err != nil {
		return nil, storeFailure(err)
	}
	return &p, nil
}

func (s *Service) check(payload any) error {
	err := s.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return &registration.Error{
			Kind:   registration.KindValidation,
			Field:  fields[0].Field(),
			Reason: ReasonInvalidField,
			Err:    err,
		}
	}
	return &registration.Error{Kind: registration.KindValidation, Reason: ReasonInvalidField, Err: err}
}

func denied() error {
	return &registration.Error{Kind: registration.KindAuthorization, Capability: string(auth.PlaceProviderAdmin)}
}

func placeNotFound(placeID string, cause error) error {
	return &registration.Error{Kind: registration.KindNotFound, Entity: "place", Key: placeID, Err: cause}
}

func storeFailure(err error) error {
	return &registration.Error{Kind: registration.KindStore, Err: err}
}
