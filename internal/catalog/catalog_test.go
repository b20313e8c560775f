package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/auth"
	"github.com/hackgods/testing-registration/internal/registration"
)

type memoryStore struct {
	places    map[string]registration.Place
	providers map[string]registration.PlaceProvider
	products  []registration.Product
	failList  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		places:    map[string]registration.Place{},
		providers: map[string]registration.PlaceProvider{},
	}
}

func (m *memoryStore) ListPlaces(context.Context) ([]registration.Place, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	out := make([]registration.Place, 0, len(m.places))
	for _, p := range m.places {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) GetPlace(_ context.Context, id string) (*registration.Place, error) {
	p, ok := m.places[id]
	if !ok {
		return nil, registration.ErrPlaceNotFound
	}
	return &p, nil
}

func (m *memoryStore) SetPlace(_ context.Context, p *registration.Place) error {
	m.places[p.ID] = *p
	return nil
}

func (m *memoryStore) DeletePlace(_ context.Context, id string) error {
	if _, ok := m.places[id]; !ok {
		return registration.ErrPlaceNotFound
	}
	delete(m.places, id)
	return nil
}

func (m *memoryStore) GetPlaceProvider(_ context.Context, id string) (*registration.PlaceProvider, error) {
	pp, ok := m.providers[id]
	if !ok {
		return nil, registration.ErrPlaceProviderNotFound
	}
	return &pp, nil
}

func (m *memoryStore) SetPlaceProvider(_ context.Context, pp *registration.PlaceProvider) error {
	m.providers[pp.ID] = *pp
	return nil
}

func (m *memoryStore) ListPublicPlaceProviders(context.Context) ([]registration.PlaceProvider, error) {
	var out []registration.PlaceProvider
	for _, pp := range m.providers {
		if pp.Public {
			out = append(out, pp)
		}
	}
	return out, nil
}

func (m *memoryStore) SetProduct(_ context.Context, p *registration.Product) error {
	m.products = append(m.products, *p)
	return nil
}

func admin(providerID string) auth.Caller {
	return auth.Caller{
		Email:           "admin@" + providerID + ".test",
		PlaceProviderID: providerID,
		Roles:           map[string][]auth.Capability{providerID: {auth.PlaceProviderAdmin}},
	}
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	store.providers["PR1"] = registration.PlaceProvider{ID: "PR1", CompanyID: "ACME", CompanyName: "Acme", MainEmail: "hr@acme.test", Public: true}
	store.providers["PR2"] = registration.PlaceProvider{ID: "PR2", CompanyID: "GLOBEX", CompanyName: "Globex", MainEmail: "hr@globex.test"}
	store.places["P1"] = registration.Place{ID: "P1", Name: "Main hall", PlaceProviderID: "PR1"}
	return NewService(store, zap.NewNop()), store
}

func TestUpsertPlace(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with fresh id", func(t *testing.T) {
		svc, store := newTestService()
		p, err := svc.UpsertPlace(ctx, admin("PR1"), registration.Place{Name: "Drive in", PlaceProviderID: "PR1", IsDriveIn: true})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Contains(t, store.places, p.ID)
	})

	t.Run("unknown id becomes a new place", func(t *testing.T) {
		svc, store := newTestService()
		p, err := svc.UpsertPlace(ctx, admin("PR1"), registration.Place{ID: "ghost", Name: "Tent", PlaceProviderID: "PR1"})
		require.NoError(t, err)
		assert.NotEqual(t, "ghost", p.ID)
		assert.NotContains(t, store.places, "ghost")
	})

	t.Run("updates existing", func(t *testing.T) {
		svc, store := newTestService()
		p, err := svc.UpsertPlace(ctx, admin("PR1"), registration.Place{ID: "P1", Name: "Renamed", PlaceProviderID: "PR1"})
		require.NoError(t, err)
		assert.Equal(t, "P1", p.ID)
		assert.Equal(t, "Renamed", store.places["P1"].Name)
	})

	t.Run("cannot take over another provider's place", func(t *testing.T) {
		svc, store := newTestService()
		_, err := svc.UpsertPlace(ctx, admin("PR2"), registration.Place{ID: "P1", Name: "Mine now", PlaceProviderID: "PR2"})
		assert.Equal(t, registration.KindAuthorization, registration.KindOf(err))
		assert.Equal(t, "Main hall", store.places["P1"].Name)
	})

	t.Run("requires admin", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.UpsertPlace(ctx, auth.Anonymous(), registration.Place{Name: "X", PlaceProviderID: "PR1"})
		assert.Equal(t, registration.KindAuthorization, registration.KindOf(err))
	})

	t.Run("validates payload", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.UpsertPlace(ctx, admin("PR1"), registration.Place{PlaceProviderID: "PR1"})
		var e *registration.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, registration.KindValidation, e.Kind)
		assert.Equal(t, "name", e.Field)
		assert.Equal(t, ReasonInvalidField, e.Reason)
	})
}

func TestDeletePlace(t *testing.T) {
	ctx := context.Background()

	svc, store := newTestService()
	_, err := svc.DeletePlace(ctx, admin("PR2"), "P1")
	assert.Equal(t, registration.KindAuthorization, registration.KindOf(err))

	p, err := svc.DeletePlace(ctx, admin("PR1"), "P1")
	require.NoError(t, err)
	assert.Equal(t, "Main hall", p.Name)
	assert.Empty(t, store.places)

	_, err = svc.DeletePlace(ctx, admin("PR1"), "P1")
	assert.Equal(t, registration.KindNotFound, registration.KindOf(err))
	assert.ErrorIs(t, err, registration.ErrPlaceNotFound)
}

func TestRegisterPlaceProvider(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	pp, err := svc.RegisterPlaceProvider(ctx, registration.PlaceProvider{ID: "chosen", CompanyID: "INITECH", CompanyName: "Initech", MainEmail: "it@initech.test"})
	require.NoError(t, err)
	assert.NotEqual(t, "chosen", pp.ID)
	assert.Contains(t, store.providers, pp.ID)

	_, err = svc.RegisterPlaceProvider(ctx, registration.PlaceProvider{CompanyID: "X", CompanyName: "X", MainEmail: "not-an-email"})
	var e *registration.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "mainEmail", e.Field)
}

func TestListing(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	providers, err := svc.ListPublicProviders(ctx)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "PR1", providers[0].ID)

	places, err := svc.ListPlaces(ctx)
	require.NoError(t, err)
	assert.Len(t, places, 1)

	store.failList = errors.New("pool closed")
	_, err = svc.ListPlaces(ctx)
	assert.Equal(t, registration.KindStore, registration.KindOf(err))
}

func TestSetProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("provider wide", func(t *testing.T) {
		svc, store := newTestService()
		_, err := svc.SetProduct(ctx, admin("PR1"), registration.Product{Code: "PCR", Name: "PCR", PlaceProviderID: "PR1", EmployeesRegistration: true})
		require.NoError(t, err)
		require.Len(t, store.products, 1)
		assert.Empty(t, store.products[0].PlaceID)
	})

	t.Run("place scoped", func(t *testing.T) {
		svc, store := newTestService()
		_, err := svc.SetProduct(ctx, admin("PR1"), registration.Product{Code: "AG", Name: "Antigen", PlaceProviderID: "PR1", PlaceID: "P1"})
		require.NoError(t, err)
		assert.Equal(t, "P1", store.products[0].PlaceID)
	})

	t.Run("place of another provider", func(t *testing.T) {
		svc, store := newTestService()
		store.places["P2"] = registration.Place{ID: "P2", Name: "Globex lobby", PlaceProviderID: "PR2"}
		_, err := svc.SetProduct(ctx, admin("PR1"), registration.Product{Code: "AG", Name: "Antigen", PlaceProviderID: "PR1", PlaceID: "P2"})
		assert.Equal(t, registration.KindAuthorization, registration.KindOf(err))
		assert.Empty(t, store.products)
	})

	t.Run("unknown provider", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.SetProduct(ctx, admin("PR9"), registration.Product{Code: "AG", Name: "Antigen", PlaceProviderID: "PR9"})
		assert.Equal(t, registration.KindNotFound, registration.KindOf(err))
	})

	t.Run("requires admin", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.SetProduct(ctx, admin("PR2"), registration.Product{Code: "AG", Name: "Antigen", PlaceProviderID: "PR1"})
		assert.Equal(t, registration.KindAuthorization, registration.KindOf(err))
	})
}
