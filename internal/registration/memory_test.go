package registration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/hashid"
	redisclient "github.com/hackgods/testing-registration/internal/redis"
)

// memoryRepo is an in-memory Repository for engine tests.
type memoryRepo struct {
	mu sync.Mutex

	places        map[string]*Place
	providers     map[string]*PlaceProvider
	placeProducts map[string]*Product
	products      map[string]*Product
	hashes        map[string]uuid.UUID
	registrations map[uuid.UUID]*Registration
	visitors      map[uuid.UUID]*Visitor

	hashLookups     int
	placeProductErr error
	nextCode        int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		places:        map[string]*Place{},
		providers:     map[string]*PlaceProvider{},
		placeProducts: map[string]*Product{},
		products:      map[string]*Product{},
		hashes:        map[string]uuid.UUID{},
		registrations: map[uuid.UUID]*Registration{},
		visitors:      map[uuid.UUID]*Visitor{},
		nextCode:      100000000,
	}
}

func productKey(a, b string) string { return a + "|" + b }

func (m *memoryRepo) GetPlace(_ context.Context, placeID string) (*Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[placeID]
	if !ok {
		return nil, ErrPlaceNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) GetPlaceProduct(_ context.Context, placeID, code string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeProductErr != nil {
		return nil, m.placeProductErr
	}
	p, ok := m.placeProducts[productKey(placeID, code)]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) GetPlaceProvider(_ context.Context, providerID string) (*PlaceProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pp, ok := m.providers[providerID]
	if !ok {
		return nil, ErrPlaceProviderNotFound
	}
	cp := *pp
	return &cp, nil
}

func (m *memoryRepo) GetProduct(_ context.Context, providerID, code string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productKey(providerID, code)]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) GetRegistrationIDFromHashedID(_ context.Context, hash string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashLookups++
	id, ok := m.hashes[hash]
	if !ok {
		return uuid.Nil, ErrRegistrationNotFound
	}
	return id, nil
}

func (m *memoryRepo) GetRegistration(_ context.Context, id uuid.UUID) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	cp := *r
	cp.CompanyIdentifiers = append([]CompanyIdentifier(nil), r.CompanyIdentifiers...)
	return &cp, nil
}

func (m *memoryRepo) SetRegistration(_ context.Context, reg *Registration, hashes []string) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *reg
	m.registrations[reg.ID] = &cp
	for _, h := range hashes {
		m.hashes[h] = reg.ID
	}
	out := cp
	return &out, nil
}

func (m *memoryRepo) RegisterVisitor(_ context.Context, v *Visitor, managerEmail string, commit bool) (*Visitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *v
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if managerEmail != "" {
		out.RegistrationUpdatedByManager = managerEmail
	}
	if !commit {
		return &out, nil
	}
	if out.ChosenPlaceID != "" && out.PersonalNumber() != "" {
		for id, existing := range m.visitors {
			if id != out.ID && existing.ChosenPlaceID == out.ChosenPlaceID &&
				existing.ChosenSlot == out.ChosenSlot && existing.PersonalNumber() == out.PersonalNumber() {
				return nil, ErrDuplicateBooking
			}
		}
	}
	if prev, ok := m.visitors[out.ID]; ok {
		out.Code = prev.Code
	} else if out.Code == 0 {
		m.nextCode++
		out.Code = m.nextCode
	}
	stored := out
	m.visitors[out.ID] = &stored
	return &out, nil
}

func (m *memoryRepo) GetVisitor(_ context.Context, id uuid.UUID) (*Visitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visitors[id]
	if !ok {
		return nil, ErrVisitorNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memoryRepo) GetVisitorByPersonalNumber(_ context.Context, personal string, exact bool) (*Visitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visitors {
		pn := v.PersonalNumber()
		if pn == "" {
			continue
		}
		if (exact && pn == personal) || (!exact && strings.HasSuffix(pn, personal)) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrVisitorNotFound
}

func (m *memoryRepo) EnqueueByCode(_ context.Context, code int64, suffix string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visitors {
		if v.Code == code && v.PersonalNumber() != "" && lastN(v.PersonalNumber(), 4) == suffix {
			if v.EnqueuedAt == nil {
				now := time.Now().UTC()
				v.EnqueuedAt = &now
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) visitorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

type captchaMock struct {
	mock.Mock
}

func (c *captchaMock) IsCaptchaPassed(ctx context.Context, token string) (bool, error) {
	args := c.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

var testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Now:           func() time.Time { return testNow },
		PhonePrefix:   "+421",
		ImportWorkers: 4,
	}
}

func testHasher(t *testing.T) *hashid.Hasher {
	t.Helper()
	h, err := hashid.New([]byte("test-hash-key"))
	require.NoError(t, err)
	return h
}

func testLocker(t *testing.T) redisclient.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisclient.NewRedisLocker(client, 2*time.Second)
}

func intp(n int) *int { return &n }

// fixture wires the end-to-end scenario: place P1 of provider PR1
// (company ACME) offering PCR with employee registration.
type fixture struct {
	repo     *memoryRepo
	hasher   *hashid.Hasher
	service  *Service
	importer *Importer
	queue    *QueueTracker
	captcha  *captchaMock
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	repo.providers["PR1"] = &PlaceProvider{ID: "PR1", CompanyID: "ACME", CompanyName: "Acme s.r.o.", MainEmail: "hr@acme.test"}
	repo.places["P1"] = &Place{ID: "P1", Name: "Main hall", PlaceProviderID: "PR1"}
	repo.products[productKey("PR1", "PCR")] = &Product{Code: "PCR", Name: "PCR test", PlaceProviderID: "PR1", EmployeesRegistration: true}
	repo.products[productKey("PR1", "AG")] = &Product{Code: "AG", Name: "Antigen test", PlaceProviderID: "PR1"}

	hasher := testHasher(t)
	locker := testLocker(t)
	captcha := &captchaMock{}
	log := zap.NewNop()

	return &fixture{
		repo:     repo,
		hasher:   hasher,
		service:  NewService(repo, hasher, captcha, locker, opts, log, nil),
		importer: NewImporter(repo, hasher, locker, opts, log, nil),
		queue:    NewQueueTracker(repo, captcha, opts, log, nil),
		captcha:  captcha,
	}
}

// importEmployee stores an HR record for employee at ACME directly.
func (f *fixture) importEmployee(t *testing.T, employee string, reg Registration) *Registration {
	t.Helper()
	reg.ID = uuid.New()
	reg.Created = testNow
	reg.CompanyIdentifiers = []CompanyIdentifier{{CompanyID: "ACME", CompanyName: "Acme s.r.o.", EmployeeID: employee}}
	saved, err := f.repo.SetRegistration(context.Background(), &reg, []string{f.hasher.Hash("ACME", employee)})
	require.NoError(t, err)
	return saved
}

// addOtherProvider registers provider PR2 (Globex) with place P2.
func (f *fixture) addOtherProvider() {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	f.repo.providers["PR2"] = &PlaceProvider{ID: "PR2", CompanyID: "GLOBEX", CompanyName: "Globex a.s.", MainEmail: "hr@globex.test"}
	f.repo.places["P2"] = &Place{ID: "P2", Name: "Globex lobby", PlaceProviderID: "PR2"}
}

func validVisitor() *Visitor {
	return &Visitor{
		FirstName:     "Jana",
		LastName:      "Novakova",
		BirthDayDay:   intp(12),
		BirthDayMonth: intp(4),
		BirthDayYear:  intp(1985),
		PersonType:    PersonIDCard,
		RC:            "123456/7890",
		Street:        "Hlavna",
		StreetNo:      "12",
		ZIP:           "81101",
		City:          "Bratislava",
		Phone:         "+421900000000",
		Email:         "jana@example.test",
		ChosenPlaceID: "P1",
		Product:       "AG",
		ChosenSlot:    testNow.Add(5 * time.Minute).Unix(),
	}
}

func employeeRecord() Registration {
	return Registration{
		FirstName:     "Jan",
		LastName:      "Kovac",
		BirthDayDay:   intp(1),
		BirthDayMonth: intp(2),
		BirthDayYear:  intp(1980),
		City:          "Kosice",
		Street:        "Mlynska",
		StreetNo:      "7",
		ZIP:           "04001",
		Phone:         "+421911111111",
		Email:         "jan@acme.test",
		PersonType:    PersonIDCard,
		RC:            "123456/7890",
	}
}
