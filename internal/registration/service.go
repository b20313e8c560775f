package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/auth"
	redisclient "github.com/hackgods/testing-registration/internal/redis"
)

const (
	WorkflowSelf            = "self"
	WorkflowCompany         = "company"
	WorkflowEmployeeManager = "employee_by_manager"
	WorkflowManager         = "manager"
)

// personalNumberNamespace scopes booking lock keys apart from HR index keys.
const personalNumberNamespace = "visitor-personal-number"

// Recorder receives workflow outcomes for metrics.
type Recorder interface {
	RegistrationCommitted(workflow string)
	RegistrationRejected(workflow string, kind Kind, reason Reason)
	EmployeesImported(count int)
	VisitorEnqueued(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) RegistrationCommitted(string)              {}
func (nopRecorder) RegistrationRejected(string, Kind, Reason) {}
func (nopRecorder) EmployeesImported(int)                     {}
func (nopRecorder) VisitorEnqueued(bool)                      {}

// CompanyRegistrationRequest is what an employee submits to book with the
// record their employer imported.
type CompanyRegistrationRequest struct {
	ChosenSlot     int64  `json:"chosenSlot"`
	ChosenPlaceID  string `json:"chosenPlaceId"`
	EmployeeNumber string `json:"employeeNumber"`
	// Pass is the tail of the RC (or passport) proving the employee's identity.
	Pass    string `json:"pass"`
	Product string `json:"product"`
	Token   string `json:"token"`
}

// EmployeeByManagerRequest books an employee on behalf of a manager. Place
// and slot are optional, testers may register people on site.
type EmployeeByManagerRequest struct {
	EmployeeNumber string `json:"employeeNumber"`
	Product        string `json:"product"`
	ChosenPlaceID  string `json:"chosenPlaceId,omitempty"`
	ChosenSlot     int64  `json:"chosenSlot,omitempty"`
}

type Service struct {
	repo      Repository
	validator *Validator
	hasher    Hasher
	captcha   captchaGate
	locker    redisclient.Locker
	recorder  Recorder
	opts      Options
	log       *zap.Logger
}

func NewService(repo Repository, hasher Hasher, captcha CaptchaVerifier, locker redisclient.Locker, opts Options, log *zap.Logger, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		repo:      repo,
		validator: NewValidator(repo, hasher, captcha, opts, log),
		hasher:    hasher,
		captcha:   captchaGate{enabled: opts.CaptchaEnabled, verifier: captcha},
		locker:    locker,
		recorder:  recorder,
		opts:      opts,
		log:       log,
	}
}

// Register is the public self-registration with a full visitor payload.
func (s *Service) Register(ctx context.Context, v *Visitor) (*Visitor, error) {
	if _, err := s.validator.ValidateSelfRegistration(ctx, v); err != nil {
		return nil, s.reject(WorkflowSelf, err)
	}

	now := s.opts.now()
	v.ID = uuid.Nil
	v.Code = 0
	v.EnqueuedAt = nil
	v.RegistrationTime = &now
	v.SelfRegistration = true
	v.RegistrationUpdatedByManager = ""

	return s.commit(ctx, WorkflowSelf, v, "")
}

// RegisterWithCompanyRegistration books an employee using only the employee
// number and the tail of their identifier. Personal data comes from the HR
// record, never from the request.
func (s *Service) RegisterWithCompanyRegistration(ctx context.Context, req CompanyRegistrationRequest) (*Visitor, error) {
	if req.Pass == "" {
		return nil, s.reject(WorkflowCompany, validationFailed("pass", ReasonSuffixMissing))
	}
	if len(req.Pass) < 4 {
		return nil, s.reject(WorkflowCompany, validationFailed("pass", ReasonSuffixTooShort))
	}
	if err := s.captcha.check(ctx, &req.Token); err != nil {
		return nil, s.reject(WorkflowCompany, err)
	}

	place, err := s.loadPlace(ctx, req.ChosenPlaceID)
	if err != nil {
		return nil, s.reject(WorkflowCompany, err)
	}
	provider, err := loadProvider(ctx, s.repo, place.PlaceProviderID)
	if err != nil {
		return nil, s.reject(WorkflowCompany, err)
	}

	reg, err := resolveEmployee(ctx, s.repo, s.hasher.Hash(provider.CompanyID, req.EmployeeNumber))
	if err != nil {
		return nil, s.reject(WorkflowCompany, err)
	}
	if err := confirmIdentifierSuffix(reg, req.Pass); err != nil {
		return nil, s.reject(WorkflowCompany, err)
	}

	v := visitorFromRegistration(reg)
	v.ChosenPlaceID = req.ChosenPlaceID
	v.ChosenSlot = req.ChosenSlot
	v.Product = req.Product
	v.EmployeeID = req.EmployeeNumber

	now := s.opts.now()
	if err := CheckSlot(v.ChosenSlot, now); err != nil {
		return nil, s.reject(WorkflowCompany, err)
	}
	v.synthesizeAddress()
	v.RegistrationTime = &now
	v.SelfRegistration = true

	return s.commit(ctx, WorkflowCompany, v, "")
}

// RegisterEmployeeByManager books an imported employee on a manager's
// authority. The manager's capability replaces the identifier proof.
func (s *Service) RegisterEmployeeByManager(ctx context.Context, caller auth.Caller, req EmployeeByManagerRequest) (*Visitor, error) {
	if err := authorizeManager(caller); err != nil {
		return nil, s.reject(WorkflowEmployeeManager, err)
	}
	if err := s.authorizePlace(ctx, caller, req.ChosenPlaceID); err != nil {
		return nil, s.reject(WorkflowEmployeeManager, err)
	}
	provider, err := loadProvider(ctx, s.repo, caller.PlaceProviderID)
	if err != nil {
		return nil, s.reject(WorkflowEmployeeManager, err)
	}
	reg, err := resolveEmployee(ctx, s.repo, s.hasher.Hash(provider.CompanyID, req.EmployeeNumber))
	if err != nil {
		return nil, s.reject(WorkflowEmployeeManager, err)
	}

	v := visitorFromRegistration(reg)
	v.Product = req.Product
	v.EmployeeID = req.EmployeeNumber
	v.ChosenPlaceID = req.ChosenPlaceID
	v.ChosenSlot = req.ChosenSlot
	now := s.opts.now()
	v.RegistrationTime = &now
	v.SelfRegistration = false
	v.RegistrationUpdatedByManager = caller.Email

	s.log.Info("employee registered by manager",
		zap.String("manager", caller.Email),
		zap.String("registration_id", reg.ID.String()),
	)
	return s.commit(ctx, WorkflowEmployeeManager, v, caller.Email)
}

// RegisterByManager accepts a manager supplied visitor with no public
// admission checks. A visitor with an id must already exist and, like the
// chosen place, belong to a provider the caller manages.
func (s *Service) RegisterByManager(ctx context.Context, caller auth.Caller, v *Visitor) (*Visitor, error) {
	if v == nil {
		return nil, s.reject(WorkflowManager, validationFailed("visitor", ReasonVisitorMissing))
	}
	if err := authorizeManager(caller); err != nil {
		return nil, s.reject(WorkflowManager, err)
	}
	if v.ID != uuid.Nil {
		existing, err := s.repo.GetVisitor(ctx, v.ID)
		if err != nil {
			if errors.Is(err, ErrVisitorNotFound) {
				return nil, s.reject(WorkflowManager, notFound("visitor", v.ID.String(), err))
			}
			return nil, s.reject(WorkflowManager, storeFailure("load visitor", err))
		}
		if err := s.authorizePlace(ctx, caller, existing.ChosenPlaceID); err != nil {
			return nil, s.reject(WorkflowManager, err)
		}
	}
	if err := s.authorizePlace(ctx, caller, v.ChosenPlaceID); err != nil {
		return nil, s.reject(WorkflowManager, err)
	}

	if v.RegistrationTime == nil {
		now := s.opts.now()
		v.RegistrationTime = &now
		v.SelfRegistration = false
	}
	v.RegistrationUpdatedByManager = caller.Email
	v.Token = ""

	return s.commit(ctx, WorkflowManager, v, caller.Email)
}

// LoadVisitorByEmployeeNumber returns the booking of an imported employee.
func (s *Service) LoadVisitorByEmployeeNumber(ctx context.Context, caller auth.Caller, employeeNumber string) (*Visitor, error) {
	if err := authorizeManager(caller); err != nil {
		return nil, err
	}
	provider, err := loadProvider(ctx, s.repo, caller.PlaceProviderID)
	if err != nil {
		return nil, err
	}
	hash := s.hasher.Hash(provider.CompanyID, employeeNumber)
	reg, err := resolveEmployee(ctx, s.repo, hash)
	if err != nil {
		return nil, err
	}

	personal := reg.RC
	if reg.PersonType == PersonForeign {
		personal = reg.Passport
	}
	v, err := s.repo.GetVisitorByPersonalNumber(ctx, personal, true)
	if err != nil {
		if errors.Is(err, ErrVisitorNotFound) {
			return nil, notFound("visitor", hash, err)
		}
		return nil, storeFailure("load visitor", err)
	}
	return v, nil
}

// commit writes the booking under a lock on (place, slot, person); the store
// also rejects the same triple with ErrDuplicateBooking.
func (s *Service) commit(ctx context.Context, workflow string, v *Visitor, managerEmail string) (*Visitor, error) {
	key := fmt.Sprintf("booking:%s:%d:%s",
		v.ChosenPlaceID, v.ChosenSlot, s.hasher.Hash(personalNumberNamespace, v.PersonalNumber()))

	var saved *Visitor
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		out, err := s.repo.RegisterVisitor(lockCtx, v, managerEmail, true)
		if err != nil {
			return err
		}
		saved = out
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateBooking):
			return nil, s.reject(workflow, conflict(ReasonDuplicateBooking, err))
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return nil, s.reject(workflow, conflict(ReasonBookingInProgress, err))
		default:
			return nil, s.reject(workflow, storeFailure("register visitor", err))
		}
	}

	s.recorder.RegistrationCommitted(workflow)
	s.log.Info("visitor registered",
		zap.String("workflow", workflow),
		zap.String("visitor_id", saved.ID.String()),
		zap.String("place_id", saved.ChosenPlaceID),
	)
	return saved, nil
}

func (s *Service) loadPlace(ctx context.Context, placeID string) (*Place, error) {
	place, err := s.repo.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, ErrPlaceNotFound) {
			return nil, notFound("place", placeID, err)
		}
		return nil, storeFailure("load place", err)
	}
	return place, nil
}

func (s *Service) reject(workflow string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		s.recorder.RegistrationRejected(workflow, e.Kind, e.Reason)
	}
	return err
}

func authorizeManager(caller auth.Caller) error {
	return authorizeManagerFor(caller, caller.PlaceProviderID)
}

func authorizeManagerFor(caller auth.Caller, providerID string) error {
	if auth.HasRegistrationManagerRole(caller, providerID) ||
		auth.HasMedicTesterRole(caller, providerID) {
		return nil
	}
	return authorizationDenied(string(auth.RegistrationManager) + "|" + string(auth.MedicTester))
}

// authorizePlace requires a manager capability for the provider that owns
// placeID. Bookings taken on site carry no place and pass.
func (s *Service) authorizePlace(ctx context.Context, caller auth.Caller, placeID string) error {
	if placeID == "" {
		return nil
	}
	place, err := s.loadPlace(ctx, placeID)
	if err != nil {
		return err
	}
	return authorizeManagerFor(caller, place.PlaceProviderID)
}

// confirmIdentifierSuffix checks the employee supplied tail against the HR
// record: the passport for foreigners, the RC for everyone else.
func confirmIdentifierSuffix(reg *Registration, pass string) error {
	identifier, field := reg.RC, "rc"
	if reg.PersonType == PersonForeign {
		identifier, field = reg.Passport, "passport"
	}
	if identifier == "" {
		return validationFailed(field, ReasonEmployeeRecordNoID)
	}
	if !strings.HasSuffix(identifier, pass) {
		return identityMismatch(ReasonIdentifierMismatch)
	}
	return nil
}

func visitorFromRegistration(reg *Registration) *Visitor {
	personType := reg.PersonType
	if personType == "" {
		personType = PersonIDCard
	}
	return &Visitor{
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		BirthDayDay:   reg.BirthDayDay,
		BirthDayMonth: reg.BirthDayMonth,
		BirthDayYear:  reg.BirthDayYear,
		City:          reg.City,
		Street:        reg.Street,
		StreetNo:      reg.StreetNo,
		ZIP:           reg.ZIP,
		Email:         reg.Email,
		Phone:         reg.Phone,
		PersonType:    personType,
		Passport:      reg.Passport,
		RC:            reg.RC,
	}
}
