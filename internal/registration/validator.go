package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SlotGrace is how long after its start a slot still accepts registrations.
const SlotGrace = 10 * time.Minute

const minBirthYear = 1900

// CaptchaVerifier checks a one time captcha response with the external service.
type CaptchaVerifier interface {
	IsCaptchaPassed(ctx context.Context, token string) (bool, error)
}

// Hasher derives the HR index key for an employee of a company.
type Hasher interface {
	Hash(companyID, employeeNumber string) string
}

// Options is the deployment configuration the engine reads.
type Options struct {
	CaptchaEnabled bool
	// Now defaults to time.Now.
	Now func() time.Time
	// PhonePrefix replaces the leading 0 of local phone numbers on import.
	PhonePrefix string
	// ImportWorkers bounds concurrent rows per import, defaults to 1.
	ImportWorkers int
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// Resolution is the context a successful validation resolved.
type Resolution struct {
	Place    *Place
	Product  *Product
	Provider *PlaceProvider
	// Employee is set when the product requires employee registration.
	Employee *Registration
}

type captchaGate struct {
	enabled  bool
	verifier CaptchaVerifier
}

// check verifies and clears the token. It is a no-op when captcha is off.
func (g captchaGate) check(ctx context.Context, token *string) error {
	if !g.enabled {
		return nil
	}
	if *token == "" {
		return validationFailed("token", ReasonCaptchaMissing)
	}
	passed, err := g.verifier.IsCaptchaPassed(ctx, *token)
	*token = ""
	if err != nil {
		return externalFailure("captcha", ReasonCaptchaInvalid, err)
	}
	if !passed {
		return externalFailure("captcha", ReasonCaptchaInvalid, nil)
	}
	return nil
}

type Validator struct {
	repo    Repository
	hasher  Hasher
	captcha captchaGate
	opts    Options
	log     *zap.Logger
}

func NewValidator(repo Repository, hasher Hasher, captcha CaptchaVerifier, opts Options, log *zap.Logger) *Validator {
	return &Validator{
		repo:    repo,
		hasher:  hasher,
		captcha: captchaGate{enabled: opts.CaptchaEnabled, verifier: captcha},
		opts:    opts,
		log:     log,
	}
}

// ValidateSelfRegistration runs the public admission checks in order and
// stops at the first failure. It fills in Address when it is empty.
func (val *Validator) ValidateSelfRegistration(ctx context.Context, v *Visitor) (*Resolution, error) {
	if v == nil {
		return nil, validationFailed("visitor", ReasonVisitorMissing)
	}
	if err := val.captcha.check(ctx, &v.Token); err != nil {
		return nil, err
	}

	now := val.opts.now()
	if err := CheckSlot(v.ChosenSlot, now); err != nil {
		return nil, err
	}
	if err := CheckAddress(v); err != nil {
		return nil, err
	}
	if err := CheckIdentityDocument(v.PersonType, v.RC, v.Passport); err != nil {
		return nil, err
	}
	if err := CheckBirthDate(v.BirthDayDay, v.BirthDayMonth, v.BirthDayYear, now); err != nil {
		return nil, err
	}

	place, err := val.repo.GetPlace(ctx, v.ChosenPlaceID)
	if err != nil {
		if errors.Is(err, ErrPlaceNotFound) {
			return nil, notFound("place", v.ChosenPlaceID, err)
		}
		return nil, storeFailure("load place", err)
	}

	product, ok := val.ResolveProduct(ctx, place, v.Product)
	if !ok {
		return nil, notFound("product", v.Product, nil)
	}

	res := &Resolution{Place: place, Product: product}
	if !product.EmployeesRegistration {
		return res, nil
	}

	if v.EmployeeID == "" {
		return nil, validationFailed("employeeId", ReasonEmployeeIDMissing)
	}
	provider, err := loadProvider(ctx, val.repo, place.PlaceProviderID)
	if err != nil {
		return nil, err
	}
	hash := val.hasher.Hash(provider.CompanyID, v.EmployeeID)
	reg, err := resolveEmployee(ctx, val.repo, hash)
	if err != nil {
		return nil, err
	}
	val.log.Info("employee registration resolved",
		zap.String("hash", hash),
		zap.String("registration_id", reg.ID.String()),
	)

	if reg.RC == "" {
		return nil, validationFailed("rc", ReasonEmployeeRecordNoID)
	}
	if v.RC == "" || !strings.HasSuffix(v.RC, lastN(reg.RC, 4)) {
		return nil, identityMismatch(ReasonIdentifierMismatch)
	}

	res.Provider = provider
	res.Employee = reg
	return res, nil
}

// ResolveProduct prefers the product the place offers itself and falls back
// to the provider catalogue. Both lookups are optional: a miss or a store
// failure on either one only moves resolution to the next source.
func (val *Validator) ResolveProduct(ctx context.Context, place *Place, code string) (*Product, bool) {
	product, err := val.repo.GetPlaceProduct(ctx, place.ID, code)
	if err == nil {
		return product, true
	}
	if !errors.Is(err, ErrProductNotFound) {
		val.log.Warn("place product lookup failed", zap.String("place_id", place.ID), zap.Error(err))
	}

	product, err = val.repo.GetProduct(ctx, place.PlaceProviderID, code)
	if err == nil {
		return product, true
	}
	if !errors.Is(err, ErrProductNotFound) {
		val.log.Warn("provider product lookup failed", zap.String("place_provider_id", place.PlaceProviderID), zap.Error(err))
	}
	return nil, false
}

// CheckSlot rejects slots that started more than SlotGrace ago.
func CheckSlot(chosenSlot int64, now time.Time) error {
	start := time.Unix(chosenSlot, 0).UTC()
	if start.Add(SlotGrace).Before(now) {
		return validationFailed("chosenSlot", ReasonSlotExpired)
	}
	return nil
}

// CheckAddress synthesizes Address when missing; the parts stay mandatory.
func CheckAddress(v *Visitor) error {
	v.synthesizeAddress()

	required := []struct {
		field  string
		value  string
		reason Reason
	}{
		{"street", v.Street, ReasonStreetMissing},
		{"streetNo", v.StreetNo, ReasonStreetNoMissing},
		{"zip", v.ZIP, ReasonZIPMissing},
		{"city", v.City, ReasonCityMissing},
		{"firstName", v.FirstName, ReasonFirstNameMissing},
		{"lastName", v.LastName, ReasonLastNameMissing},
	}
	for _, r := range required {
		if r.value == "" {
			return validationFailed(r.field, r.reason)
		}
	}
	return nil
}

// CheckIdentityDocument requires a passport for foreigners and an RC for everyone else.
func CheckIdentityDocument(personType PersonType, rc, passport string) error {
	if personType == PersonForeign {
		if passport == "" {
			return validationFailed("passport", ReasonPassportMissing)
		}
		return nil
	}
	if rc == "" {
		return validationFailed("rc", ReasonRCMissing)
	}
	return nil
}

// CheckBirthDate is a range sanity check. Day and month are checked
// independently, so 31 February passes.
func CheckBirthDate(day, month, year *int, now time.Time) error {
	if year == nil || *year < minBirthYear || *year > now.Year() {
		return validationFailed("birthDayYear", ReasonBirthYearInvalid)
	}
	if day == nil || *day < 1 || *day > 31 {
		return validationFailed("birthDayDay", ReasonBirthDayInvalid)
	}
	if month == nil || *month < 1 || *month > 12 {
		return validationFailed("birthDayMonth", ReasonBirthMonthInvalid)
	}
	return nil
}

func loadProvider(ctx context.Context, repo Repository, providerID string) (*PlaceProvider, error) {
	if providerID == "" {
		return nil, notFound("place_provider", providerID, nil)
	}
	pp, err := repo.GetPlaceProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrPlaceProviderNotFound) {
			return nil, notFound("place_provider", providerID, err)
		}
		return nil, storeFailure("load place provider", err)
	}
	return pp, nil
}

// resolveEmployee follows the hash index to the HR record. The not found
// error carries the hash, never the employee number.
func resolveEmployee(ctx context.Context, repo Repository, hash string) (*Registration, error) {
	regID, err := repo.GetRegistrationIDFromHashedID(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return nil, notFound("registration", hash, err)
		}
		return nil, storeFailure("resolve employee hash", err)
	}
	reg, err := repo.GetRegistration(ctx, regID)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return nil, notFound("registration", hash, err)
		}
		return nil, storeFailure("load registration", err)
	}
	return reg, nil
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
