package registration

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers can map and localize them.
type Kind string

const (
	KindValidation       Kind = "validation_failed"
	KindNotFound         Kind = "not_found"
	KindAuthorization    Kind = "authorization_denied"
	KindIdentityMismatch Kind = "identity_mismatch"
	KindExternalService  Kind = "external_service_failure"
	KindStore            Kind = "store_failure"
	KindConflict         Kind = "conflict"
)

// Reason is a stable code for the specific check that failed.
type Reason string

const (
	ReasonVisitorMissing         Reason = "visitor_missing"
	ReasonCaptchaMissing         Reason = "captcha_missing"
	ReasonCaptchaInvalid         Reason = "captcha_invalid"
	ReasonSlotExpired            Reason = "slot_expired"
	ReasonStreetMissing          Reason = "street_missing"
	ReasonStreetNoMissing        Reason = "street_no_missing"
	ReasonZIPMissing             Reason = "zip_missing"
	ReasonCityMissing            Reason = "city_missing"
	ReasonFirstNameMissing       Reason = "first_name_missing"
	ReasonLastNameMissing        Reason = "last_name_missing"
	ReasonPassportMissing        Reason = "passport_missing"
	ReasonRCMissing              Reason = "rc_missing"
	ReasonBirthYearInvalid       Reason = "birth_year_invalid"
	ReasonBirthDayInvalid        Reason = "birth_day_invalid"
	ReasonBirthMonthInvalid      Reason = "birth_month_invalid"
	ReasonEmployeeIDMissing      Reason = "employee_id_missing"
	ReasonEmployeeRecordNoID     Reason = "employee_record_identifier_missing"
	ReasonSuffixMissing          Reason = "identifier_suffix_missing"
	ReasonSuffixTooShort         Reason = "identifier_suffix_too_short"
	ReasonIdentifierMismatch     Reason = "identifier_mismatch"
	ReasonCodeMissing            Reason = "code_missing"
	ReasonCodeInvalid            Reason = "code_invalid"
	ReasonDuplicateBooking       Reason = "duplicate_booking"
	ReasonBookingInProgress      Reason = "booking_in_progress"
	ReasonEmployeeImportConflict Reason = "employee_import_in_progress"
)

// Error is the single structured failure type returned by every workflow.
type Error struct {
	Kind       Kind
	Reason     Reason
	Field      string
	Entity     string
	Key        string
	Capability string
	Service    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
	case KindNotFound:
		return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
	case KindAuthorization:
		return fmt.Sprintf("authorization denied: %s required", e.Capability)
	case KindIdentityMismatch:
		return "identity mismatch: " + string(e.Reason)
	case KindExternalService:
		if e.Err != nil {
			return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
		}
		return fmt.Sprintf("%s rejected the request", e.Service)
	case KindConflict:
		return "conflict: " + string(e.Reason)
	default:
		return fmt.Sprintf("store failure: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationFailed(field string, reason Reason) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason}
}

func notFound(entity, key string, cause error) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Key: key, Err: cause}
}

func authorizationDenied(capability string) *Error {
	return &Error{Kind: KindAuthorization, Capability: capability}
}

func identityMismatch(reason Reason) *Error {
	return &Error{Kind: KindIdentityMismatch, Reason: reason}
}

func externalFailure(service string, reason Reason, cause error) *Error {
	return &Error{Kind: KindExternalService, Service: service, Reason: reason, Err: cause}
}

func storeFailure(op string, cause error) *Error {
	return &Error{Kind: KindStore, Err: fmt.Errorf("%s: %w", op, cause)}
}

func conflict(reason Reason, cause error) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Err: cause}
}

// KindOf returns the kind of an engine error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the reason code of an engine error, or "".
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
