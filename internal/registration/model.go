package registration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PersonType string

const (
	PersonIDCard  PersonType = "idcard"
	PersonForeign PersonType = "foreign"
)

// Visitor is one person's booking of one slot at one place for one product.
type Visitor struct {
	ID   uuid.UUID `json:"id"`
	Code int64     `json:"code"` // 9 digit admission code printed in the barcode

	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	BirthDayDay   *int       `json:"birthDayDay,omitempty"`
	BirthDayMonth *int       `json:"birthDayMonth,omitempty"`
	BirthDayYear  *int       `json:"birthDayYear,omitempty"`
	PersonType    PersonType `json:"personType"`
	RC            string     `json:"rc,omitempty"`
	Passport      string     `json:"passport,omitempty"`
	Street        string     `json:"street"`
	StreetNo      string     `json:"streetNo"`
	ZIP           string     `json:"zip"`
	City          string     `json:"city"`
	Address       string     `json:"address"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	EmployeeID    string     `json:"employeeId,omitempty"`

	ChosenPlaceID string `json:"chosenPlaceId"`
	Product       string `json:"product"`
	// ChosenSlot is the slot start in Unix seconds, read at zero offset.
	ChosenSlot       int64      `json:"chosenSlot"`
	RegistrationTime *time.Time `json:"registrationTime,omitempty"`
	SelfRegistration bool       `json:"selfRegistration"`
	// RegistrationUpdatedByManager holds the acting manager's e-mail.
	RegistrationUpdatedByManager string `json:"registrationUpdatedByManager,omitempty"`

	EnqueuedAt *time.Time `json:"enqueued,omitempty"`

	// Token is the one time captcha response. It is cleared once verified and never stored.
	Token string `json:"token,omitempty"`
}

// SlotTime returns the chosen slot start in UTC.
func (v *Visitor) SlotTime() time.Time {
	return time.Unix(v.ChosenSlot, 0).UTC()
}

// PersonalNumber is the identifier the visitor proves at check-in: the
// passport for foreigners, the RC otherwise.
func (v *Visitor) PersonalNumber() string {
	if v.PersonType == PersonForeign {
		return v.Passport
	}
	return v.RC
}

func (v *Visitor) synthesizeAddress() {
	if v.Address == "" {
		v.Address = fmt.Sprintf("%s %s, %s %s", v.Street, v.StreetNo, v.ZIP, v.City)
	}
}

// CompanyIdentifier links an HR record to one employer.
type CompanyIdentifier struct {
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
	EmployeeID  string `json:"employeeId"`
}

// Registration is an HR record imported by an employer.
type Registration struct {
	ID                 uuid.UUID           `json:"id"`
	FirstName          string              `json:"firstName"`
	LastName           string              `json:"lastName"`
	BirthDayDay        *int                `json:"birthDayDay,omitempty"`
	BirthDayMonth      *int                `json:"birthDayMonth,omitempty"`
	BirthDayYear       *int                `json:"birthDayYear,omitempty"`
	City               string              `json:"city"`
	Street             string              `json:"street"`
	StreetNo           string              `json:"streetNo"`
	ZIP                string              `json:"zip"`
	Phone              string              `json:"phone"`
	Email              string              `json:"email"`
	PersonType         PersonType          `json:"personType"`
	RC                 string              `json:"rc,omitempty"`
	Passport           string              `json:"passport,omitempty"`
	CompanyIdentifiers []CompanyIdentifier `json:"companyIdentifiers"`
	Created            time.Time           `json:"created"`
}

type Place struct {
	ID              string `json:"id"`
	Name            string `json:"name" validate:"required"`
	Address         string `json:"address"`
	PlaceProviderID string `json:"placeProviderId" validate:"required"`
	IsDriveIn       bool   `json:"isDriveIn"`
	IsWalkIn        bool   `json:"isWalkIn"`
}

type PlaceProvider struct {
	ID          string `json:"id"`
	CompanyID   string `json:"companyId" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	MainEmail   string `json:"mainEmail" validate:"required,email"`
	Public      bool   `json:"public"`
}

// Product is a bookable service. PlaceID is empty for provider wide products.
type Product struct {
	Code                  string `json:"code" validate:"required"`
	Name                  string `json:"name" validate:"required"`
	PlaceProviderID       string `json:"placeProviderId" validate:"required"`
	PlaceID               string `json:"placeId,omitempty"`
	EmployeesRegistration bool   `json:"employeesRegistration"`
}
