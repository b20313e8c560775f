package registration

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation       = "23505"
	visitorCodeConstraint = "visitors_code_key"
	bookingConstraint     = "visitors_booking_uniq"
	codeAttempts          = 5
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const visitorColumns = `id, code, first_name, last_name, birth_day, birth_month, birth_year,
	person_type, rc, passport, street, street_no, zip, city, address, phone, email, employee_id,
	chosen_place_id, product, chosen_slot, registration_time, self_registration,
	updated_by_manager, enqueued_at`

const registrationColumns = `id, first_name, last_name, birth_day, birth_month, birth_year,
	city, street, street_no, zip, phone, email, person_type, rc, passport,
	company_identifiers, created_at`

func scanPlace(row pgx.Row) (*Place, error) {
	var p Place
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.PlaceProviderID, &p.IsDriveIn, &p.IsWalkIn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlaceNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProvider(row pgx.Row) (*PlaceProvider, error) {
	var pp PlaceProvider
	err := row.Scan(&pp.ID, &pp.CompanyID, &pp.CompanyName, &pp.MainEmail, &pp.Public)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlaceProviderNotFound
		}
		return nil, err
	}
	return &pp, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.Code, &p.Name, &p.PlaceProviderID, &p.PlaceID, &p.EmployeesRegistration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanRegistration(row pgx.Row) (*Registration, error) {
	var r Registration
	var personType string

	err := row.Scan(
		&r.ID,
		&r.FirstName,
		&r.LastName,
		&r.BirthDayDay,
		&r.BirthDayMonth,
		&r.BirthDayYear,
		&r.City,
		&r.Street,
		&r.StreetNo,
		&r.ZIP,
		&r.Phone,
		&r.Email,
		&personType,
		&r.RC,
		&r.Passport,
		&r.CompanyIdentifiers,
		&r.Created,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	r.PersonType = PersonType(personType)
	return &r, nil
}

func scanVisitor(row pgx.Row) (*Visitor, error) {
	var v Visitor
	var personType string

	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.FirstName,
		&v.LastName,
		&v.BirthDayDay,
		&v.BirthDayMonth,
		&v.BirthDayYear,
		&personType,
		&v.RC,
		&v.Passport,
		&v.Street,
		&v.StreetNo,
		&v.ZIP,
		&v.City,
		&v.Address,
		&v.Phone,
		&v.Email,
		&v.EmployeeID,
		&v.ChosenPlaceID,
		&v.Product,
		&v.ChosenSlot,
		&v.RegistrationTime,
		&v.SelfRegistration,
		&v.RegistrationUpdatedByManager,
		&v.EnqueuedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitorNotFound
		}
		return nil, err
	}

	v.PersonType = PersonType(personType)
	return &v, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

func newAdmissionCode() int64 {
	return 100_000_000 + rand.Int64N(900_000_000)
}

// Interface methods

func (r *PgRepository) GetPlace(ctx context.Context, placeID string) (*Place, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, address, place_provider_id, is_drive_in, is_walk_in
		FROM places
		WHERE id = $1
	`, placeID)
	return scanPlace(row)
}

func (r *PgRepository) GetPlaceProduct(ctx context.Context, placeID, productCode string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT code, name, place_provider_id, place_id, employees_registration
		FROM products
		WHERE place_id = $1 AND code = $2
	`, placeID, productCode)
	return scanProduct(row)
}

func (r *PgRepository) GetPlaceProvider(ctx context.Context, providerID string) (*PlaceProvider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, company_id, company_name, main_email, public
		FROM place_providers
		WHERE id = $1
	`, providerID)
	return scanProvider(row)
}

func (r *PgRepository) GetProduct(ctx context.Context, providerID, productCode string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT code, name, place_provider_id, place_id, employees_registration
		FROM products
		WHERE place_provider_id = $1 AND place_id = '' AND code = $2
	`, providerID, productCode)
	return scanProduct(row)
}

func (r *PgRepository) GetRegistrationIDFromHashedID(ctx context.Context, hash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT registration_id
		FROM registration_hashes
		WHERE hash = $1
	`, hash).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrRegistrationNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PgRepository) GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
	`, id)
	return scanRegistration(row)
}

// SetRegistration writes the record and its hash index entries in one
// transaction so a lookup right after an import sees both.
func (r *PgRepository) SetRegistration(ctx context.Context, reg *Registration, hashes []string) (*Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	identifiers := reg.CompanyIdentifiers
	if identifiers == nil {
		identifiers = []CompanyIdentifier{}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO registrations (`+registrationColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			birth_day = EXCLUDED.birth_day,
			birth_month = EXCLUDED.birth_month,
			birth_year = EXCLUDED.birth_year,
			city = EXCLUDED.city,
			street = EXCLUDED.street,
			street_no = EXCLUDED.street_no,
			zip = EXCLUDED.zip,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			person_type = EXCLUDED.person_type,
			rc = EXCLUDED.rc,
			passport = EXCLUDED.passport,
			company_identifiers = EXCLUDED.company_identifiers,
			updated_at = now()
		RETURNING `+registrationColumns,
		reg.ID, reg.FirstName, reg.LastName, reg.BirthDayDay, reg.BirthDayMonth, reg.BirthDayYear,
		reg.City, reg.Street, reg.StreetNo, reg.ZIP, reg.Phone, reg.Email, string(reg.PersonType),
		reg.RC, reg.Passport, identifiers, reg.Created,
	)
	saved, err := scanRegistration(row)
	if err != nil {
		return nil, fmt.Errorf("upsert registration: %w", err)
	}

	for _, hash := range hashes {
		_, err := tx.Exec(ctx, `
			INSERT INTO registration_hashes (hash, registration_id)
			VALUES ($1, $2)
			ON CONFLICT (hash) DO UPDATE SET registration_id = EXCLUDED.registration_id
		`, hash, saved.ID)
		if err != nil {
			return nil, fmt.Errorf("upsert registration hash: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return saved, nil
}

func (r *PgRepository) RegisterVisitor(ctx context.Context, v *Visitor, managerEmail string, commit bool) (*Visitor, error) {
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

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := out.Code
		if code == 0 {
			code = newAdmissionCode()
		}

		row := r.pool.QueryRow(ctx, `
			INSERT INTO visitors (`+visitorColumns+`, personal_number, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
				$19, $20, $21, $22, $23, $24, $25, $26, now())
			ON CONFLICT (id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				birth_day = EXCLUDED.birth_day,
				birth_month = EXCLUDED.birth_month,
				birth_year = EXCLUDED.birth_year,
				person_type = EXCLUDED.person_type,
				rc = EXCLUDED.rc,
				passport = EXCLUDED.passport,
				street = EXCLUDED.street,
				street_no = EXCLUDED.street_no,
				zip = EXCLUDED.zip,
				city = EXCLUDED.city,
				address = EXCLUDED.address,
				phone = EXCLUDED.phone,
				email = EXCLUDED.email,
				employee_id = EXCLUDED.employee_id,
				chosen_place_id = EXCLUDED.chosen_place_id,
				product = EXCLUDED.product,
				chosen_slot = EXCLUDED.chosen_slot,
				registration_time = EXCLUDED.registration_time,
				self_registration = EXCLUDED.self_registration,
				updated_by_manager = EXCLUDED.updated_by_manager,
				personal_number = EXCLUDED.personal_number,
				updated_at = now()
			RETURNING `+visitorColumns,
			out.ID, code, out.FirstName, out.LastName, out.BirthDayDay, out.BirthDayMonth, out.BirthDayYear,
			string(out.PersonType), out.RC, out.Passport, out.Street, out.StreetNo, out.ZIP, out.City,
			out.Address, out.Phone, out.Email, out.EmployeeID, out.ChosenPlaceID, out.Product,
			out.ChosenSlot, out.RegistrationTime, out.SelfRegistration, out.RegistrationUpdatedByManager,
			out.EnqueuedAt, out.PersonalNumber(),
		)
		saved, err := scanVisitor(row)
		switch {
		case err == nil:
			return saved, nil
		case isUniqueViolation(err, visitorCodeConstraint) && out.Code == 0:
			continue
		case isUniqueViolation(err, bookingConstraint):
			return nil, ErrDuplicateBooking
		default:
			return nil, fmt.Errorf("insert visitor: %w", err)
		}
	}
	return nil, fmt.Errorf("insert visitor: no free admission code after %d attempts", codeAttempts)
}

func (r *PgRepository) GetVisitor(ctx context.Context, id uuid.UUID) (*Visitor, error) {
	return scanVisitor(r.pool.QueryRow(ctx, `
		SELECT `+visitorColumns+`
		FROM visitors
		WHERE id = $1
	`, id))
}

func (r *PgRepository) GetVisitorByPersonalNumber(ctx context.Context, personalNumber string, exact bool) (*Visitor, error) {
	if personalNumber == "" {
		return nil, ErrVisitorNotFound
	}
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE personal_number = $1
		ORDER BY registration_time DESC NULLS LAST
		LIMIT 1
	`
	if !exact {
		query = `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE personal_number LIKE '%' || $1
		ORDER BY registration_time DESC NULLS LAST
		LIMIT 1
	`
	}
	return scanVisitor(r.pool.QueryRow(ctx, query, personalNumber))
}

// EnqueueByCode stamps enqueued_at once; repeated calls keep the first time.
func (r *PgRepository) EnqueueByCode(ctx context.Context, code int64, identifierSuffix string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE visitors
		SET enqueued_at = COALESCE(enqueued_at, $3),
		    updated_at = now()
		WHERE code = $1
		  AND personal_number <> ''
		  AND right(personal_number, 4) = $2
	`, code, identifierSuffix, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("enqueue visitor: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
