package registration

import (
	"context"
	"fmt"
)

// Catalog writes and listings used by place administration.

func (r *PgRepository) ListPlaces(ctx context.Context) ([]Place, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, address, place_provider_id, is_drive_in, is_walk_in
		FROM places
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) SetPlace(ctx context.Context, p *Place) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO places (id, name, address, place_provider_id, is_drive_in, is_walk_in)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			place_provider_id = EXCLUDED.place_provider_id,
			is_drive_in = EXCLUDED.is_drive_in,
			is_walk_in = EXCLUDED.is_walk_in
	`, p.ID, p.Name, p.Address, p.PlaceProviderID, p.IsDriveIn, p.IsWalkIn)
	if err != nil {
		return fmt.Errorf("upsert place: %w", err)
	}
	return nil
}

func (r *PgRepository) DeletePlace(ctx context.Context, placeID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM places WHERE id = $1`, placeID)
	if err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlaceNotFound
	}
	return nil
}

func (r *PgRepository) SetPlaceProvider(ctx context.Context, pp *PlaceProvider) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO place_providers (id, company_id, company_name, main_email, public)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			company_name = EXCLUDED.company_name,
			main_email = EXCLUDED.main_email,
			public = EXCLUDED.public
	`, pp.ID, pp.CompanyID, pp.CompanyName, pp.MainEmail, pp.Public)
	if err != nil {
		return fmt.Errorf("upsert place provider: %w", err)
	}
	return nil
}

func (r *PgRepository) ListPublicPlaceProviders(ctx context.Context) ([]PlaceProvider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, company_name, main_email, public
		FROM place_providers
		WHERE public
		ORDER BY company_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PlaceProvider
	for rows.Next() {
		pp, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *pp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) SetProduct(ctx context.Context, p *Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (place_provider_id, place_id, code, name, employees_registration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (place_provider_id, place_id, code) DO UPDATE SET
			name = EXCLUDED.name,
			employees_registration = EXCLUDED.employees_registration
	`, p.PlaceProviderID, p.PlaceID, p.Code, p.Name, p.EmployeesRegistration)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
