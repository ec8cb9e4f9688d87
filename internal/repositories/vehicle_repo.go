package repositories

import (
	"database/sql"
	"errors"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

// VehicleCategoryRepo reads the tenant's fleet categories.
type VehicleCategoryRepo struct {
	DB *sql.DB
}

func (r VehicleCategoryRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// GetByID fetches one category scoped to the tenant.
func (r VehicleCategoryRepo) GetByID(id, orgID int64) (models.VehicleCategory, error) {
	db := r.db()
	if db == nil {
		return models.VehicleCategory{}, domain.InternalError{Msg: "db not available"}
	}
	var vc models.VehicleCategory
	err := db.QueryRow(`
		SELECT id, organization_id, COALESCE(name, '')
		FROM vehicle_categories
		WHERE id = ? AND organization_id = ?
		LIMIT 1
	`, id, orgID).Scan(&vc.ID, &vc.OrganizationID, &vc.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VehicleCategory{}, domain.NotFoundError{Resource: "vehicle category"}
		}
		return models.VehicleCategory{}, err
	}
	return vc, nil
}

// List returns the tenant's categories ordered by name.
func (r VehicleCategoryRepo) List(orgID int64) ([]models.VehicleCategory, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "db not available"}
	}
	rows, err := db.Query(`
		SELECT id, organization_id, COALESCE(name, '')
		FROM vehicle_categories
		WHERE organization_id = ?
		ORDER BY name ASC, id ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.VehicleCategory{}
	for rows.Next() {
		var vc models.VehicleCategory
		if err := rows.Scan(&vc.ID, &vc.OrganizationID, &vc.Name); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}
