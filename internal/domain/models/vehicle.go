package models

// VehicleCategory is the tenant-scoped fleet category referenced by quotes
// and manual missions.
type VehicleCategory struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
}
