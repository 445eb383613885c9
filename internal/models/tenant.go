package models

import "time"

// TenantType distinguishes the organizational scope owning the data.
type TenantType string

const (
	TenantIndividual TenantType = "individual"
	TenantCenter     TenantType = "center"
	TenantSchool     TenantType = "school"
)

// Tenant partitions every other entity. Cross-tenant access is forbidden;
// all repository queries are scoped by tenant id.
type Tenant struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Type      TenantType `db:"type" json:"type"`
	LogoURL   *string    `db:"logo_url" json:"logo_url,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
