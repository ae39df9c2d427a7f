package domain

import "time"

// Idempotency records the outcome of a create request keyed by
// (scope, key). Scope is the route template the key was sent to, so the same
// key may be reused across resources. RequestHash fingerprints the validated
// payload; a retry with a different payload is a conflict.
type Idempotency struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Scope       string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key         string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_scope_key,priority:2"`
	RequestHash string    `gorm:"type:varchar(64);not null"`
	ResourceID  string    `gorm:"type:varchar(36);not null"`
	Status      int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
