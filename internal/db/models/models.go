package models

import "time"

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing API call
	DefaultLimit = 50
)

// ListOptions represents pagination and filtering options for job list operations
type ListOptions struct {
	Limit  int        `json:"limit"`            // Number of items to return
	Offset int        `json:"offset"`           // Number of items to skip
	Phases []Phase    `json:"phases,omitempty"` // Filter by execution phase
	After  *time.Time `json:"after,omitempty"`  // Only jobs created after this time
}

// SchemaInfo records the on-disk schema version. Every process checks
// it at startup and refuses to run against a version it does not
// understand.
type SchemaInfo struct {
	ID      uint `gorm:"primaryKey"`
	Version int  `gorm:"not null"`
}

// TableName overrides the table name for SchemaInfo
func (SchemaInfo) TableName() string {
	return "schema_info"
}
