package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Field names for the job model
const (
	// JobPhaseField is the database field name for the job phase
	JobPhaseField = "phase"
	// JobCreatedAtField is the database field name for the job creation timestamp
	JobCreatedAtField = "created_at"
	// JobDestructionTimeField is the database field name for the destruction deadline
	JobDestructionTimeField = "destruction_time"
)

// ErrorCode classifies a job error for the caller
type ErrorCode string

// Job error codes
const (
	// ErrorCodeUsageError indicates invalid input from the requester
	ErrorCodeUsageError ErrorCode = "UsageError"
	// ErrorCodeError indicates an unexpected internal failure
	ErrorCodeError ErrorCode = "Error"
	// ErrorCodeServiceUnavailable indicates a collaborator service was unreachable
	ErrorCodeServiceUnavailable ErrorCode = "ServiceUnavailable"
)

// JobError records why a job entered the ERROR phase. Detail carries a
// stack trace for internal faults and is never shown in the user-facing
// message.
type JobError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

// Value implements the driver.Valuer interface
func (e *JobError) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Scan implements the sql.Scanner interface
func (e *JobError) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, e)
}

// Result describes a single stored artifact produced by a job
type Result struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Results is the ordered list of result descriptors for a job
type Results []Result

// Value implements the driver.Valuer interface
func (r Results) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface
func (r *Results) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, r)
}

// Job represents a single cutout request tracked through its phase
// lifecycle. The phase mutates only through guarded updates; parameters
// and owner are immutable after creation.
type Job struct {
	ID                string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Owner             string     `json:"owner" gorm:"not null;index"`
	RunID             string     `json:"run_id,omitempty"`
	Phase             Phase      `json:"phase" gorm:"not null;index"`
	Parameters        Parameters `json:"parameters" gorm:"type:jsonb"`
	CreatedAt         time.Time  `json:"created_at" gorm:"index"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	DestructionTime   time.Time  `json:"destruction_time" gorm:"not null;index"`
	ExecutionDuration int        `json:"execution_duration"` // seconds, 0 = unlimited
	Results           Results    `json:"results,omitempty" gorm:"type:jsonb"`
	Error             *JobError  `json:"error,omitempty" gorm:"type:jsonb"`
}

// Validate ensures that the job data is valid
func (j *Job) Validate() error {
	if j.Owner == "" {
		return fmt.Errorf("job owner cannot be empty")
	}
	if j.ExecutionDuration < 0 {
		return fmt.Errorf("execution duration cannot be negative")
	}
	if j.DestructionTime.IsZero() {
		return fmt.Errorf("destruction time must be set")
	}
	return j.Parameters.Validate()
}

// BeforeCreate is a GORM hook that runs before creating a new job.
// Timestamps are truncated to second granularity; sub-second precision
// is not preserved by the store and must not be relied upon.
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Phase == "" {
		j.Phase = PhasePending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	j.CreatedAt = j.CreatedAt.UTC().Truncate(time.Second)
	j.DestructionTime = j.DestructionTime.UTC().Truncate(time.Second)
	return j.Validate()
}
