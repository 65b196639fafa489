package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Parameters holds the cutout request parameters for a job: the
// dataset references to cut and the stencils describing the regions.
// Parameters are immutable after job creation.
type Parameters struct {
	DatasetIDs []string  `json:"dataset_ids"`
	Stencils   []Stencil `json:"stencils"`
}

// Value implements the driver.Valuer interface
func (p Parameters) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface
func (p *Parameters) Scan(value interface{}) error {
	if value == nil {
		*p = Parameters{}
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, p)
}

// Validate applies the parameter policy for cutout jobs. The backend
// currently handles a single dataset and a single circle or polygon
// stencil per job.
func (p *Parameters) Validate() error {
	if len(p.DatasetIDs) == 0 {
		return fmt.Errorf("at least one dataset ID is required")
	}
	if len(p.DatasetIDs) != 1 {
		return fmt.Errorf("only one dataset ID is supported")
	}
	for _, id := range p.DatasetIDs {
		if id == "" {
			return fmt.Errorf("dataset ID cannot be empty")
		}
	}
	if len(p.Stencils) == 0 {
		return fmt.Errorf("at least one stencil is required")
	}
	if len(p.Stencils) != 1 {
		return fmt.Errorf("only one stencil is supported")
	}
	for i := range p.Stencils {
		if err := p.Stencils[i].Validate(); err != nil {
			return err
		}
		if p.Stencils[i].Type == StencilRange {
			return fmt.Errorf("RANGE stencils are not supported")
		}
	}
	return nil
}

// jsonBytes normalizes a database value to a byte slice for JSON
// decoding. Postgres jsonb scans as []byte, SQLite as string.
func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
}
