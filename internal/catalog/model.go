// Package catalog holds the laboratory test catalog: the definitions of the
// tests the lab can run, keyed by a short test code. Definitions change
// rarely and are read on every lab order, so reads go through a Redis
// read-through cache when one is configured.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// TestDefinition maps to the lab_test_definition table.
type TestDefinition struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	Name              string    `db:"name" json:"name"`
	SampleType        string    `db:"sample_type" json:"sample_type"`
	Price             int64     `db:"price" json:"price"`
	TurnaroundMinutes int       `db:"turnaround_minutes" json:"turnaround_minutes"`
	FastingRequired   bool      `db:"fasting_required" json:"fasting_required"`
	Parameters        []string  `db:"parameters" json:"parameters,omitempty"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
