package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Lead statuses; a lead starts as LeadStatusNew and is moved on by call-outcome callbacks
const (
	LeadStatusNew       = "new"
	LeadStatusCalling   = "calling"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusLost      = "lost"
)

type Leads struct {
	LeadID     int32      `json:"lead_id"`
	UserID     int32      `json:"user_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Company    string     `json:"company,omitempty"`
	Position   string     `json:"position,omitempty"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	CustomData CustomData `json:"custom_data"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CustomData holds the CSV columns that aren't part of the lead's own fields; stored as jsonb
type CustomData map[string]string

func (c CustomData) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *CustomData) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return c.unmarshal(v)
	case string:
		return c.unmarshal([]byte(v))
	case CustomData:
		*c = v
		return nil
	case map[string]string:
		*c = v
		return nil
	default:
		return fmt.Errorf("custom_data: cannot scan %T", src)
	}
}

func (c *CustomData) unmarshal(b []byte) error {
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("custom_data: %w", err)
	}
	if len(m) == 0 {
		*c = nil
		return nil
	}
	*c = m
	return nil
}
