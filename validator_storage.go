package storage

import (
	"errors"
	"fmt"
)

func (s *storage) validate() error {
	if s.serviceName == "" {
		return errors.New("serviceName must be set")
	}

	return s.validatePrimaryQueries()
}

// validatePrimaryQueries makes sure every table's PrimaryQueryName is one of its own queries
func (s *storage) validatePrimaryQueries() error {
	for name, t := range s.structToTable {
		q, ok := s.queries[t.PrimaryQueryName]
		if !ok {
			return fmt.Errorf("Table: %s Err: PrimaryQueryName %s is not a registered query", name, t.PrimaryQueryName)
		}

		if s.queryToTable[q.Name] != t {
			return fmt.Errorf("Table: %s Err: PrimaryQueryName %s belongs to another table", name, t.PrimaryQueryName)
		}
	}
	return nil
}
