package storage

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

func (t *Table) validate() error {
	if t.Struct == nil {
		return fmt.Errorf("Struct must be set")
	}

	t.parseTableName()

	if reflect.Indirect(reflect.ValueOf(t.Struct)).Kind() != reflect.Struct {
		return fmt.Errorf("Table: %s Err: Struct must be a struct", t.tableName)
	}

	// you can have no primary key only if you have no insert query
	if t.PrimaryKeyField == "" && t.InsertQuery != "" {
		return fmt.Errorf("Table: %s Err: PrimaryKeyField must be set", t.tableName)
	}

	if t.PrimaryQueryName == "" {
		return fmt.Errorf("Table: %s Err: PrimaryQueryName must be set", t.tableName)
	}

	if len(t.Queries) == 0 {
		return fmt.Errorf("Table: %s Err: Queries must be set", t.tableName)
	}

	return t.validateInsertAndUpdateQueries()
}

func (t *Table) validateInsertAndUpdateQueries() error {
	// insert query & update query aren't required e.g. a read-only view has neither

	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(t.InsertQuery)), "returning *") && t.InsertQuery != "" {
		return errors.New("InsertQuery must end with `returning *`")
	}

	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(t.UpdateQuery)), "returning *") && t.UpdateQuery != "" {
		return errors.New("UpdateQuery must end with `returning *`")
	}
	return nil
}

func (t *Table) parseTableName() {
	// this is used so many times that it's worth caching given it uses reflection
	t.tableName = getStructName(t.Struct)
}
