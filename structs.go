package storage

import (
	"errors"

	"github.com/jmoiron/sqlx"
)

type actionTypes int32

const (
	actionSelect actionTypes = iota
	actionInsert
	actionUpdate
	actionDelete
)

const (
	objMapStructNameKey = "_structName"

	// suffix of the redis list that remembers every paged SelectAll key cached for a query
	cacheKeyListCachedSelectAll = "|cachedSelectAll"
)

// ErrNotFound is returned by Select when neither the cache nor the database has the row
var ErrNotFound = errors.New("storage: no results found")

// Define the cache actions you can take
type CacheAction int32

const (
	CacheDefault  CacheAction = iota
	CacheNoAction             // do nothing
	CacheDel
	CacheSet
)

// Table ties a DB struct to its insert / update statements and the queries that read it
type Table struct {
	Struct interface{} // DB struct this is based off of e.g. Leads{}

	PrimaryKeyField  string // column of the primary key e.g. lead_id
	PrimaryQueryName string // the query that fetches a single row by PrimaryKeyField e.g. LeadsGetByID

	InsertQuery string // must end with `RETURNING *`
	UpdateQuery string // must end with `RETURNING *`

	Queries []*Query

	tableName string
}

// Query is a named select plus the rules for how its cache key reacts to writes on the table
type Query struct {
	Name string

	/*
		CacheKey is the per-query part of the redis key e.g. `lead_id=%v` or `user_id=%v`.
		Each pipe separated `column=%v` is filled from the object's column of the same name.
		The full key is prefixed with `service:{service}|{table}|`
	*/
	CacheKey string
	Query    string

	CacheTTL int // time to live in seconds; 0 = storage default

	InsertAction CacheAction // action to take on this key when a row is inserted into the table
	UpdateAction CacheAction // action to take on this key when a row of the table is updated
	SelectAction CacheAction // action to take on this key when the query is run against the database (CacheSet or CacheNoAction)

	tableName        string
	fullCacheKey     string
	cacheKeyFields   []string
	queryLimitOffset string
}

// SelectOptions pages a SelectAll. Limit <= 0 returns every row
type SelectOptions struct {
	Limit  int
	Offset int
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx
type queryer interface {
	sqlx.ExtContext
}
