package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/sirupsen/logrus"
)

// Storage is the API for this package
type Storage interface {
	// TXBegin starts a transaction; cache actions are deferred until TXEnd commits it
	TXBegin(ctx context.Context) (TxInterface, error)

	Insert(ctx context.Context, obj interface{}) error
	// InsertBatch inserts every obj in a single transaction; either all rows are committed or none are
	InsertBatch(ctx context.Context, objs ...interface{}) error
	Update(ctx context.Context, obj interface{}) error

	// Select fills out obj with the single row returned by queryName
	Select(ctx context.Context, obj interface{}, queryName string) error

	/*
		SelectAll fills out dest (a pointer to a slice of the table's struct) with every row returned by queryName.
		obj carries the values for the query's named parameters
	*/
	SelectAll(ctx context.Context, obj interface{}, dest interface{}, queryName string, opts *SelectOptions) error

	DeleteKeys(ctx context.Context, objs ...interface{}) error // Deletes the object's keys from the cache
}

// storage is the private implementation of the API
type storage struct {
	serviceName string
	db          *db
	cache       *cache
	debug       *logger

	queries       map[string]*Query // query name -> query
	queryToTable  map[string]*Table // query name -> table it reads
	structToTable map[string]*Table // struct name -> table
}

type Config struct {
	ReadOnlyDbConn  *sqlx.DB // optional; reads use WriteOnlyDbConn when nil
	WriteOnlyDbConn *sqlx.DB
	Redis           *redis.Client
	Tables          []*Table

	ServiceName string
	DefaultTTL  int // seconds; used by queries that don't set CacheTTL

	DoNotUseCache bool // every read goes to the database and no keys are written
	Debugger      bool
	Logger        *logrus.Logger
}

// New validates the tables & queries and returns storage which implements the interface
func New(conf *Config) (Storage, error) {
	if conf == nil {
		return nil, errors.New("storage: config must not be nil")
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}

	d := newDB(conf)
	// use the json tag instead of the DB tag
	d.readConn().Mapper = reflectx.NewMapperFunc("json", strings.ToLower)
	d.writeConn().Mapper = reflectx.NewMapperFunc("json", strings.ToLower)

	s := &storage{
		serviceName:   conf.ServiceName,
		db:            d,
		cache:         newCache(conf.Redis, !conf.DoNotUseCache),
		debug:         newLogger(conf.Logger, conf.Debugger),
		queries:       make(map[string]*Query),
		queryToTable:  make(map[string]*Table),
		structToTable: make(map[string]*Table),
	}

	for _, t := range conf.Tables {
		if err := t.validate(); err != nil {
			return nil, err
		}

		for _, q := range t.Queries {
			if err := q.validate(); err != nil {
				return nil, fmt.Errorf("Table: %s Err: %w", t.tableName, err)
			}
			q.parseTTL(conf.DefaultTTL)
			q.parseTableName(t.tableName)
			q.parseFullCacheKey(conf.ServiceName, t.tableName)
			q.parseLimitOffsetQuery()

			if _, ok := s.queries[q.Name]; ok {
				return nil, fmt.Errorf("query %s registered twice", q.Name)
			}
			s.queries[q.Name] = q
			s.queryToTable[q.Name] = t
		}

		s.structToTable[t.tableName] = t
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *storage) Insert(ctx context.Context, obj interface{}) error {
	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}
	objMap, err = s.insert(ctx, objMap, s.db.writeConn())
	if err != nil {
		return err
	}
	if err = mapToStruct(objMap, obj); err != nil {
		return err
	}
	if err = s.actionNonSelect(ctx, objMap, obj, actionInsert); err != nil {
		// the row is written; a stale key is only logged
		s.debug.warn(err, "cache action after write")
	}
	return nil
}

func (s *storage) InsertBatch(ctx context.Context, objs ...interface{}) error {
	if len(objs) == 0 {
		return nil
	}

	tx, err := s.TXBegin(ctx)
	if err != nil {
		return err
	}

	for _, obj := range objs {
		if err = tx.TXInsert(ctx, obj); err != nil {
			if rbErr := tx.TXRollback(); rbErr != nil {
				s.debug.debug("rollback after failed batch insert: %+v", rbErr)
			}
			return err
		}
	}

	return tx.TXEnd(ctx)
}

func (s *storage) Update(ctx context.Context, obj interface{}) error {
	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}
	objMap, err = s.update(ctx, objMap, s.db.writeConn())
	if err != nil {
		return err
	}
	if err = mapToStruct(objMap, obj); err != nil {
		return err
	}
	if err = s.actionNonSelect(ctx, objMap, obj, actionUpdate); err != nil {
		// the row is written; a stale key is only logged
		s.debug.warn(err, "cache action after write")
	}
	return nil
}

func (s *storage) Select(ctx context.Context, obj interface{}, queryName string) error {
	return s.selectOne(ctx, obj, queryName, s.db.readConn())
}

func (s *storage) SelectAll(ctx context.Context, obj interface{}, dest interface{}, queryName string, opts *SelectOptions) error {
	return s.selectAll(ctx, obj, dest, queryName, opts, s.db.readConn())
}

func (s *storage) DeleteKeys(ctx context.Context, objs ...interface{}) error {
	for _, obj := range objs {
		objMap, err := structToMap(obj)
		if err != nil {
			return err
		}
		if err = s.delete(ctx, objMap); err != nil {
			return err
		}
	}
	return nil
}
