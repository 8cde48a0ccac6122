package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-redis/redis/v8"
)

func (s *storage) selectOne(ctx context.Context, obj interface{}, queryName string, conn queryer) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("obj not pointer; is %T", obj)
	}

	q, ok := s.queries[queryName]
	if !ok {
		return errors.New("config query not found; have you configured storage properly?")
	}

	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}

	// get the cache key name
	keyName := q.getKeyName(objMap)

	// the obj should be of the value that the cache is expecting so we can then just unmarshal into that
	err = s.cache.get(ctx, keyName, obj)
	if err == nil {
		s.debug.debug("found %s in cache", keyName)
		return nil
	}

	// check to see if there's a real error
	if err != redis.Nil {
		return err
	}

	// the value wasn't found in the cache; let's get from the database and then set the cache
	res, err := s.db.query(ctx, objMap, q.Query, conn)
	if err != nil {
		return err
	}
	if len(res) == 0 {
		return ErrNotFound
	}

	if err = mapToStruct(res[0], obj); err != nil {
		return err
	}

	if q.SelectAction == CacheSet {
		if err = s.cache.set(ctx, keyName, obj, q.CacheTTL); err != nil {
			// the row is already in obj; a cache miss next time is fine
			s.debug.warn(err, "setting %s", keyName)
		}
	}
	return nil
}

func (s *storage) selectAll(ctx context.Context, obj interface{}, dest interface{}, queryName string, opts *SelectOptions, conn queryer) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("dest not pointer; is %T", dest)
	}

	if opts == nil {
		opts = &SelectOptions{}
	}
	if opts.Offset < 0 {
		return errors.New("offset must not be negative")
	}
	if opts.Limit <= 0 {
		// the offset is only applied together with a limit
		opts = &SelectOptions{}
	}

	q, ok := s.queries[queryName]
	if !ok {
		return errors.New("config query not found; have you configured storage properly?")
	}

	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}
	objMap["limit"] = opts.Limit
	objMap["offset"] = opts.Offset

	if q.SelectAction == CacheSet {
		err = s.cache.getList(ctx, q, objMap, dest, opts)
		if err == nil {
			s.debug.debug("found %s in cache", q.getKeyNameSelectOpts(objMap, opts))
			return nil
		}
		// return if there is a real err. If it's redis.Nil then just keep moving forward
		if err != redis.Nil {
			return err
		}
	}

	objs, err := s.db.query(ctx, objMap, q.getQuery(opts), conn)
	if err != nil {
		s.debug.debug("error: %+v", err)
		return err
	}

	if err = mapsToStruct(objs, dest); err != nil {
		return err
	}

	if q.SelectAction == CacheSet {
		if err = s.cache.setList(ctx, q, objMap, dest, opts); err != nil {
			s.debug.warn(err, "caching %s", q.getKeyNameSelectOpts(objMap, opts))
		}
	}
	return nil
}

func (s *storage) tableFor(objMap map[string]interface{}) (*Table, error) {
	// get the struct's string name to get the table
	structName, _ := objMap[objMapStructNameKey].(string)
	if structName == "" {
		return nil, errors.New("struct name cannot be blank")
	}

	table, ok := s.structToTable[structName]
	if !ok {
		return nil, errors.New("no table config found for " + structName)
	}
	return table, nil
}

func (s *storage) insert(ctx context.Context, objMap map[string]interface{}, conn queryer) (map[string]interface{}, error) {
	table, err := s.tableFor(objMap)
	if err != nil {
		return nil, err
	}
	if table.InsertQuery == "" {
		return nil, errors.New("no insert query configured for " + table.tableName)
	}

	res, err := s.db.query(ctx, objMap, table.InsertQuery, conn)
	if err != nil {
		return nil, err
	}

	if len(res) != 1 {
		return nil, fmt.Errorf("insert did not return a single row; returned: %d", len(res))
	}

	// objMap probably has stuff we need so we'll just overwrite the fields we have and return objMap
	for k, v := range res[0] {
		objMap[k] = v
	}
	return objMap, nil
}

func (s *storage) update(ctx context.Context, objMap map[string]interface{}, conn queryer) (map[string]interface{}, error) {
	table, err := s.tableFor(objMap)
	if err != nil {
		return nil, err
	}
	if table.UpdateQuery == "" {
		return nil, errors.New("no update query configured for " + table.tableName)
	}

	res, err := s.db.query(ctx, objMap, table.UpdateQuery, conn)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, ErrNotFound
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("update did not return a single row; returned: %d", len(res))
	}

	for k, v := range res[0] {
		objMap[k] = v
	}
	return objMap, nil
}

// delete takes action on all the keys associated with this object
func (s *storage) delete(ctx context.Context, objMap map[string]interface{}) error {
	return s.actionNonSelect(ctx, objMap, nil, actionDelete)
}
