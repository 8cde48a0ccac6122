package storage

import (
	"errors"
	"fmt"
	"strings"
)

func (q *Query) validate() error {
	err := q.validateName()
	if err != nil {
		return err
	}

	err = q.validateActions()
	if err != nil {
		return err
	}

	return q.validateAndParseCacheFields()
}

func (q *Query) validateName() error {
	if q.Name == "" {
		return errors.New("name is required")
	}
	if q.Query == "" {
		return fmt.Errorf("query %s: Query is required", q.Name)
	}
	return nil
}

func (q *Query) usesCache() bool {
	return q.InsertAction != CacheNoAction || q.UpdateAction != CacheNoAction || q.SelectAction != CacheNoAction
}

func (q *Query) validateActions() error {
	for _, a := range []CacheAction{q.InsertAction, q.UpdateAction, q.SelectAction} {
		switch a {
		case CacheNoAction, CacheDel, CacheSet:
		default:
			return fmt.Errorf("query %s: every cache action must be set explicitly", q.Name)
		}
	}

	if q.SelectAction == CacheDel {
		return fmt.Errorf("query %s: SelectAction cannot be CacheDel", q.Name)
	}
	return nil
}

// validateAndParseCacheFields takes in a generic key e.g. `lead_id=%v` and places lead_id into the cacheKeyFields
func (q *Query) validateAndParseCacheFields() error {
	q.cacheKeyFields = []string{}

	if !q.usesCache() {
		return nil
	}

	if q.CacheKey == "" {
		return fmt.Errorf("query %s: CacheKey is required when the query uses the cache", q.Name)
	}

	for _, key := range strings.Split(q.CacheKey, "|") {
		if !strings.Contains(key, `=%v`) {
			// field doesn't have a placeholder value; continue
			continue
		}

		parts := strings.Split(key, "=")
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf("query %s: invalid CacheKey %s; each pipe must be in the format `column=%%v`", q.Name, q.CacheKey)
		}

		q.cacheKeyFields = append(q.cacheKeyFields, parts[0])
	}

	return nil
}

func (q *Query) parseTTL(defaultTTL int) {
	if q.CacheTTL == 0 {
		q.CacheTTL = defaultTTL
	}
}

func (q *Query) parseTableName(tableName string) {
	q.tableName = tableName
}

func (q *Query) parseFullCacheKey(service string, tableName string) {
	// this is an optimization so we don't need to sprintf extra keys and do the lookup
	q.fullCacheKey = fmt.Sprintf("service:%s|%s", service, tableName)
}

func (q *Query) parseLimitOffsetQuery() {
	q.queryLimitOffset = q.Query + " LIMIT :limit OFFSET :offset"
}

// getKeyName takes the query's abstract key e.g. `lead_id=%v` and returns the full key e.g. `service:leads|Leads|lead_id=1273`
func (q *Query) getKeyName(objMap map[string]interface{}) string {
	args := make([]interface{}, 0, len(q.cacheKeyFields))
	for _, field := range q.cacheKeyFields {
		args = append(args, objMap[field])
	}

	return q.fullCacheKey + "|" + fmt.Sprintf(q.CacheKey, args...)
}

// getKeyNameSelectOpts is the key a paged SelectAll result is stored under
func (q *Query) getKeyNameSelectOpts(objMap map[string]interface{}, opts *SelectOptions) string {
	return fmt.Sprintf("%s|limit=%d|offset=%d", q.getKeyName(objMap), opts.Limit, opts.Offset)
}

// getKeyNameMetadata is the list holding every getKeyNameSelectOpts key cached for the object
func (q *Query) getKeyNameMetadata(objMap map[string]interface{}) string {
	return q.getKeyName(objMap) + cacheKeyListCachedSelectAll
}

func (q *Query) getQuery(opts *SelectOptions) string {
	if opts != nil && opts.Limit > 0 {
		return q.queryLimitOffset
	}
	return q.Query
}
