package storage

import (
	"context"
	"errors"
)

/*
actionNonSelect applies each of the table's query cache actions after a row has been inserted,
updated or deleted:
 1. CacheSet writes obj (the row as a struct) under the query's key e.g. a lead by lead_id
 2. CacheDel drops the key along with every cached page of the query e.g. the leads of a user_id
*/
func (s *storage) actionNonSelect(ctx context.Context, objMap map[string]interface{}, obj interface{}, action actionTypes) error {
	if action == actionSelect {
		return errors.New("cannot do actionSelect in actionNonSelect")
	}

	table, err := s.tableFor(objMap)
	if err != nil {
		return err
	}

	for _, q := range table.Queries {
		var actionToTake CacheAction
		switch action {
		case actionInsert:
			actionToTake = q.InsertAction
		case actionUpdate:
			actionToTake = q.UpdateAction
		case actionDelete:
			actionToTake = CacheDel
		}

		switch actionToTake {
		case CacheNoAction:
			// don't do anything

		case CacheSet:
			if obj == nil {
				err = s.cache.deleteList(ctx, q, objMap)
				break
			}
			err = s.cache.set(ctx, q.getKeyName(objMap), obj, q.CacheTTL)

		case CacheDel:
			err = s.cache.deleteList(ctx, q, objMap)

		default:
			err = errors.New("unknown cache action")
		}

		if err != nil {
			return err
		}
	}

	return nil
}
