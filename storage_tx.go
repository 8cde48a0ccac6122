package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Tx struct {
	s  *storage
	tx *sqlx.Tx

	actions []txAction
}

type txAction struct {
	action actionTypes
	objMap map[string]interface{}
	obj    interface{}
}

type TxInterface interface {
	TXInsert(ctx context.Context, obj interface{}) error
	TXUpdate(ctx context.Context, obj interface{}) error
	// TXEnd commits the transaction and then runs the cache actions of every insert & update
	TXEnd(ctx context.Context) error
	TXRollback() error

	// TxSelect is for fetching one row where obj will be the result
	TxSelect(ctx context.Context, obj interface{}, queryName string) error

	// TxSelectAll is for fetching all rows where dest will be the results
	TxSelectAll(ctx context.Context, obj interface{}, dest interface{}, queryName string, opts *SelectOptions) error
}

func (s *storage) TXBegin(ctx context.Context) (TxInterface, error) {
	tx, err := s.db.writeConn().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{
		s:       s,
		tx:      tx,
		actions: []txAction{},
	}, nil
}

func (t *Tx) TXInsert(ctx context.Context, obj interface{}) error {
	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}

	objMap, err = t.s.insert(ctx, objMap, t.tx)
	if err != nil {
		return err
	}

	t.actions = append(t.actions, txAction{
		action: actionInsert,
		objMap: objMap,
		obj:    obj,
	})

	return mapToStruct(objMap, obj)
}

func (t *Tx) TXUpdate(ctx context.Context, obj interface{}) error {
	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}

	objMap, err = t.s.update(ctx, objMap, t.tx)
	if err != nil {
		return err
	}

	t.actions = append(t.actions, txAction{
		action: actionUpdate,
		objMap: objMap,
		obj:    obj,
	})
	return mapToStruct(objMap, obj)
}

func (t *Tx) TxSelect(ctx context.Context, obj interface{}, queryName string) error {
	return t.s.selectOne(ctx, obj, queryName, t.tx)
}

func (t *Tx) TxSelectAll(ctx context.Context, obj interface{}, dest interface{}, queryName string, opts *SelectOptions) error {
	return t.s.selectAll(ctx, obj, dest, queryName, opts, t.tx)
}

func (t *Tx) TXRollback() error {
	t.actions = nil
	return t.tx.Rollback()
}

func (t *Tx) TXEnd(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		_ = t.tx.Rollback()
		return err
	}

	for _, action := range t.actions {
		if err := t.s.actionNonSelect(ctx, action.objMap, action.obj, action.action); err != nil {
			// the rows are committed; a stale key is only logged
			t.s.debug.warn(err, "cache action after commit")
		}
	}

	return nil
}
