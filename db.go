package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type db struct {
	write *sqlx.DB
	read  *sqlx.DB
}

func newDB(conf *Config) *db {
	read := conf.ReadOnlyDbConn
	if read == nil {
		read = conf.WriteOnlyDbConn
	}
	return &db{
		write: conf.WriteOnlyDbConn,
		read:  read,
	}
}

// query runs a named query with objMap as its arguments and returns every row as column -> value
func (d *db) query(ctx context.Context, objMap map[string]interface{}, query string, conn queryer) ([]map[string]interface{}, error) {
	rows, err := sqlx.NamedQueryContext(ctx, conn, query, objMap)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	structName := objMap[objMapStructNameKey]

	var res []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err = rows.MapScan(row); err != nil {
			return nil, err
		}
		// rows carry the struct name so actions can find their table
		row[objMapStructNameKey] = structName
		res = append(res, row)
	}

	return res, rows.Err()
}

func (d *db) writeConn() *sqlx.DB {
	return d.write
}

func (d *db) readConn() *sqlx.DB {
	return d.read
}
