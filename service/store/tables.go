package store

import storage "github.com/osr-alliance/backend-lead-intake"

// define all the query names we will use
const (
	/*
		It's standard to have the query used to fetch by
		the primary key be called {tableName}GetByID
	*/
	LeadsGetByID     = "LeadsGetByID"
	LeadsGetByUserID = "LeadsGetByUserID"
)

const (
	ServiceName = "lead_intake"
	DefaultTTL  = (3600 * 24 * 7) // 7 days
)

// tables returns fresh configs since storage.New parses into them
func tables() []*storage.Table {
	return []*storage.Table{
		leadsTable(),
	}
}

func leadsTable() *storage.Table {
	return &storage.Table{
		Struct:           Leads{},
		PrimaryQueryName: LeadsGetByID,
		PrimaryKeyField:  "lead_id",
		InsertQuery:      leadsInsert,
		UpdateQuery:      leadsUpdateCallOutcome,
		Queries: []*storage.Query{
			leadsGetByID(),
			leadsGetByUserID(),
		},
	}
}
