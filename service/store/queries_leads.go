package store

import storage "github.com/osr-alliance/backend-lead-intake"

func leadsGetByID() *storage.Query {
	return &storage.Query{
		Name:     LeadsGetByID,
		CacheKey: "lead_id=%v",

		Query: "select * from leads where lead_id=:lead_id",

		CacheTTL: DefaultTTL,

		InsertAction: storage.CacheSet,
		UpdateAction: storage.CacheSet,
		SelectAction: storage.CacheSet,
	}
}

func leadsGetByUserID() *storage.Query {
	return &storage.Query{
		Name:     LeadsGetByUserID,
		CacheKey: "user_id=%v",

		// newest first; lead_id breaks ties inside one batch insert
		Query: "select * from leads where user_id=:user_id order by created_at desc, lead_id desc",

		CacheTTL: DefaultTTL,

		InsertAction: storage.CacheDel,
		UpdateAction: storage.CacheDel, // the status shown in the list changes
		SelectAction: storage.CacheSet,
	}
}

// note: absent optional fields are stored as NULL
const leadsInsert = `INSERT INTO leads (user_id, name, email, phone, company, position, status, notes, custom_data)
VALUES
(:user_id, :name, NULLIF(:email, ''), NULLIF(:phone, ''), NULLIF(:company, ''), NULLIF(:position, ''),
COALESCE(NULLIF(:status, ''), 'new'), NULLIF(:notes, ''), CAST(:custom_data AS jsonb)) RETURNING *` // note: make sure it's RETURNING *

const leadsUpdateCallOutcome = `update leads set status=:status, notes=NULLIF(:notes, '') where lead_id=:lead_id RETURNING *` // note: make sure it's RETURNING *
