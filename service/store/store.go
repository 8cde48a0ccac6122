package store

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	storage "github.com/osr-alliance/backend-lead-intake"
	"github.com/sirupsen/logrus"
)

type Store interface {
	SetLead(ctx context.Context, lead *Leads) error
	// InsertLeads writes every lead in one transaction; on error none of them are stored
	InsertLeads(ctx context.Context, leads []*Leads) error
	GetLeadByID(ctx context.Context, id int32) (*Leads, error)
	// GetLeadsByUserID returns the user's leads newest first
	GetLeadsByUserID(ctx context.Context, userID int32, opts *storage.SelectOptions) ([]Leads, error)
	UpdateLeadCallOutcome(ctx context.Context, id int32, status string, notes string) (*Leads, error)
}

type store struct {
	store storage.Storage
}

type Config struct {
	ReadConn      *sqlx.DB
	WriteConn     *sqlx.DB
	Redis         *redis.Client
	DoNotUseCache bool
	Debugger      bool
	Logger        *logrus.Logger
}

func New(conf *Config) (Store, error) {
	// instantiate the storage
	c := &storage.Config{
		ReadOnlyDbConn:  conf.ReadConn,
		WriteOnlyDbConn: conf.WriteConn,
		Redis:           conf.Redis,
		Tables:          tables(),
		ServiceName:     ServiceName,
		DefaultTTL:      DefaultTTL,
		DoNotUseCache:   conf.DoNotUseCache,
		Debugger:        conf.Debugger,
		Logger:          conf.Logger,
	}

	s, err := storage.New(c)
	if err != nil {
		return nil, err
	}

	return &store{store: s}, nil
}
