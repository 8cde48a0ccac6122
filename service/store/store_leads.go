package store

import (
	"context"

	storage "github.com/osr-alliance/backend-lead-intake"
	"github.com/pkg/errors"
)

// ErrLeadNotFound is returned when no lead has the requested id
var ErrLeadNotFound = errors.New("lead not found")

func (s *store) SetLead(ctx context.Context, lead *Leads) error {
	return errors.Wrap(s.store.Insert(ctx, lead), "inserting lead")
}

func (s *store) InsertLeads(ctx context.Context, leads []*Leads) error {
	objs := make([]interface{}, 0, len(leads))
	for _, l := range leads {
		objs = append(objs, l)
	}
	return errors.Wrapf(s.store.InsertBatch(ctx, objs...), "inserting %d leads", len(leads))
}

func (s *store) GetLeadByID(ctx context.Context, id int32) (*Leads, error) {
	l := &Leads{
		LeadID: id,
	}
	err := s.store.Select(ctx, l, LeadsGetByID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "selecting lead %d", id)
	}
	return l, nil
}

func (s *store) GetLeadsByUserID(ctx context.Context, userID int32, opts *storage.SelectOptions) ([]Leads, error) {
	l := &Leads{
		UserID: userID,
	}

	leads := []Leads{}
	err := s.store.SelectAll(ctx, l, &leads, LeadsGetByUserID, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting leads of user %d", userID)
	}
	return leads, nil
}

func (s *store) UpdateLeadCallOutcome(ctx context.Context, id int32, status string, notes string) (*Leads, error) {
	lead, err := s.GetLeadByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lead.Status = status
	lead.Notes = notes

	err = s.store.Update(ctx, lead)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "updating lead %d", id)
	}
	return lead, nil
}
