package ingest

import (
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	storage "github.com/osr-alliance/backend-lead-intake"
	"github.com/osr-alliance/backend-lead-intake/leadcsv"
	"github.com/osr-alliance/backend-lead-intake/service/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Every error below ends the upload attempt; the user has to pick the file again.
var (
	ErrInvalidFileType = errors.New("invalid file type: please upload a CSV file")
	ErrInvalidFormat   = leadcsv.ErrInvalidFormat
	ErrNoValidLeads    = errors.New("no valid leads found: every row needs a name or an email")
	ErrIngestion       = errors.New("failed to save leads, please try again")
	ErrNoOwner         = errors.New("leads must belong to an account")
)

// LeadStore is the part of the datastore the gate writes through
type LeadStore interface {
	InsertLeads(ctx context.Context, leads []*store.Leads) error
	GetLeadsByUserID(ctx context.Context, userID int32, opts *storage.SelectOptions) ([]store.Leads, error)
}

// Result is what an accepted upload reports back to the user
type Result struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	// Leads is the owner's lead list fetched again after the insert; nil if that fetch failed
	Leads []store.Leads `json:"leads"`
}

type Config struct {
	Store   LeadStore
	Logger  *logrus.Logger
	Metrics *Metrics // optional
	// RefreshLimit caps the lead list returned after an upload; <= 0 returns every lead
	RefreshLimit int
}

// Gate validates parsed uploads and hands them to the datastore as a single batch
type Gate struct {
	store        LeadStore
	logger       *logrus.Entry
	metrics      *Metrics
	refreshLimit int
}

func New(conf *Config) *Gate {
	logger := conf.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gate{
		store:        conf.Store,
		logger:       logger.WithField("component", "ingest"),
		metrics:      conf.Metrics,
		refreshLimit: conf.RefreshLimit,
	}
}

// CheckFile accepts a file declared as text/csv or named *.csv whose content is text
func CheckFile(filename string, contentType string, data []byte) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	if mediaType != "text/csv" && !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return ErrInvalidFileType
	}

	if len(data) == 0 {
		return nil
	}

	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return ErrInvalidFileType
}

// Upload runs the whole pipeline for one file: type check, parse, then Ingest
func (g *Gate) Upload(ctx context.Context, userID int32, filename string, contentType string, data []byte) (*Result, error) {
	log := g.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"filename": filename,
		"size":     len(data),
	})

	if err := CheckFile(filename, contentType, data); err != nil {
		log.WithField("content_type", contentType).Info("rejected upload with invalid file type")
		g.metrics.observe(ResultInvalidFileType, 0, 0)
		return nil, err
	}

	parsed, err := leadcsv.Parse(bytes.NewReader(data))
	if err != nil {
		log.WithError(err).Info("rejected upload with invalid CSV format")
		g.metrics.observe(ResultInvalidFormat, 0, 0)
		return nil, err
	}

	return g.Ingest(ctx, userID, parsed)
}

// Ingest attaches the owner to every parsed record and stores them in one batch.
// Nothing is stored when the batch fails and nothing is retried.
func (g *Gate) Ingest(ctx context.Context, userID int32, parsed *leadcsv.Result) (*Result, error) {
	if userID <= 0 {
		return nil, ErrNoOwner
	}

	log := g.logger.WithField("user_id", userID)

	if parsed == nil || len(parsed.Records) == 0 {
		skipped := 0
		if parsed != nil {
			skipped = parsed.Skipped
		}
		log.WithField("skipped", skipped).Info("upload had no valid leads")
		g.metrics.observe(ResultNoValidLeads, 0, skipped)
		return nil, ErrNoValidLeads
	}

	leads := make([]*store.Leads, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		leads = append(leads, toLead(userID, rec))
	}

	if err := g.store.InsertLeads(ctx, leads); err != nil {
		log.WithError(err).WithField("count", len(leads)).Error("failed to store uploaded leads")
		g.metrics.observe(ResultIngestionFailed, 0, parsed.Skipped)
		return nil, ErrIngestion
	}

	res := &Result{
		Accepted: len(leads),
		Skipped:  parsed.Skipped,
	}
	g.metrics.observe(ResultAccepted, res.Accepted, res.Skipped)
	log.WithFields(logrus.Fields{
		"accepted": res.Accepted,
		"skipped":  res.Skipped,
	}).Info("stored uploaded leads")

	// the list is fetched again rather than merged with what was just inserted
	refreshed, err := g.store.GetLeadsByUserID(ctx, userID, &storage.SelectOptions{Limit: g.refreshLimit})
	if err != nil {
		log.WithError(err).Warn("failed to refresh leads after upload")
		return res, nil
	}
	res.Leads = refreshed
	return res, nil
}

func toLead(userID int32, rec leadcsv.Record) *store.Leads {
	lead := &store.Leads{
		UserID:   userID,
		Name:     rec.Name,
		Email:    rec.Email,
		Phone:    rec.Phone,
		Company:  rec.Company,
		Position: rec.Position,
		Status:   store.LeadStatusNew,
	}
	if len(rec.CustomData) > 0 {
		lead.CustomData = make(store.CustomData, len(rec.CustomData))
		for k, v := range rec.CustomData {
			lead.CustomData[k] = v
		}
	}
	return lead
}
