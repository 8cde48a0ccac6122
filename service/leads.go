package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	storage "github.com/osr-alliance/backend-lead-intake"
	"github.com/osr-alliance/backend-lead-intake/leadcsv"
	"github.com/osr-alliance/backend-lead-intake/service/ingest"
	"github.com/osr-alliance/backend-lead-intake/service/outreach"
	"github.com/osr-alliance/backend-lead-intake/service/store"
	"github.com/sirupsen/logrus"
)

const (
	uploadFormField = "file"

	// room for the multipart boundaries and part headers around a file of maxUploadSize
	multipartOverhead = 64 << 10
)

type Config struct {
	store  store.Store
	gate   *ingest.Gate
	caller outreach.Caller
	logger *logrus.Logger

	maxUploadSize  int64
	pageSize       int
	maxPageSize    int
	callbackSecret string
}

type lead struct {
	store    store.Store
	gate     *ingest.Gate
	caller   outreach.Caller
	logger   *logrus.Logger
	validate *validator.Validate

	maxUploadSize  int64
	pageSize       int
	maxPageSize    int
	callbackSecret string
}

type leadInterface interface {
	Get(w http.ResponseWriter, r *http.Request)
	Set(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Upload(w http.ResponseWriter, r *http.Request)
	Call(w http.ResponseWriter, r *http.Request)
	CallOutcome(w http.ResponseWriter, r *http.Request)
}

func NewLead(conf *Config) leadInterface {
	return &lead{
		store:          conf.store,
		gate:           conf.gate,
		caller:         conf.caller,
		logger:         conf.logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		maxUploadSize:  conf.maxUploadSize,
		pageSize:       conf.pageSize,
		maxPageSize:    conf.maxPageSize,
		callbackSecret: conf.callbackSecret,
	}
}

// leadRequest is a lead entered by hand; it needs a name or an email like an uploaded row
type leadRequest struct {
	Name       string            `json:"name" validate:"required_without=Email,omitempty,max=200"`
	Email      string            `json:"email" validate:"required_without=Name,omitempty,email,max=320"`
	Phone      string            `json:"phone" validate:"omitempty,max=50"`
	Company    string            `json:"company" validate:"omitempty,max=200"`
	Position   string            `json:"position" validate:"omitempty,max=200"`
	Notes      string            `json:"notes" validate:"omitempty,max=2000"`
	CustomData map[string]string `json:"custom_data"`
}

type callOutcomeRequest struct {
	LeadID int32  `json:"lead_id" validate:"required,gt=0"`
	Status string `json:"status" validate:"required,oneof=new calling contacted qualified lost"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

func (l *lead) Get(w http.ResponseWriter, r *http.Request) {
	found, ok := l.ownedLead(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (l *lead) Set(w http.ResponseWriter, r *http.Request) {
	req := &leadRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON lead")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := l.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_LEAD", validationMessage(err))
		return
	}

	newLead := &store.Leads{
		UserID:     userIDFrom(r.Context()),
		Name:       req.Name,
		Email:      req.Email,
		Phone:      strings.TrimSpace(req.Phone),
		Company:    strings.TrimSpace(req.Company),
		Position:   strings.TrimSpace(req.Position),
		Notes:      strings.TrimSpace(req.Notes),
		Status:     store.LeadStatusNew,
		CustomData: store.CustomData(req.CustomData),
	}
	if newLead.Name == "" {
		newLead.Name = leadcsv.UnknownName
	}

	if err := l.store.SetLead(r.Context(), newLead); err != nil {
		loggerFrom(r.Context(), l.logger).WithError(err).Error("failed to create lead")
		writeError(w, http.StatusInternalServerError, "LEAD_NOT_SAVED", "failed to save lead")
		return
	}

	writeJSON(w, http.StatusCreated, newLead)
}

func (l *lead) List(w http.ResponseWriter, r *http.Request) {
	opts, err := l.pageOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error())
		return
	}

	leads, err := l.store.GetLeadsByUserID(r.Context(), userIDFrom(r.Context()), opts)
	if err != nil {
		loggerFrom(r.Context(), l.logger).WithError(err).Error("failed to list leads")
		writeError(w, http.StatusInternalServerError, "LEADS_UNAVAILABLE", "failed to load leads")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leads":  leads,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

func (l *lead) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, l.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(l.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "the file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "expected a multipart form with a file")
		return
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "expected a multipart form with a file")
		return
	}
	defer file.Close()

	if header.Size > l.maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "the file is too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "failed to read the file")
		return
	}

	res, err := l.gate.Upload(r.Context(), userIDFrom(r.Context()), header.Filename, header.Header.Get("Content-Type"), data)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, ingest.ErrInvalidFileType):
		writeError(w, http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", ingest.ErrInvalidFileType.Error())
	case errors.Is(err, ingest.ErrInvalidFormat):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_CSV_FORMAT", ingest.ErrInvalidFormat.Error())
	case errors.Is(err, ingest.ErrNoValidLeads):
		writeError(w, http.StatusUnprocessableEntity, "NO_VALID_LEADS", ingest.ErrNoValidLeads.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INGESTION_FAILED", ingest.ErrIngestion.Error())
	}
}

func (l *lead) Call(w http.ResponseWriter, r *http.Request) {
	found, ok := l.ownedLead(w, r)
	if !ok {
		return
	}
	log := loggerFrom(r.Context(), l.logger).WithField("lead_id", found.LeadID)

	err := l.caller.CallLead(r.Context(), found.UserID, found)
	if errors.Is(err, outreach.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "OUTREACH_DISABLED", "calling is not configured")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to request call")
		writeError(w, http.StatusBadGateway, "CALL_FAILED", "failed to start the call")
		return
	}

	updated, err := l.store.UpdateLeadCallOutcome(r.Context(), found.LeadID, store.LeadStatusCalling, found.Notes)
	if err != nil {
		// the call is already on its way; the callback will set the final status
		log.WithError(err).Warn("failed to mark lead as calling")
		updated = found
	}

	writeJSON(w, http.StatusAccepted, updated)
}

// CallOutcome is called by the workflow automation once a call has finished
func (l *lead) CallOutcome(w http.ResponseWriter, r *http.Request) {
	if l.callbackSecret != "" {
		got := r.Header.Get("X-Callback-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(l.callbackSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "WEBHOOK_UNAUTHORIZED", "invalid callback secret")
			return
		}
	}

	req := &callOutcomeRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON call outcome")
		return
	}
	if err := l.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_CALL_OUTCOME", validationMessage(err))
		return
	}

	updated, err := l.store.UpdateLeadCallOutcome(r.Context(), req.LeadID, req.Status, req.Notes)
	if errors.Is(err, store.ErrLeadNotFound) {
		writeError(w, http.StatusNotFound, "LEAD_NOT_FOUND", "lead not found")
		return
	}
	if err != nil {
		loggerFrom(r.Context(), l.logger).WithError(err).Error("failed to record call outcome")
		writeError(w, http.StatusInternalServerError, "CALL_OUTCOME_NOT_SAVED", "failed to record call outcome")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// ownedLead loads the {id} lead and writes a 404 unless it belongs to the caller
func (l *lead) ownedLead(w http.ResponseWriter, r *http.Request) (*store.Leads, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid lead id")
		return nil, false
	}

	found, err := l.store.GetLeadByID(r.Context(), int32(id))
	if errors.Is(err, store.ErrLeadNotFound) || (err == nil && found.UserID != userIDFrom(r.Context())) {
		writeError(w, http.StatusNotFound, "LEAD_NOT_FOUND", "lead not found")
		return nil, false
	}
	if err != nil {
		loggerFrom(r.Context(), l.logger).WithError(err).Error("failed to load lead")
		writeError(w, http.StatusInternalServerError, "LEADS_UNAVAILABLE", "failed to load lead")
		return nil, false
	}
	return found, true
}

func (l *lead) pageOptions(r *http.Request) (*storage.SelectOptions, error) {
	opts := &storage.SelectOptions{Limit: l.pageSize}

	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, errors.New("limit must be a positive number")
		}
		opts.Limit = min(limit, l.maxPageSize)
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return nil, errors.New("offset must not be negative")
		}
		opts.Offset = offset
	}
	return opts, nil
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}
