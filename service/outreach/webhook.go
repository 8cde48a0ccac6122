package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/osr-alliance/backend-lead-intake/service/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ActionCallLead asks the workflow automation to place an AI voice call to the lead
const ActionCallLead = "call_lead"

var ErrNotConfigured = errors.New("outreach webhook URL is not configured")

// Envelope is the JSON body posted to the workflow automation webhook
type Envelope struct {
	Action    string       `json:"action"`
	Lead      *store.Leads `json:"lead"`
	Timestamp time.Time    `json:"timestamp"`
	UserID    int32        `json:"user_id"`
}

type Caller interface {
	CallLead(ctx context.Context, userID int32, lead *store.Leads) error
}

type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client // optional
	Logger     *logrus.Logger
	Now        func() time.Time // optional
}

type Client struct {
	url    string
	http   *http.Client
	logger *logrus.Entry
	now    func() time.Time
}

func New(conf *Config) *Client {
	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: conf.Timeout}
	}
	logger := conf.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := conf.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		url:    conf.URL,
		http:   httpClient,
		logger: logger.WithField("component", "outreach"),
		now:    now,
	}
}

// CallLead posts the lead to the webhook. Only the response status is looked at.
func (c *Client) CallLead(ctx context.Context, userID int32, lead *store.Leads) error {
	if c.url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(&Envelope{
		Action:    ActionCallLead,
		Lead:      lead,
		Timestamp: c.now().UTC(),
		UserID:    userID,
	})
	if err != nil {
		return errors.Wrap(err, "encoding outreach envelope")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building outreach request")
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	log := c.logger.WithFields(logrus.Fields{
		"request-id": requestID,
		"lead_id":    lead.LeadID,
		"user_id":    userID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("outreach webhook request failed")
		return errors.Wrap(err, "posting to outreach webhook")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status-code", resp.StatusCode).Error("outreach webhook rejected the call")
		return errors.Errorf("outreach webhook returned %d", resp.StatusCode)
	}

	log.Info("outreach call requested")
	return nil
}
