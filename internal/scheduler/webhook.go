package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/internal/httpclient"
)

const webhookTimeout = 10 * time.Second

type handoverPayload struct {
	FamilyID    string `json:"family_id"`
	Date        string `json:"date"`
	From        string `json:"from"`
	FromName    string `json:"from_name"`
	To          string `json:"to"`
	ToName      string `json:"to_name"`
	IsException bool   `json:"is_exception"`
}

// WebhookNotifier posts handover reminders as JSON to an external endpoint
type WebhookNotifier struct {
	client *httpclient.Client
	names  map[custody.Parent]string
}

// NewWebhookNotifier creates a notifier for endpoint. A non-empty token is
// sent as a bearer token.
func NewWebhookNotifier(endpoint, token string, names map[custody.Parent]string, logger logrus.FieldLogger) (*WebhookNotifier, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook URL %q: scheme must be http or https", endpoint)
	}

	httpClient := &http.Client{
		Timeout:   webhookTimeout,
		Transport: httpclient.NewBearerAuthTransport(token, nil, logger),
	}
	client, err := httpclient.New(httpClient, *u, logger)
	if err != nil {
		return nil, err
	}
	return &WebhookNotifier{client: client, names: names}, nil
}

func (n *WebhookNotifier) name(p custody.Parent) string {
	if name, ok := n.names[p]; ok && name != "" {
		return name
	}
	return string(p)
}

func (n *WebhookNotifier) NotifyHandover(ctx context.Context, familyID uuid.UUID, h custody.Handover) error {
	return n.client.PostJSON(ctx, "", handoverPayload{
		FamilyID:    familyID.String(),
		Date:        dateutil.FormatDate(h.Date),
		From:        string(h.From),
		FromName:    n.name(h.From),
		To:          string(h.To),
		ToName:      n.name(h.To),
		IsException: h.IsException,
	})
}

// MultiNotifier fans a reminder out to several notifiers and returns the first error
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyHandover(ctx context.Context, familyID uuid.UUID, h custody.Handover) error {
	var first error
	for _, n := range m {
		if err := n.NotifyHandover(ctx, familyID, h); err != nil && first == nil {
			first = err
		}
	}
	return first
}
