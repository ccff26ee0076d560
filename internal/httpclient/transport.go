package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/internal/logger"
)

// BearerAuthTransport implements http.RoundTripper and adds a bearer token
// to outgoing requests.
type BearerAuthTransport struct {
	Token     string
	Transport http.RoundTripper
	Logger    logrus.FieldLogger
}

// NewBearerAuthTransport creates a new BearerAuthTransport with the given
// token and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBearerAuthTransport(token string, transport http.RoundTripper, log logrus.FieldLogger) *BearerAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if log == nil {
		log = logger.Discard()
	}
	return &BearerAuthTransport{
		Token:     token,
		Transport: transport,
		Logger:    log,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds the token to
// the request and delegates to the underlying transport.
func (t *BearerAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	reqBody := ""
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err == nil {
			reqBody = string(bodyBytes)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Reset the body
		}
	}

	t.Logger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
		"body":   reqBody,
	}).Debug("outgoing request")

	// RoundTrip must not modify the caller's request
	req = req.Clone(req.Context())
	if reqBody != "" {
		req.Body = io.NopCloser(bytes.NewBufferString(reqBody))
	}
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	resp, err := t.Transport.RoundTrip(req)
	if err == nil && resp != nil {
		t.Logger.WithField("status", resp.Status).Debug("incoming response")
	}

	return resp, err
}
