// Package httpclient posts JSON payloads to an external HTTP endpoint.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Client wraps http.Client with a base URL and request logging
type Client struct {
	client  *http.Client
	baseURL url.URL
	logger  logrus.FieldLogger
}

// New creates a client that resolves request paths against baseURL
func New(client *http.Client, baseURL url.URL, logger logrus.FieldLogger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client, baseURL: baseURL, logger: logger}, nil
}

// resolveURL resolves a URL string against the base URL
func (c *Client) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// PostJSON sends payload as a JSON POST body. Any status outside 2xx is an error.
func (c *Client) PostJSON(ctx context.Context, urlStr string, payload any) error {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolvedURL.String(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("request failed")
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"url":         resolvedURL.String(),
		}).Debug("unexpected status code")
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{"url": resolvedURL.String(), "status": resp.Status}).Debug("POST request complete")
	return nil
}
