// Package courier is an HTTP client for the Courier broker REST API.
package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "http://0.0.0.0:3140"
	DefaultPrefix  = "api/v0"
	DefaultTimeout = 10 * time.Second
)

// Client talks to one broker. It is safe for concurrent use.
type Client struct {
	base   string
	prefix string
	http   *http.Client
	log    logrus.FieldLogger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPrefix sets the API path prefix (default "api/v0").
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = strings.Trim(prefix, "/")
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the broker at baseURL. An empty baseURL means
// DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url: missing host in %q", baseURL)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		base:   strings.TrimRight(u.String(), "/"),
		prefix: DefaultPrefix,
		http:   &http.Client{Timeout: DefaultTimeout},
		log:    discard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the broker root the client was created with.
func (c *Client) BaseURL() string {
	return c.base
}

// URL builds the absolute URL for an API path. Each part is path-escaped; a
// trailing empty part yields a trailing slash.
func (c *Client) URL(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u := c.base
	if c.prefix != "" {
		u += "/" + c.prefix
	}
	return u + "/" + strings.Join(escaped, "/")
}

// Heartbeat checks that the broker is up.
func (c *Client) Heartbeat(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, c.URL("heartbeat"), nil)
	return err
}

// Metrics returns the raw metrics document. The body is only checked for
// being well-formed JSON; field validation belongs to the reconciler.
func (c *Client) Metrics(ctx context.Context) ([]byte, error) {
	u := c.URL("metrics")
	body, err := c.send(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &DecodeError{URL: u, Err: errors.New("body is not valid JSON")}
	}
	return body, nil
}

// CreateTopic creates a topic named name.
func (c *Client) CreateTopic(ctx context.Context, name string, cfg TopicConfig) (*Topic, error) {
	topic := &Topic{}
	if err := c.do(ctx, http.MethodPut, c.URL("topics", name), cfg, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

// DeleteTopic deletes a topic. Its subscriptions become orphaned.
func (c *Client) DeleteTopic(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, c.URL("topics", name), nil, nil)
}

// ListTopics lists every topic.
func (c *Client) ListTopics(ctx context.Context) ([]Topic, error) {
	list := &topicList{}
	if err := c.do(ctx, http.MethodGet, c.URL("topics", ""), nil, list); err != nil {
		return nil, err
	}
	return list.Topics, nil
}

// CreateSubscription creates a subscription named name.
func (c *Client) CreateSubscription(ctx context.Context, name string, cfg SubscriptionConfig) (*Subscription, error) {
	sub := &Subscription{}
	if err := c.do(ctx, http.MethodPut, c.URL("subscriptions", name), cfg, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubscription deletes a subscription.
func (c *Client) DeleteSubscription(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, c.URL("subscriptions", name), nil, nil)
}

// ListSubscriptions lists every subscription.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	list := &subscriptionList{}
	if err := c.do(ctx, http.MethodGet, c.URL("subscriptions", ""), nil, list); err != nil {
		return nil, err
	}
	return list.Subscriptions, nil
}

// Publish publishes one message per data element and returns the new ids.
func (c *Client) Publish(ctx context.Context, topic string, data ...string) ([]string, error) {
	req := rawMessageList{RawMessages: make([]rawMessage, 0, len(data))}
	for _, d := range data {
		req.RawMessages = append(req.RawMessages, rawMessage{Data: d})
	}
	ids := &messageIDList{}
	if err := c.do(ctx, http.MethodPost, c.URL("topics", topic, "publish"), req, ids); err != nil {
		return nil, err
	}
	return ids.MessageIDs, nil
}

// Pull fetches up to maxMessages messages from a subscription.
func (c *Client) Pull(ctx context.Context, subscription string, maxMessages uint) ([]Message, error) {
	list := &messageList{}
	if err := c.do(ctx, http.MethodPost, c.URL("subscriptions", subscription, "pull"), pullConfig{MaxMessages: maxMessages}, list); err != nil {
		return nil, err
	}
	return list.Messages, nil
}

// Ack acknowledges messages and returns the ids the broker accepted.
func (c *Client) Ack(ctx context.Context, subscription string, ids ...string) ([]string, error) {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
		}
	}
	acked := &messageIDList{}
	if err := c.do(ctx, http.MethodPost, c.URL("subscriptions", subscription, "ack"), messageIDList{MessageIDs: ids}, acked); err != nil {
		return nil, err
	}
	return acked.MessageIDs, nil
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	resp, err := c.send(ctx, method, u, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return &DecodeError{URL: u, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, u string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: u, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": method, "url": u}).WithError(err).Debug("request failed")
		return nil, &TransportError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: u, Err: err}
	}

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"url":      u,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: u, Body: string(data)}
	}
	return data, nil
}
