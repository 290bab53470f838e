package poli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

const (
	defaultBaseURL   = "https://cs.poli.digital/api-cliente"
	defaultUserAgent = "olx-poli-relay/0.1"
	maxResponseBytes = 1 << 20

	maxErrorMessageBytes = 256
)

var clientTracer = otel.Tracer("olxrelay.internal.poli.client")

// Config controls how the Poli client behaves.
type Config struct {
	BaseURL    string
	APIToken   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
	// RateLimit caps outgoing requests per second. Zero disables it.
	RateLimit  float64
}

// Client wraps the Poli endpoints used by the lead workflow.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *retryablehttp.Client
	logger     *logging.Logger
	userAgent  string
}

var _ Workflow = (*Client)(nil)

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errors.New("poli: API token is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("poli: invalid base url: %w", err)
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiToken:   cfg.APIToken,
		baseURL:    baseURL,
		httpClient: newRetryClient(httpClient, maxRetries, backoff, newLimiter(cfg.RateLimit), logger),
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// CreateContact registers the lead as a Poli contact.
func (c *Client) CreateContact(ctx context.Context, req ContactRequest) (*Contact, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("poli: marshal contact: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/contatos", body)
	if err != nil {
		return nil, err
	}
	id, err := decodeID(data)
	if err != nil {
		return nil, fmt.Errorf("poli: decode contact: %w", err)
	}
	return &Contact{ID: id}, nil
}

// AssignOperator attaches the contact to the operator identified by userID.
func (c *Client) AssignOperator(ctx context.Context, contactID, userID string) error {
	if strings.TrimSpace(contactID) == "" || strings.TrimSpace(userID) == "" {
		return errors.New("poli: contact id and user id required")
	}
	body, err := json.Marshal(assignOperatorBody{UserID: userID})
	if err != nil {
		return fmt.Errorf("poli: marshal assignment: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPut, fmt.Sprintf("/chats/contato/%s/atendente", url.PathEscape(contactID)), body)
	return err
}

// OpenChat opens a chat with the contact and returns its id.
func (c *Client) OpenChat(ctx context.Context, contactID string) (*Chat, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, errors.New("poli: contact id required")
	}
	data, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/chats/contato/%s/abrir", url.PathEscape(contactID)), nil)
	if err != nil {
		return nil, err
	}
	id, err := decodeID(data)
	if err != nil {
		return nil, fmt.Errorf("poli: decode chat: %w", err)
	}
	return &Chat{ID: id}, nil
}

// SendTemplate posts a template message into an open chat.
func (c *Client) SendTemplate(ctx context.Context, chatID string, req TemplateRequest) error {
	if strings.TrimSpace(chatID) == "" {
		return errors.New("poli: chat id required")
	}
	if err := req.validate(); err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("poli: marshal template: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, fmt.Sprintf("/chats/%s/template", url.PathEscape(chatID)), body)
	return err
}

func (c *Client) invoke(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	ctx, span := clientTracer.Start(ctx, "poli.http "+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("poli.path", path),
	)

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := retryablehttp.NewRequestWithContext(ctx, method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("poli: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			span.RecordError(ctx.Err())
			return nil, ctx.Err()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "http error")
		return nil, fmt.Errorf("poli: http error: %w", err)
	}
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if readErr != nil {
		return nil, fmt.Errorf("poli: read response: %w", readErr)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	apiErr := decodeAPIError(resp.StatusCode, data)
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Error())
	return nil, apiErr
}

// newRetryClient wraps hc in retryablehttp. Exhausted retries hand back the
// last response so non-2xx answers still decode into an APIError.
func newRetryClient(hc *http.Client, maxRetries int, backoff time.Duration, limiter *rate.Limiter, logger *logging.Logger) *retryablehttp.Client {
	if limiter != nil {
		limited := *hc
		limited.Transport = &limitedTransport{base: hc.Transport, limiter: limiter}
		hc = &limited
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = hc
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = backoff
	rc.RetryWaitMax = backoff * 8
	rc.Logger = nil // retries are logged through RequestLogHook
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("poli retry", "method", req.Method, "path", req.URL.Path, "attempt", attempt)
		}
	}
	return rc
}

// checkRetry retries transport timeouts, 429 and 5xx. Every other failure,
// including the rest of 4xx, is final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		var netErr net.Error
		return errors.As(err, &netErr) && netErr.Timeout(), nil
	}
	return retryableStatus(resp.StatusCode), nil
}

func retryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

// limitedTransport spaces every attempt, retries included.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("poli: rate limit wait: %w", err)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// APIError is a non-2xx answer from Poli.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("poli: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("poli: http status %d", e.StatusCode)
}

// Temporary reports whether retrying the same call could succeed.
func (e *APIError) Temporary() bool {
	return retryableStatus(e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			msg = parsed.Message
		case parsed.Error != "":
			msg = parsed.Error
		}
	}
	return &APIError{StatusCode: status, Message: truncateMessage(msg, maxErrorMessageBytes)}
}

// truncateMessage cuts msg to at most limit bytes without splitting a rune.
func truncateMessage(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
