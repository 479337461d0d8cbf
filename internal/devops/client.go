package devops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/alexanderramin/entsync/internal/domain"
)

// Config holds connection settings for the Azure DevOps entitlement APIs.
type Config struct {
	// BaseURL is the user-entitlement API host, e.g.
	// https://vsaex.dev.azure.com. The organization name is appended.
	BaseURL      string
	Organization string
	// PersonalAccessToken needs project collection administrator rights.
	PersonalAccessToken string
	Timeout             time.Duration
	MaxRetries          int
	// RequestsPerSecond paces calls across a large organization. Zero
	// disables pacing.
	RequestsPerSecond float64
	// DryRun turns every mutating call into a logged no-op.
	DryRun bool
}

type client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Connection backed by the Azure DevOps REST APIs.
func NewClient(cfg Config, logger *slog.Logger) Connection {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 100 * time.Second
	}
	return &client{
		cfg:     cfg,
		baseURL: fmt.Sprintf("%s/%s", cfg.BaseURL, cfg.Organization),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

type groupEntitlementList struct {
	Count int                       `json:"count"`
	Value []domain.GroupEntitlement `json:"value"`
}

type userEntitlementList struct {
	Count int                        `json:"count"`
	Value []domain.EntitlementRecord `json:"value"`
}

func (c *client) ListGroupEntitlements(ctx context.Context) ([]domain.GroupEntitlement, error) {
	var out groupEntitlementList
	if err := c.do(ctx, http.MethodGet, "_apis/groupentitlements?api-version=6.0-preview.1", nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *client) CreateGroupEntitlement(ctx context.Context, ge domain.GroupEntitlement) (domain.GroupEntitlement, error) {
	resource := "_apis/groupentitlements?api-version=6.1-preview.1"
	if c.cfg.DryRun {
		c.logIntent("create group entitlement", "group", ge.Group.DisplayName)
		return ge, nil
	}
	var out domain.GroupEntitlement
	if err := c.do(ctx, http.MethodPost, resource, ge, &out); err != nil {
		return domain.GroupEntitlement{}, err
	}
	return out, nil
}

func (c *client) ListUserEntitlements(ctx context.Context) ([]domain.EntitlementRecord, error) {
	// The old API version is deliberate: newer versions drop support for
	// top with continuation tokens.
	var out userEntitlementList
	if err := c.do(ctx, http.MethodGet, "_apis/userentitlements?api-version=4.1-preview.1&top=10000&select=Grouprules", nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *client) GetUserEntitlement(ctx context.Context, userID string) (domain.EntitlementRecord, error) {
	var out domain.EntitlementRecord
	resource := fmt.Sprintf("_apis/userentitlements/%s?api-version=6.1-preview.3", userID)
	if err := c.do(ctx, http.MethodGet, resource, nil, &out); err != nil {
		return domain.EntitlementRecord{}, err
	}
	return out, nil
}

func (c *client) AddGroupMember(ctx context.Context, groupID, userID string) error {
	resource := fmt.Sprintf("_apis/GroupEntitlements/%s/members/%s?api-version=6.0-preview.1", groupID, userID)
	if c.cfg.DryRun {
		c.logIntent("add group member", "group_id", groupID, "user_id", userID)
		return nil
	}
	return c.do(ctx, http.MethodPut, resource, nil, nil)
}

func (c *client) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	resource := fmt.Sprintf("_apis/GroupEntitlements/%s/members/%s?api-version=6.0-preview.1", groupID, userID)
	if c.cfg.DryRun {
		c.logIntent("remove group member", "group_id", groupID, "user_id", userID)
		return nil
	}
	return c.do(ctx, http.MethodDelete, resource, nil, nil)
}

func (c *client) RemoveDirectAssignment(ctx context.Context, userID string) error {
	resource := "_apis/MEMInternal/RemoveExplicitAssignment?ruleOption=0&api-version=5.0-preview.1"
	if c.cfg.DryRun {
		c.logIntent("remove direct assignment", "user_id", userID)
		return nil
	}
	return c.do(ctx, http.MethodPost, resource, []string{userID}, nil)
}

func (c *client) DeleteUserEntitlement(ctx context.Context, userID string) error {
	resource := fmt.Sprintf("_apis/userentitlements/%s?api-version=6.1-preview.3", userID)
	if c.cfg.DryRun {
		c.logIntent("delete user entitlement", "user_id", userID)
		return nil
	}
	return c.do(ctx, http.MethodDelete, resource, nil, nil)
}

func (c *client) TriggerRuleReevaluation(ctx context.Context) error {
	// Undocumented API; the portal uses it after entitlement edits.
	resource := "_apis/MEMInternal/GroupEntitlementUserApplication?ruleOption=0&api-version=5.0-preview.1"
	if c.cfg.DryRun {
		c.logIntent("trigger rule re-evaluation")
		return nil
	}
	return c.do(ctx, http.MethodPost, resource, nil, nil)
}

func (c *client) logIntent(op string, attrs ...any) {
	c.logger.Info("dry run, skipping "+op, attrs...)
}

// do performs one JSON call against the organization, retrying transient
// failures. 404 maps to ErrNotFound without retrying.
func (c *client) do(ctx context.Context, method, resource string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries
	for i := 0; i < attempts; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		lastErr = c.doOnce(ctx, method, resource, payload, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

func (c *client) doOnce(ctx context.Context, method, resource string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+resource, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+basicPAT(c.cfg.PersonalAccessToken))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resource)
	case resp.StatusCode >= 300:
		return &RemoteError{Resource: resource, Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", resource, err)
		}
	}
	return nil
}

// basicPAT encodes a personal access token the way the entitlement APIs
// expect it: basic auth with a fixed PAT username.
func basicPAT(token string) string {
	return base64.StdEncoding.EncodeToString([]byte("PAT:" + token))
}

// retryable reports whether a call is worth repeating: server-side and
// transport failures are, not-found and malformed responses are not.
func retryable(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Status >= 500 || remote.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
