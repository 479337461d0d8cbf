package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/alexanderramin/entsync/internal/domain"
)

// errCodeNotFound is the Graph error code for an absent user resource.
const errCodeNotFound = "Request_ResourceNotFound"

// Config holds connection settings for the Microsoft Graph API.
type Config struct {
	// BaseURL is the Graph host, e.g. https://graph.microsoft.com.
	BaseURL string
	// OAuthEndpoint is the login host used for the client-credentials
	// token exchange, e.g. https://login.microsoftonline.com.
	OAuthEndpoint string
	TenantID      string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
	MaxRetries    int
	// RequestsPerSecond paces calls; zero disables pacing.
	RequestsPerSecond float64
	// DryRun turns DeleteIdentity into a logged no-op.
	DryRun bool

	// HTTPClient overrides the OAuth-authenticated client. Tests inject a
	// plain client pointed at a local server.
	HTTPClient *http.Client
}

type client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Directory backed by Microsoft Graph. The returned
// client authenticates with the client-credentials grant; tokens are
// acquired lazily and refreshed automatically.
func NewClient(cfg Config, logger *slog.Logger) Directory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", cfg.OAuthEndpoint, cfg.TenantID),
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		}
		httpClient = cc.Client(context.Background())
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Second
	}
	httpClient.Timeout = cfg.Timeout

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// graphUser mirrors the Graph user resource fields this system selects.
type graphUser struct {
	ID                string     `json:"id"`
	AccountEnabled    *bool      `json:"accountEnabled"`
	DeletedDateTime   *time.Time `json:"deletedDateTime"`
	UserPrincipalName string     `json:"userPrincipalName"`
	CreatedDateTime   *time.Time `json:"createdDateTime"`
	SignInActivity    *struct {
		LastSignInDateTime *time.Time `json:"lastSignInDateTime"`
	} `json:"signInActivity"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) GetIdentity(ctx context.Context, principalName string) (domain.IdentityVerdict, error) {
	// The beta endpoint is required: v1.0 does not expose signInActivity.
	resource := fmt.Sprintf("%s/beta/users/%s?$select=id,accountEnabled,deletedDateTime,userPrincipalName,signInActivity,createdDateTime",
		c.cfg.BaseURL, url.PathEscape(principalName))

	status, body, err := c.do(ctx, http.MethodGet, resource)
	if err != nil {
		return domain.IdentityVerdict{}, err
	}

	var user graphUser
	if len(body) > 0 {
		if err := json.Unmarshal(body, &user); err != nil {
			return domain.IdentityVerdict{}, fmt.Errorf("decoding graph user %q: %w", principalName, err)
		}
	}

	if user.Error != nil && user.Error.Code == errCodeNotFound {
		return domain.IdentityVerdict{PrincipalName: principalName}, nil
	}
	if status >= 300 {
		return domain.IdentityVerdict{}, fmt.Errorf("graph: users/%s returned status %d: %s", principalName, status, string(body))
	}

	verdict := domain.IdentityVerdict{
		PrincipalName: principalName,
		Found:         true,
		Enabled:       user.AccountEnabled == nil || *user.AccountEnabled,
		DeletedAt:     user.DeletedDateTime,
		CreatedAt:     user.CreatedDateTime,
	}
	if user.SignInActivity != nil {
		verdict.LastSignIn = user.SignInActivity.LastSignInDateTime
	}
	return verdict, nil
}

func (c *client) DeleteIdentity(ctx context.Context, principalName string) error {
	if c.cfg.DryRun {
		c.logger.Info("dry run, skipping identity deletion", "principal_name", principalName)
		return nil
	}
	resource := fmt.Sprintf("%s/v1.0/users/%s", c.cfg.BaseURL, url.PathEscape(principalName))
	status, body, err := c.do(ctx, http.MethodDelete, resource)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrIdentityNotFound, principalName)
	case status >= 300:
		return fmt.Errorf("graph: deleting users/%s returned status %d: %s", principalName, status, string(body))
	}
	return nil
}

// do performs one request and returns the status and body. Transport
// failures and 5xx responses are retried; everything else is returned to
// the caller for interpretation (Graph reports an absent user through the
// error code in the body, which is not a failure here).
func (c *client) do(ctx context.Context, method, resource string) (int, []byte, error) {
	var lastErr error
	attempts := 1 + c.cfg.MaxRetries
	for i := 0; i < attempts; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
		status, body, err := c.doOnce(ctx, method, resource)
		if err == nil && status < 500 {
			return status, body, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("graph: %s returned status %d", resource, status)
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return 0, nil, fmt.Errorf("graph call failed after %d attempts: %w", attempts, lastErr)
}

func (c *client) doOnce(ctx context.Context, method, resource string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, resource, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}
