package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hugh/inkpress/internal/roles"
)

const (
	loginPath      = "/api/auth/local"
	registerPath   = "/api/auth/local/register"
	logoutPath     = "/api/auth/logout"
	tenantMePath   = "/api/tenant/users/me"
	defaultTimeout = 10 * time.Second
)

// Identity is the user view returned by the auth and "me" endpoints.
type Identity struct {
	ID        uint    `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Provider  string  `json:"provider,omitempty"`
	Confirmed bool    `json:"confirmed"`
	Role      *Role   `json:"role,omitempty"`
	Tenant    *Tenant `json:"tenant,omitempty"`
}

// RoleName is "" when the identity carries no role.
func (i *Identity) RoleName() string {
	if i == nil || i.Role == nil {
		return ""
	}
	return i.Role.Name
}

type Role struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type Tenant struct {
	ID            uint           `json:"id"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description,omitempty"`
	ThemeSettings map[string]any `json:"theme_settings,omitempty"`
}

// APIError is a non-2xx answer from the API, decoded from its error envelope
// when possible.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Name, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

type authResponse struct {
	JWT    string    `json:"jwt"`
	User   *Identity `json:"user"`
	Role   *string   `json:"role"`
	Tenant *Tenant   `json:"tenant"`
}

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	TenantName string `json:"tenantName,omitempty"`
}

// Client talks to the inkpress API and keeps the session store in step with
// login, registration and logout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	store      Store
}

func NewClient(baseURL string, store Store) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
	}
}

func (c *Client) Store() Store {
	return c.store
}

// Login exchanges credentials for a token and stores the session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var resp authResponse
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.do(ctx, http.MethodPost, loginPath, "", body, &resp); err != nil {
		return nil, err
	}
	return c.saveSession(&resp)
}

// Register creates an account and stores the session for it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, registerPath, "", req, &resp); err != nil {
		return nil, err
	}
	return c.saveSession(&resp)
}

func (c *Client) saveSession(resp *authResponse) (*Session, error) {
	if resp.JWT == "" || resp.User == nil {
		return nil, fmt.Errorf("auth response is missing the token or user")
	}

	role := resp.User.RoleName()
	if resp.Role != nil {
		role = *resp.Role
	}
	if resp.User.Tenant == nil {
		resp.User.Tenant = resp.Tenant
	}

	s := &Session{JWT: resp.JWT, User: resp.User, Role: role}
	if err := c.store.Save(s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Logout tells the server to drop its cookie and always clears the local
// session, even when the server is unreachable.
func (c *Client) Logout(ctx context.Context) error {
	var token string
	if s, err := c.store.Load(); err == nil && s != nil {
		token = s.JWT
	}

	callErr := c.do(ctx, http.MethodPost, logoutPath, token, nil, nil)
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return callErr
}

// TenantMe fetches the Tenant Admin identity bound to token.
func (c *Client) TenantMe(ctx context.Context, token string) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, tenantMePath, token, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(data, &env) == nil {
			apiErr.Name = env.Error.Name
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// DashboardPath is where a freshly logged-in user is sent.
func DashboardPath(role string) string {
	switch role {
	case roles.TenantAdmin.Name():
		return "/dashboard/tenant-admin"
	case roles.Contributor.Name():
		return "/dashboard/contributor"
	default:
		return "/"
	}
}
