package client

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const maxResponseBytes = 1 << 20

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the API rooted at baseURL, for example
// "http://127.0.0.1:3000" or "https://auth.example.com/api/auth".
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q is not absolute", baseURL)
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type refreshTokenBody struct {
	RefreshToken string `json:"refreshToken"`
}

type signupReply struct {
	User models.UserPublic `json:"user"`
}

type loginReply struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         models.UserPublic `json:"user"`
}

type refreshReply struct {
	AccessToken string `json:"accessToken"`
}

type errorReply struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *HTTPClient) Signup(ctx context.Context, email string, password []byte, name string) (*models.UserPublic, error) {
	var reply signupReply
	body := credentials{Email: email, Password: string(password), Name: name}
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &reply); err != nil {
		return nil, err
	}
	return &reply.User, nil
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*Tokens, *models.UserPublic, error) {
	var reply loginReply
	body := credentials{Email: email, Password: string(password)}
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &reply); err != nil {
		return nil, nil, err
	}
	return &Tokens{AccessToken: reply.AccessToken, RefreshToken: reply.RefreshToken}, &reply.User, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var reply refreshReply
	if err := c.do(ctx, http.MethodPost, "/refresh", "", refreshTokenBody{RefreshToken: refreshToken}, &reply); err != nil {
		return "", err
	}
	return reply.AccessToken, nil
}

func (c *HTTPClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, refreshTokenBody{RefreshToken: refreshToken}, nil)
}

// Ping hits /health, which the server always mounts at the root.
func (c *HTTPClient) Ping(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return c.send(req, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.send(req, out)
}

func (c *HTTPClient) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e errorReply
		_ = json.Unmarshal(body, &e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
