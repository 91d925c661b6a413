// Package account talks to the game server's HTTP auth endpoints and
// produces the bearer token the websocket channel presents on every
// physical connection.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrTokenInvalid = errors.New("token rejected by server")
)

// Session is an authenticated identity. Claims are read from the token's
// payload segment without signature verification; the server is the
// verifier, the client only needs the display fields.
type Session struct {
	Token    string
	UserID   string
	Username string
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type tokenClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		timeout: 10 * time.Second,
	}
}

// Signup registers a new account and returns its authenticated session.
func (c *Client) Signup(ctx context.Context, username, password string) (Session, error) {
	return c.obtainToken(ctx, "/api/signup", username, password)
}

// Login exchanges credentials for an authenticated session.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	return c.obtainToken(ctx, "/api/login", username, password)
}

// Verify checks a stored token against the server.
func (c *Client) Verify(ctx context.Context, token string) error {
	status, _, err := c.post(ctx, "/api/verify", nil, token)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: status=%d", ErrTokenInvalid, status)
	}
	return nil
}

func (c *Client) obtainToken(ctx context.Context, path, username, password string) (Session, error) {
	body, err := json.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return Session{}, fmt.Errorf("marshal credentials: %w", err)
	}
	status, respBody, err := c.post(ctx, path, body, "")
	if err != nil {
		return Session{}, err
	}
	if status < 200 || status >= 300 {
		return Session{}, fmt.Errorf("%w: status=%d", ErrAuthFailed, status)
	}
	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return Session{}, fmt.Errorf("decode token response: %w", err)
	}
	if strings.TrimSpace(tok.Token) == "" {
		return Session{}, fmt.Errorf("%w: empty token", ErrAuthFailed)
	}
	sess := Session{Token: tok.Token, Username: username}
	if claims, err := decodeClaims(tok.Token); err == nil {
		sess.UserID = claims.UserID
		if claims.Username != "" {
			sess.Username = claims.Username
		}
	}
	return sess, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, bearer string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}

// decodeClaims parses the token's claims without verifying the
// signature; the server is the verifier, the client only needs the
// display fields.
func decodeClaims(token string) (tokenClaims, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return tokenClaims{}, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
