// Package txsource fetches raw transactions from the upstream inventory service.
package txsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	xhttp "StockSense/pkg/http"
	"StockSense/pkg/logger"
)

const (
	opLogin = "login"
	opFetch = "fetch"
)

// Config locates the upstream endpoints.
type Config struct {
	BaseURL          string
	LoginPath        string
	TransactionsPath string
	Sort             string
	Timeout          time.Duration
	MaxBodyBytes     int64
}

// Client implements TransactionSource over HTTP.
type Client struct {
	cfg  Config
	http *xhttp.Client
	log  *logger.Logger
}

var _ drepo.TransactionSource = (*Client)(nil)

// New creates a transaction source client.
func New(cfg Config, log *logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithMaxBodyBytes(cfg.MaxBodyBytes)),
		log:  log,
	}
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// FetchTransactions resolves cred to a bearer token and downloads the raw
// transaction list.
func (c *Client) FetchTransactions(ctx context.Context, cred drepo.Credential) (json.RawMessage, error) {
	token, err := c.token(ctx, cred)
	if err != nil {
		return nil, err
	}

	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.url(c.cfg.TransactionsPath),
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
		},
	}
	if c.cfg.Sort != "" {
		opts.QueryParams = map[string][]string{"sort": {c.cfg.Sort}}
	}

	start := time.Now()
	var body []byte
	if err := c.http.SendAndParse(ctx, opts, &body); err != nil {
		return nil, collaboratorError(opFetch, err)
	}
	c.log.Debug("transactions fetched",
		logger.String("credential", cred.Kind()),
		logger.Int("bytes", len(body)),
		logger.Duration("latency_ms", time.Since(start)),
	)
	return json.RawMessage(body), nil
}

func (c *Client) token(ctx context.Context, cred drepo.Credential) (string, error) {
	switch v := cred.(type) {
	case nil:
		return "", models.ErrNoCredential
	case BearerToken:
		return v.token, nil
	case PasswordLogin:
		return c.login(ctx, v)
	default:
		return "", fmt.Errorf("unsupported credential kind %q", cred.Kind())
	}
}

func (c *Client) login(ctx context.Context, p PasswordLogin) (string, error) {
	var resp loginResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url(c.cfg.LoginPath),
		Headers: map[string]string{
			"Accept": "application/json",
		},
		Body: map[string]string{"username": p.username, "password": p.password},
	}, &resp)
	if err != nil {
		return "", collaboratorError(opLogin, err)
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return "", &models.CollaboratorError{Op: opLogin, Err: errors.New("login response carried no token")}
	}
	c.log.Debug("upstream login succeeded", logger.String("username", p.username))
	return token, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func collaboratorError(op string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return &models.CollaboratorError{Op: op, Status: se.Status, Err: err}
	}
	return &models.CollaboratorError{Op: op, Err: err}
}
