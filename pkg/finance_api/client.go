package finance_api

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

	"github.com/fintrack/fintrack/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const IdempotencyKeyHeader = "Idempotency-Key"

var ErrUnexpectedStatus = errors.New("finance API returned unexpected status")

// Client creates the resources of a finished onboarding on the finance backend. Every call
// carries an idempotency key so the backend can drop replays.
type Client interface {
	UpdateUser(ctx context.Context, userId string, update UserUpdate, idempotencyKey string) error // PUT /api/user/{userId}
	CreateBankAccount(ctx context.Context, account BankAccount, idempotencyKey string) error       // POST /api/bank-accounts
	CreateCard(ctx context.Context, card Card, idempotencyKey string) error                        // POST /api/cards
	CreateBudget(ctx context.Context, budget Budget, idempotencyKey string) error                  // POST /api/budgets
}

type ClientImpl struct {
	baseUrl    string
	httpClient *http.Client
}

// NewClient builds a client for cfg. When a client id is configured, requests are authorized with
// an OAuth2 client-credentials token fetched from cfg.TokenUrl.
func NewClient(cfg config.FinanceApi) *ClientImpl {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.ClientId != "" {
		oauthConfig := clientcredentials.Config{
			ClientID:     cfg.ClientId,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenUrl,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		httpClient = oauthConfig.Client(ctx)
		httpClient.Timeout = cfg.Timeout
		log.Debugf("finance API client uses client credentials of %s", cfg.ClientId)
	}
	return &ClientImpl{
		baseUrl:    strings.TrimRight(cfg.BaseUrl, "/"),
		httpClient: httpClient,
	}
}

func (c *ClientImpl) UpdateUser(ctx context.Context, userId string, update UserUpdate, idempotencyKey string) error {
	return c.send(ctx, http.MethodPut, "/api/user/"+url.PathEscape(userId), update, idempotencyKey)
}

func (c *ClientImpl) CreateBankAccount(ctx context.Context, account BankAccount, idempotencyKey string) error {
	return c.send(ctx, http.MethodPost, "/api/bank-accounts", account, idempotencyKey)
}

func (c *ClientImpl) CreateCard(ctx context.Context, card Card, idempotencyKey string) error {
	return c.send(ctx, http.MethodPost, "/api/cards", card, idempotencyKey)
}

func (c *ClientImpl) CreateBudget(ctx context.Context, budget Budget, idempotencyKey string) error {
	return c.send(ctx, http.MethodPost, "/api/budgets", budget, idempotencyKey)
}

func (c *ClientImpl) send(ctx context.Context, method, path string, body any, idempotencyKey string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, bytes.NewReader(payload))
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idempotencyKey)
	}

	log.Debugf("Calling finance API %s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request %s %s: %v", method, path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode,
			strings.TrimSpace(string(detail)))
		log.Error(err)
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
