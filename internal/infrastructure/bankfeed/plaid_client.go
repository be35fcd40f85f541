package bankfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
)

// PlaidClient implements entitlement.BankLinkClient against the Plaid API
type PlaidClient struct {
	config     *PlaidConfig
	httpClient *http.Client
	logger     *zap.Logger

	// baseURLOverride points the client at a test server when set
	baseURLOverride string
}

// NewPlaidClient creates a new Plaid client
func NewPlaidClient(config *PlaidConfig, logger *zap.Logger) (*PlaidClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &PlaidClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// CreateLinkToken mints a short-lived token that initializes the link widget
func (c *PlaidClient) CreateLinkToken(ctx context.Context, accountRef string) (string, error) {
	req := linkTokenCreateRequest{
		plaidAuth:    c.auth(),
		ClientName:   "LedgerLink",
		Language:     "en",
		CountryCodes: []string{"US"},
		User:         linkTokenUser{ClientUserID: accountRef},
		Products:     []string{"transactions", "investments"},
		Webhook:      c.config.WebhookURL,
	}

	var resp linkTokenCreateResponse
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return "", err
	}

	c.logger.Debug("Created Plaid link token",
		zap.String("account_ref", accountRef),
		zap.String("request_id", resp.RequestID))
	return resp.LinkToken, nil
}

// ExchangePublicToken converts the widget's public token into a durable item.
// Plaid does not return the institution name on exchange, so a follow-up
// item lookup fills it in.
func (c *PlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (*entitlement.LinkedItem, error) {
	exchangeReq := itemPublicTokenExchangeRequest{
		plaidAuth:   c.auth(),
		PublicToken: publicToken,
	}

	var exchangeResp itemPublicTokenExchangeResponse
	if err := c.post(ctx, "/item/public_token/exchange", exchangeReq, &exchangeResp); err != nil {
		return nil, err
	}

	itemReq := itemGetRequest{
		plaidAuth:   c.auth(),
		AccessToken: exchangeResp.AccessToken,
	}

	var itemResp itemGetResponse
	if err := c.post(ctx, "/item/get", itemReq, &itemResp); err != nil {
		return nil, err
	}

	institution := itemResp.Item.InstitutionName
	if institution == "" {
		institution = itemResp.Item.InstitutionID
	}

	c.logger.Info("Exchanged Plaid public token",
		zap.String("item_id", exchangeResp.ItemID),
		zap.String("institution", institution))

	return &entitlement.LinkedItem{
		ItemID:          exchangeResp.ItemID,
		InstitutionName: institution,
		AccessToken:     exchangeResp.AccessToken,
	}, nil
}

// RemoveItem disconnects the item at Plaid
func (c *PlaidClient) RemoveItem(ctx context.Context, accessToken string) error {
	req := itemRemoveRequest{
		plaidAuth:   c.auth(),
		AccessToken: accessToken,
	}

	var resp itemRemoveResponse
	if err := c.post(ctx, "/item/remove", req, &resp); err != nil {
		return err
	}

	c.logger.Info("Removed Plaid item", zap.String("request_id", resp.RequestID))
	return nil
}

func (c *PlaidClient) auth() plaidAuth {
	return plaidAuth{
		ClientID: c.config.ClientID,
		Secret:   c.config.Secret,
	}
}

// post sends a JSON request to a Plaid endpoint and decodes the response
func (c *PlaidClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("plaid: failed to encode request: %w", err)
	}

	base := c.config.BaseURL()
	if c.baseURLOverride != "" {
		base = c.baseURLOverride
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("plaid: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Plaid request failed",
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("%w: %v", entitlement.ErrLinkProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", entitlement.ErrLinkProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.mapError(path, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("plaid: failed to decode response: %w", err)
	}
	return nil
}

// mapError translates Plaid's error envelope into the domain's link errors
func (c *PlaidClient) mapError(path string, status int, raw []byte) error {
	var plaidErr plaidErrorResponse
	if err := json.Unmarshal(raw, &plaidErr); err != nil {
		return fmt.Errorf("%w: http %d", entitlement.ErrLinkProviderUnavailable, status)
	}

	c.logger.Warn("Plaid returned an error",
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("error_type", plaidErr.ErrorType),
		zap.String("error_code", plaidErr.ErrorCode))

	switch plaidErr.ErrorCode {
	case "INVALID_PUBLIC_TOKEN":
		return fmt.Errorf("%w: %s", entitlement.ErrLinkInvalidPublicToken, plaidErr.ErrorMessage)
	case "ITEM_NOT_FOUND", "INVALID_ACCESS_TOKEN":
		return fmt.Errorf("%w: %s", entitlement.ErrLinkItemNotFound, plaidErr.ErrorMessage)
	default:
		return fmt.Errorf("%w: %s %s", entitlement.ErrLinkProviderUnavailable, plaidErr.ErrorCode, plaidErr.ErrorMessage)
	}
}
