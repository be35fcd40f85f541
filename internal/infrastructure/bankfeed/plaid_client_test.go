package bankfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
)

// newTestClient points a PlaidClient at a local test server
func newTestClient(t *testing.T, handler http.Handler) (*PlaidClient, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewPlaidClient(&PlaidConfig{
		ClientID:    "client-id",
		Secret:      "secret",
		Environment: "sandbox",
	}, zap.NewNop())
	require.NoError(t, err)

	// Route requests to the test server instead of Plaid
	client.httpClient = server.Client()
	client.baseURLOverride = server.URL

	return client, server
}

func TestPlaidConfig_Validate(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		assert.ErrorIs(t, (&PlaidConfig{Environment: "sandbox"}).Validate(), ErrPlaidMissingClientID)
		assert.ErrorIs(t, (&PlaidConfig{ClientID: "x", Environment: "sandbox"}).Validate(), ErrPlaidMissingSecret)
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		cfg := &PlaidConfig{ClientID: "x", Secret: "y", Environment: "staging"}
		assert.ErrorIs(t, cfg.Validate(), ErrPlaidBadEnvironment)
	})

	t.Run("selects the host by environment", func(t *testing.T) {
		assert.Equal(t, plaidSandboxURL, (&PlaidConfig{Environment: "sandbox"}).BaseURL())
		assert.Equal(t, plaidProductionURL, (&PlaidConfig{Environment: "production"}).BaseURL())
	})
}

func TestPlaidClient_CreateLinkToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/link/token/create", func(w http.ResponseWriter, r *http.Request) {
		var req linkTokenCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "client-id", req.ClientID)
		assert.Equal(t, "acc-1", req.User.ClientUserID)

		json.NewEncoder(w).Encode(linkTokenCreateResponse{
			LinkToken: "link-sandbox-token",
			RequestID: "req-1",
		})
	})

	client, _ := newTestClient(t, mux)

	token, err := client.CreateLinkToken(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-token", token)
}

func TestPlaidClient_ExchangePublicToken(t *testing.T) {
	t.Run("exchanges and resolves the institution", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/item/public_token/exchange", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(itemPublicTokenExchangeResponse{
				AccessToken: "access-1",
				ItemID:      "item-1",
			})
		})
		mux.HandleFunc("/item/get", func(w http.ResponseWriter, r *http.Request) {
			var resp itemGetResponse
			resp.Item.ItemID = "item-1"
			resp.Item.InstitutionName = "First Platypus Bank"
			json.NewEncoder(w).Encode(resp)
		})

		client, _ := newTestClient(t, mux)

		item, err := client.ExchangePublicToken(context.Background(), "public-token")
		require.NoError(t, err)
		assert.Equal(t, "item-1", item.ItemID)
		assert.Equal(t, "access-1", item.AccessToken)
		assert.Equal(t, "First Platypus Bank", item.InstitutionName)
	})

	t.Run("maps an invalid public token", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/item/public_token/exchange", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(plaidErrorResponse{
				ErrorType:    "INVALID_INPUT",
				ErrorCode:    "INVALID_PUBLIC_TOKEN",
				ErrorMessage: "provided public token is expired",
			})
		})

		client, _ := newTestClient(t, mux)

		_, err := client.ExchangePublicToken(context.Background(), "expired")
		assert.ErrorIs(t, err, entitlement.ErrLinkInvalidPublicToken)
	})
}

func TestPlaidClient_RemoveItem(t *testing.T) {
	t.Run("removes the item", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/item/remove", func(w http.ResponseWriter, r *http.Request) {
			var req itemRemoveRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "access-1", req.AccessToken)
			json.NewEncoder(w).Encode(itemRemoveResponse{RequestID: "req-2"})
		})

		client, _ := newTestClient(t, mux)

		assert.NoError(t, client.RemoveItem(context.Background(), "access-1"))
	})

	t.Run("maps a missing item", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/item/remove", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(plaidErrorResponse{
				ErrorType: "ITEM_ERROR",
				ErrorCode: "ITEM_NOT_FOUND",
			})
		})

		client, _ := newTestClient(t, mux)

		err := client.RemoveItem(context.Background(), "stale")
		assert.ErrorIs(t, err, entitlement.ErrLinkItemNotFound)
	})
}
