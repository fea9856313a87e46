package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault-labs/vsm/internal/ledger"
	"github.com/openvault-labs/vsm/internal/service"
	"github.com/openvault-labs/vsm/internal/types"
	"github.com/openvault-labs/vsm/internal/vault"
)

func newTestServer(t *testing.T) (*WebServer, *ledger.Book) {
	t.Helper()
	svc, err := service.NewService(service.Config{
		ConfigName:    service.DEFAULT_VAULT_CONFIG_NAME,
		ConfigVersion: service.DEFAULT_VAULT_CONFIG_VERSION,
		Persist:       false,
	})
	require.NoError(t, err)

	assetBook := ledger.NewBook("uasset")
	shareBook := ledger.NewBook("uvshare")
	custody := ledger.NewCustody(assetBook, "vault-1-custody")
	v, err := vault.New(1, custody, shareBook, types.VaultParameters{
		AccountingMode:    types.AccountingCached,
		VirtualAssets:     sdkmath.ZeroInt(),
		VirtualShares:     sdkmath.ZeroInt(),
		MinInitialDeposit: sdkmath.ZeroInt(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.RegisterVault(v))
	require.NoError(t, assetBook.Issue("alice", sdkmath.NewInt(1_000_000)))

	return NewWebServer("0", svc), assetBook
}

func doRequest(ws *WebServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	ws.router.ServeHTTP(recorder, req)
	return recorder
}

func TestListVaults(t *testing.T) {
	ws, _ := newTestServer(t)

	recorder := doRequest(ws, http.MethodGet, "/api/vaults", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Count  int               `json:"count"`
		Vaults []types.VaultInfo `json:"vaults"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	require.Equal(t, uint64(1), response.Vaults[0].VaultID)
	require.Equal(t, "uasset", response.Vaults[0].AssetDenom)
}

func TestGetVault(t *testing.T) {
	ws, _ := newTestServer(t)

	t.Run("known vault", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/vaults/1", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("unknown vault", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/vaults/42", nil)
		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("malformed vault ID", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/vaults/not-a-number", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestDepositEndpoint(t *testing.T) {
	ws, _ := newTestServer(t)

	t.Run("successful deposit", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{
			Caller: "alice",
			Amount: "10000",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		var receipt types.OperationReceipt
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &receipt))
		require.True(t, receipt.Success)
		require.Equal(t, types.OpDeposit, receipt.Type)
		require.Equal(t, sdkmath.NewInt(10000), receipt.AmountOut.Amount)
	})

	t.Run("failed deposit returns the receipt", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{
			Caller: "broke",
			Amount: "5",
		})
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

		var receipt types.OperationReceipt
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &receipt))
		require.False(t, receipt.Success)
		require.NotEmpty(t, receipt.ErrorMessage)
	})

	t.Run("missing caller rejected", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{Amount: "5"})
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("malformed amount rejected", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{
			Caller: "alice",
			Amount: "12.5",
		})
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("unknown vault", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/vaults/42/deposit", amountRequest{
			Caller: "alice",
			Amount: "5",
		})
		require.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestWithdrawEndpointDefaultsOwner(t *testing.T) {
	ws, _ := newTestServer(t)

	recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{
		Caller: "alice",
		Amount: "10000",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(ws, http.MethodPost, "/api/vaults/1/withdraw", amountRequest{
		Caller: "alice",
		Amount: "4000",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var receipt types.OperationReceipt
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &receipt))
	require.True(t, receipt.Success)
	require.Equal(t, "alice", receipt.Owner)
	require.Equal(t, sdkmath.NewInt(6000), receipt.TotalAssetsAfter)
}

func TestPreviewEndpoint(t *testing.T) {
	ws, _ := newTestServer(t)

	recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{
		Caller: "alice",
		Amount: "10000",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	t.Run("preview deposit", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/vaults/1/preview?op=deposit&amount=500", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Equal(t, "500", response["amount_out"])
	})

	t.Run("unknown op", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/vaults/1/preview?op=borrow&amount=500", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("missing amount", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/vaults/1/preview?op=deposit", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestConvertEndpoint(t *testing.T) {
	ws, _ := newTestServer(t)

	recorder := doRequest(ws, http.MethodPost, "/api/vaults/1/deposit", amountRequest{
		Caller: "alice",
		Amount: "10000",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	t.Run("valid conversion", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet,
			"/api/vaults/1/convert?direction=ASSETS_TO_SHARES&rounding=DOWN&amount=123", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Equal(t, "123", response["amount_out"])
	})

	t.Run("invalid direction", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet,
			"/api/vaults/1/convert?direction=SIDEWAYS&rounding=DOWN&amount=123", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestInflationSimulationEndpoint(t *testing.T) {
	ws, _ := newTestServer(t)

	body := map[string]interface{}{
		"params": map[string]interface{}{
			"accounting_mode":     "live",
			"virtual_assets":      "0",
			"virtual_shares":      "0",
			"min_initial_deposit": "0",
		},
		"attacker_seed":  "1",
		"donation":       "10000",
		"victim_deposit": "15000",
	}

	recorder := doRequest(ws, http.MethodPost, "/api/simulations/inflation", body)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, true, response["exploitable"])
}

func TestDashboardServes(t *testing.T) {
	ws, _ := newTestServer(t)

	recorder := doRequest(ws, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Header().Get("Content-Type"), "text/html")
	require.Contains(t, recorder.Body.String(), "Vault Share Manager")
}
