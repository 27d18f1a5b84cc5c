package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sheikh-saqib/banking-ledger-system/internal/auth"
	"github.com/sheikh-saqib/banking-ledger-system/internal/idempotency"
	"github.com/sheikh-saqib/banking-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/sheikh-saqib/banking-ledger-system/internal/notify"
	"github.com/sheikh-saqib/banking-ledger-system/internal/storage/memory"
	"github.com/sheikh-saqib/banking-ledger-system/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, topic string, event any) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewMemoryLedgerStore()
	gate := auth.NewGate(store)
	ldg := ledger.NewLedger(store, gate)
	dispatcher := notify.NewDispatcher(notify.NewSimulatedDeliverer(), zap.NewNop(), 1, 16)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	orchestrator := transfer.NewOrchestrator(store, ldg, nopPublisher{}, dispatcher, idempotency.NewMemoryStore(), zap.NewNop())
	handler := NewHandler(ldg, orchestrator, dispatcher)

	server := httptest.NewServer(NewRouter(handler, testSecret))
	t.Cleanup(server.Close)
	return server
}

func tokenFor(t *testing.T, identity string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": identity})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, method, url, identity string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if identity != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, identity))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/accounts", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndGetAccount(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/accounts", "alice", map[string]any{
		"kind":            "checking",
		"initial_deposit": "100.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decode[models.Account](t, resp)
	assert.Equal(t, "alice", account.OwnerID)
	assert.Equal(t, "100", account.Balance.String())

	resp = doJSON(t, http.MethodGet, server.URL+"/accounts/"+account.ID, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A caller that does not own the account is denied, and a missing
	// account produces the same status for them.
	resp = doJSON(t, http.MethodGet, server.URL+"/accounts/"+account.ID, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/accounts/does-not-exist", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAdjustBalanceAndAudit(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/accounts", "alice", map[string]any{
		"kind":            "checking",
		"initial_deposit": "100.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decode[models.Account](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/accounts/"+account.ID+"/adjust", "alice", map[string]any{
		"amount": "40.00",
		"kind":   "debit",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adjusted := decode[struct {
		Balance string `json:"balance"`
	}](t, resp)
	assert.Equal(t, "60", adjusted.Balance)

	// Overdraft maps to a distinct status, never conflated with not found.
	resp = doJSON(t, http.MethodPost, server.URL+"/accounts/"+account.ID+"/adjust", "alice", map[string]any{
		"amount": "1000.00",
		"kind":   "debit",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/accounts/"+account.ID+"/audit", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[struct {
		Entries []models.AuditEntry `json:"entries"`
	}](t, resp)
	assert.Len(t, page.Entries, 1)
}

func TestTransferEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/accounts", "alice", map[string]any{
		"kind": "checking", "initial_deposit": "60.00",
	})
	source := decode[models.Account](t, resp)
	resp = doJSON(t, http.MethodPost, server.URL+"/accounts", "bob", map[string]any{
		"kind": "checking", "initial_deposit": "10.00",
	})
	destination := decode[models.Account](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/transfers", "alice", map[string]any{
		"source_account":      source.ID,
		"destination_account": destination.ID,
		"amount":              "50.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	record := decode[models.TransactionRecord](t, resp)
	assert.Equal(t, models.StatusCompleted, record.Status)

	resp = doJSON(t, http.MethodGet, server.URL+"/transfers/"+record.ID, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[models.TransactionRecord](t, resp)
	assert.Equal(t, record.ID, fetched.ID)

	// Transfer to a missing destination fails terminally with the source
	// balance restored.
	resp = doJSON(t, http.MethodPost, server.URL+"/transfers", "alice", map[string]any{
		"source_account":      source.ID,
		"destination_account": "a9-missing",
		"amount":              "5.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	failed := decode[models.TransactionRecord](t, resp)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, models.ReasonNotFound, failed.FailureReason)

	resp = doJSON(t, http.MethodGet, server.URL+"/accounts/"+source.ID, "alice", nil)
	account := decode[models.Account](t, resp)
	assert.Equal(t, "10", account.Balance.String())
}

func TestTransferValidationStatus(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/transfers", "alice", map[string]any{
		"source_account":      "same",
		"destination_account": "same",
		"amount":              "5.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	record := decode[models.TransactionRecord](t, resp)
	assert.Equal(t, models.ReasonInvalidRequest, record.FailureReason)
}
