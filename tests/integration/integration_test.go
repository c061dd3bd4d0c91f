package integration_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/handler"
	"github.com/boddenberg/wager-ledger-go/internal/infra/cache"
	"github.com/boddenberg/wager-ledger-go/internal/infra/client"
	"github.com/boddenberg/wager-ledger-go/internal/infra/memory"
	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/wager-ledger-go/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// startLedger wires the full stack against a mock entropy service and
// serves it over a real listener.
func startLedger(t *testing.T, entropyURL string) (*httptest.Server, *observability.Metrics) {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond}
	httpClient := &http.Client{Timeout: 2 * time.Second}

	entropy := client.NewEntropyClient(httpClient, entropyURL, resilience.NewCircuitBreaker("test", logger), cfg)
	generator := service.NewRemoteOutcomeGenerator(entropy, service.NewUniformGenerator(), metrics, logger)

	store := memory.NewAccountStore(logger)
	engine := service.NewWagerEngine(store, generator, domain.DefaultWagerRules(), logger)
	ledger := service.NewLedger(store, engine, domain.DefaultDepositAmount, metrics, logger)

	idem := cache.New[*handler.CachedResponse](time.Minute)
	t.Cleanup(idem.Close)

	srv := httptest.NewServer(handler.NewRouter(ledger, idem, resilience.NewBulkhead(32), metrics, logger))
	t.Cleanup(srv.Close)
	return srv, metrics
}

func call(t *testing.T, method, url, contentType, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

// TestIntegration_FullFlow walks the alice example end to end with a
// remote entropy service that always returns the winning symbol.
func TestIntegration_FullFlow(t *testing.T) {
	entropyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"value": int(domain.WinningSymbol)})
	}))
	defer entropyServer.Close()

	srv, metrics := startLedger(t, entropyServer.URL)

	status, acct := call(t, http.MethodPost, srv.URL+"/user", "text/plain", "alice")
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	id, _ := acct["id"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid id, got %q", id)
	}
	if acct["credit"] != float64(0) || acct["name"] != "alice" {
		t.Fatalf("unexpected account %v", acct)
	}

	if status, body := call(t, http.MethodPut, srv.URL+"/user/"+id+"/credit", "", ""); status != http.StatusOK || body["credit"] != float64(10) {
		t.Fatalf("deposit: got %d %v", status, body)
	}

	payload, _ := json.Marshal(map[string]any{"userId": id, "bet": "1"})
	status, outcome := call(t, http.MethodPost, srv.URL+"/game/", "application/json", string(payload))
	if status != http.StatusOK {
		t.Fatalf("wager: expected 200, got %d", status)
	}
	if outcome["win"] != true || outcome["result"] != float64(domain.WinningSymbol) {
		t.Errorf("expected a win from the mocked entropy service, got %v", outcome)
	}

	if _, body := call(t, http.MethodGet, srv.URL+"/user/"+id, "", ""); body["credit"] != float64(110) {
		t.Errorf("expected credit 110, got %v", body["credit"])
	}

	payload, _ = json.Marshal(map[string]any{"userId": id, "bet": 21})
	if status, _ := call(t, http.MethodPost, srv.URL+"/game", "application/json", string(payload)); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bet 21, got %d", status)
	}

	if got := metrics.GetLedgerSnapshot().EntropyFallbacks; got != 0 {
		t.Errorf("expected no entropy fallbacks, got %d", got)
	}
}

// TestIntegration_EntropyOutage keeps settling wagers from the local
// generator while the entropy service is down.
func TestIntegration_EntropyOutage(t *testing.T) {
	var hits atomic.Int32
	entropyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer entropyServer.Close()

	srv, metrics := startLedger(t, entropyServer.URL)

	_, acct := call(t, http.MethodPost, srv.URL+"/user", "text/plain", "bob")
	id := acct["id"].(string)
	for i := 0; i < 10; i++ {
		call(t, http.MethodPut, srv.URL+"/user/"+id+"/credit", "", "")
	}

	const wagers = 20
	balance := int64(100)
	for i := 0; i < wagers; i++ {
		body, _ := json.Marshal(map[string]any{"userId": id, "bet": 1})
		status, out := call(t, http.MethodPost, srv.URL+"/game", "application/json", string(body))
		if status != http.StatusOK {
			t.Fatalf("wager %d: expected 200, got %d", i, status)
		}
		if out["win"] == true {
			balance += 100
		} else {
			balance--
		}
	}

	if _, body := call(t, http.MethodGet, srv.URL+"/user/"+id, "", ""); body["credit"] != float64(balance) {
		t.Errorf("expected credit %d, got %v", balance, body["credit"])
	}
	if got := metrics.GetLedgerSnapshot().EntropyFallbacks; got != wagers {
		t.Errorf("expected %d fallbacks, got %d", wagers, got)
	}
	// The breaker opens after five failures, sparing the entropy service.
	if hits.Load() >= wagers {
		t.Errorf("expected the circuit breaker to cut remote calls, got %d hits", hits.Load())
	}
}

// TestIntegration_RepeatedPlay mirrors the repeated create/credit/play
// scenario over many fresh accounts.
func TestIntegration_RepeatedPlay(t *testing.T) {
	entropyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer entropyServer.Close()

	srv, _ := startLedger(t, entropyServer.URL)

	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("user%d", i)
		status, acct := call(t, http.MethodPost, srv.URL+"/user", "text/plain", name)
		if status != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d", name, status)
		}
		id := acct["id"].(string)
		call(t, http.MethodPut, srv.URL+"/user/"+id+"/credit", "", "")

		body := `{"userId": "` + id + `", "bet": "1"}`
		status, out := call(t, http.MethodPost, srv.URL+"/game/", "application/json", body)
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", name, status)
		}
		if out["win"] != (out["result"] == float64(domain.WinningSymbol)) {
			t.Fatalf("%s: win flag disagrees with result: %v", name, out)
		}

		want := float64(9)
		if out["win"] == true {
			want = 110
		}
		if _, got := call(t, http.MethodGet, srv.URL+"/user/"+id, "", ""); got["credit"] != want {
			t.Fatalf("%s: expected credit %v, got %v", name, want, got["credit"])
		}
	}
}
