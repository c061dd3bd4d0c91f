// Package client holds HTTP clients for external services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

type entropyResponse struct {
	Value *int `json:"value"`
}

// EntropyClient fetches random integers from an external randomness service.
type EntropyClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewEntropyClient creates a new EntropyClient.
func NewEntropyClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *EntropyClient {
	return &EntropyClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// Intn returns a random int in [0, n) with retry, circuit breaker, and tracing.
// GET {baseURL}/v1/random?max=n responds with {"value": k}.
func (c *EntropyClient) Intn(ctx context.Context, n int) (int, error) {
	ctx, span := tracer.Start(ctx, "EntropyClient.Intn")
	defer span.End()
	span.SetAttributes(attribute.Int("entropy.max", n))

	if n <= 0 {
		return 0, &domain.ErrValidation{Field: "max", Message: "must be positive"}
	}

	result, err := c.cb.Execute(func() (any, error) {
		var value int
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			u := fmt.Sprintf("%s/v1/random?max=%s", c.baseURL, url.QueryEscape(strconv.Itoa(n)))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("entropy API returned status %d", resp.StatusCode)
			}

			var body entropyResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode entropy response: %w", err)
			}
			if body.Value == nil {
				return errors.New("entropy response missing value")
			}
			if *body.Value < 0 || *body.Value >= n {
				return fmt.Errorf("entropy value %d outside [0, %d)", *body.Value, n)
			}
			value = *body.Value
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return value, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, &domain.ErrCircuitOpen{Service: "entropy"}
	}
	if err != nil {
		return 0, &domain.ErrExternalService{Service: "entropy", Err: err}
	}

	return result.(int), nil
}
