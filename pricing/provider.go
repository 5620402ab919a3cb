package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/claudeteam/errors"
	"github.com/penwyp/claudeteam/models"
)

const (
	defaultOracleURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

	// Price lookups are bounded so a stuck oracle cannot stall a refresh
	// tick.
	oracleTimeout = 20 * time.Second
)

// Provider fetches the reference pricing table
type Provider interface {
	Fetch(ctx context.Context) (map[string]models.ModelPricing, error)
	Name() string
}

// OracleProvider fetches pricing from a LiteLLM-format price list over
// HTTP
type OracleProvider struct {
	url        string
	httpClient *http.Client
}

// oracleModel is the per-model shape in the price list. Costs are per
// token; pointers distinguish absent fields.
type oracleModel struct {
	InputCostPerToken           *float64 `json:"input_cost_per_token"`
	OutputCostPerToken          *float64 `json:"output_cost_per_token"`
	CacheCreationInputTokenCost *float64 `json:"cache_creation_input_token_cost"`
	CacheReadInputTokenCost     *float64 `json:"cache_read_input_token_cost"`
}

// NewOracleProvider creates a provider against the default price list
func NewOracleProvider() *OracleProvider {
	return NewOracleProviderWithURL(defaultOracleURL)
}

// NewOracleProviderWithURL creates a provider against a custom URL
func NewOracleProviderWithURL(url string) *OracleProvider {
	return &OracleProvider{
		url: url,
		httpClient: &http.Client{
			Timeout: oracleTimeout,
		},
	}
}

// Name returns the provider identifier
func (p *OracleProvider) Name() string {
	return "oracle"
}

// Fetch downloads and decodes the full pricing table. Models without both
// input and output costs are skipped; missing cache costs default to
// 1.25x / 0.1x of the input cost.
func (p *OracleProvider) Fetch(ctx context.Context) (map[string]models.ModelPricing, error) {
	ctx, cancel := context.WithTimeout(ctx, oracleTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pricing data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var rawData map[string]json.RawMessage
	if err := sonic.Unmarshal(body, &rawData); err != nil {
		return nil, errors.NewDataFormatError("failed to parse pricing data", err)
	}

	table := make(map[string]models.ModelPricing)
	for modelName, rawModel := range rawData {
		var model oracleModel
		if err := sonic.Unmarshal(rawModel, &model); err != nil {
			continue
		}
		if model.InputCostPerToken == nil || model.OutputCostPerToken == nil {
			continue
		}

		pricing := models.ModelPricing{
			Input:  *model.InputCostPerToken * 1_000_000,
			Output: *model.OutputCostPerToken * 1_000_000,
		}
		if model.CacheCreationInputTokenCost != nil {
			pricing.CacheCreation = *model.CacheCreationInputTokenCost * 1_000_000
		} else {
			pricing.CacheCreation = pricing.Input * 1.25
		}
		if model.CacheReadInputTokenCost != nil {
			pricing.CacheRead = *model.CacheReadInputTokenCost * 1_000_000
		} else {
			pricing.CacheRead = pricing.Input * 0.1
		}

		table[modelName] = pricing
	}

	if len(table) == 0 {
		return nil, errors.NewDataFormatError("pricing table is empty", nil)
	}

	return table, nil
}

// StaticProvider serves a fixed pricing table, used offline and in tests
type StaticProvider struct {
	pricing map[string]models.ModelPricing
}

// NewStaticProvider creates a provider over a fixed table
func NewStaticProvider(pricing map[string]models.ModelPricing) *StaticProvider {
	return &StaticProvider{pricing: pricing}
}

// Name returns the provider identifier
func (p *StaticProvider) Name() string {
	return "static"
}

// Fetch returns a copy of the fixed table
func (p *StaticProvider) Fetch(ctx context.Context) (map[string]models.ModelPricing, error) {
	result := make(map[string]models.ModelPricing, len(p.pricing))
	for k, v := range p.pricing {
		result[k] = v
	}
	return result, nil
}
