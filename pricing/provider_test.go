package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	claudeteamerrors "github.com/penwyp/claudeteam/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oracleFixture = `{
	"claude-sonnet-4-20250514": {
		"input_cost_per_token": 0.000003,
		"output_cost_per_token": 0.000015,
		"cache_creation_input_token_cost": 0.00000375,
		"cache_read_input_token_cost": 0.0000003
	},
	"claude-3-5-haiku-20241022": {
		"input_cost_per_token": 0.0000008,
		"output_cost_per_token": 0.000004
	},
	"no-output-cost": {
		"input_cost_per_token": 0.000003
	},
	"sample_spec": {
		"max_tokens": "set to max output tokens"
	}
}`

func TestOracleProviderFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(oracleFixture))
	}))
	defer server.Close()

	provider := NewOracleProviderWithURL(server.URL)
	table, err := provider.Fetch(context.Background())
	require.NoError(t, err)

	// Incomplete entries are dropped
	require.Len(t, table, 2)

	sonnet := table["claude-sonnet-4-20250514"]
	assert.InDelta(t, 3.0, sonnet.Input, 1e-9)
	assert.InDelta(t, 15.0, sonnet.Output, 1e-9)
	assert.InDelta(t, 3.75, sonnet.CacheCreation, 1e-9)
	assert.InDelta(t, 0.3, sonnet.CacheRead, 1e-9)

	// Missing cache costs default relative to the input cost
	haiku := table["claude-3-5-haiku-20241022"]
	assert.InDelta(t, 0.8*1.25, haiku.CacheCreation, 1e-9)
	assert.InDelta(t, 0.8*0.1, haiku.CacheRead, 1e-9)
}

func TestOracleProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOracleProviderWithURL(server.URL).Fetch(context.Background())
	assert.Error(t, err)
}

func TestOracleProviderEmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sample_spec": {"note": "nothing usable"}}`))
	}))
	defer server.Close()

	_, err := NewOracleProviderWithURL(server.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	var re *claudeteamerrors.RecoverableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, claudeteamerrors.ErrorTypeDataFormat, re.Type)
}

func TestOracleProviderMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := NewOracleProviderWithURL(server.URL).Fetch(context.Background())
	require.Error(t, err)

	// A malformed payload is a data-format failure, absorbed by the
	// resolver as a lookup miss
	var re *claudeteamerrors.RecoverableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, claudeteamerrors.ErrorTypeDataFormat, re.Type)
	assert.Equal(t, claudeteamerrors.SeverityLow, re.Severity)
}
