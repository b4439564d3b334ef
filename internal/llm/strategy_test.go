package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finqa-cli/internal/config"
	"github.com/sells-group/finqa-cli/internal/store"
	"github.com/sells-group/finqa-cli/pkg/openai"
)

type staticSchema struct{}

func (staticSchema) SchemaTables(ctx context.Context) ([]store.TableSchema, error) {
	return []store.TableSchema{
		{Name: "fact_pnl_annual", Columns: []string{"account_id", "period_id", "value"}},
		{Name: "dim_account", Columns: []string{"account_id", "canonical_name"}},
		{Name: "dim_period", Columns: []string{"period_id", "raw_label"}},
		{Name: "view_ebitda_margin", Columns: []string{"period", "ebitda_margin"}},
	}, nil
}

// newCompletionServer returns an httptest server that replies with the
// given SQL as the assistant message.
func newCompletionServer(t *testing.T, sql string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := openai.ChatCompletionResponse{
			Choices: []openai.Choice{
				{Message: openai.Message{Role: "assistant", Content: sql}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStrategy(baseURL string) *Strategy {
	return New(config.LLMConfig{
		Provider: "openai",
		Key:      "test-key",
		BaseURL:  baseURL,
		Model:    "gpt-4o-mini",
	}, staticSchema{})
}

func TestStrategy_Unavailable(t *testing.T) {
	s := New(config.LLMConfig{Provider: "none"}, staticSchema{})
	assert.False(t, s.Available())

	sql, status := s.GenerateSQL(context.Background(), "anything")
	assert.Empty(t, sql)
	assert.Equal(t, StatusUnavailable, status)
}

func TestStrategy_MissingKeyUnavailable(t *testing.T) {
	s := New(config.LLMConfig{Provider: "openai"}, staticSchema{})
	assert.False(t, s.Available())
}

func TestStrategy_GenerateSQL_OK(t *testing.T) {
	srv := newCompletionServer(t,
		"SELECT p.raw_label, f.value FROM fact_pnl_annual f JOIN dim_period p ON p.period_id=f.period_id")
	s := newTestStrategy(srv.URL)
	require.True(t, s.Available())

	sql, status := s.GenerateSQL(context.Background(), "EBITDA trend")
	assert.Equal(t, StatusOK, status)
	assert.Contains(t, sql, "fact_pnl_annual")
}

func TestStrategy_GenerateSQL_StripsFenceAndRepairs(t *testing.T) {
	srv := newCompletionServer(t,
		"```sql\nSELECT f.value FROM fact_pnl_annual f JOIN dim_account a ON f.account_id=a.account_id WHERE a.canonical_name='Revenue'\n```")
	s := newTestStrategy(srv.URL)

	sql, status := s.GenerateSQL(context.Background(), "revenue trend")
	require.Equal(t, StatusOK, status)
	assert.NotContains(t, sql, "```")
	assert.Contains(t, sql, "canonical_name='Revenue from Operation'")
}

func TestStrategy_GenerateSQL_UnknownTableRejected(t *testing.T) {
	srv := newCompletionServer(t, "SELECT value FROM fact_made_up")
	s := newTestStrategy(srv.URL)

	sql, status := s.GenerateSQL(context.Background(), "made up trend")
	assert.Empty(t, sql)
	assert.Equal(t, StatusUnknownTable, status)
}

func TestStrategy_GenerateSQL_UnsafeRejected(t *testing.T) {
	srv := newCompletionServer(t, "DROP TABLE fact_pnl_annual")
	s := newTestStrategy(srv.URL)

	sql, status := s.GenerateSQL(context.Background(), "drop everything")
	assert.Empty(t, sql)
	assert.Equal(t, StatusUnsafe, status)
}

func TestStrategy_GenerateSQL_EmptyCompletion(t *testing.T) {
	srv := newCompletionServer(t, "")
	s := newTestStrategy(srv.URL)

	sql, status := s.GenerateSQL(context.Background(), "anything")
	assert.Empty(t, sql)
	assert.Equal(t, StatusEmpty, status)
}

func TestStrategy_GenerateSQL_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	s := newTestStrategy(srv.URL)

	sql, status := s.GenerateSQL(context.Background(), "anything")
	assert.Empty(t, sql)
	assert.Equal(t, GenStatus("HTTP_500"), status)
}

func TestStrategy_Probe(t *testing.T) {
	s := newTestStrategy("http://localhost:9")
	p := s.Probe()
	assert.True(t, p.Available)
	assert.Equal(t, "openai", p.Provider)
	assert.True(t, p.HasCredential)
	assert.Equal(t, "http://localhost:9", p.BaseEndpoint)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, GenStatus("HTTP_429"), httpStatus(429))
}
