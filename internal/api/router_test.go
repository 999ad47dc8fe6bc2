package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/api/handlers"
	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/selection"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/redis"
)

type fakeExecutor struct {
	results []selection.Result
	err     error
	calls   int
}

func (f *fakeExecutor) Execute(ctx context.Context, q *selection.Query) ([]selection.Result, error) {
	f.calls++
	return f.results, f.err
}

func (f *fakeExecutor) Financials(ctx context.Context, symbols []string) (map[string][]contracts.QuarterlyFinancial, error) {
	return map[string][]contracts.QuarterlyFinancial{}, nil
}

type fakeUniverse struct {
	u   *contracts.Universe
	err error
}

func (f *fakeUniverse) LatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	return f.u, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T, exec *fakeExecutor, universe *fakeUniverse, db Pinger) http.Handler {
	t.Helper()
	screener, err := selection.NewScreener(exec, redis.NewCache(redis.Disabled(), "test"), strategyconfig.Default(), nil)
	require.NoError(t, err)

	return NewRouter(Handlers{
		Screener: handlers.NewScreenerHandler(screener, nil),
		Universe: handlers.NewUniverseHandler(universe, nil),
		DB:       db,
	}, nil)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestScreener_OK(t *testing.T) {
	exec := &fakeExecutor{results: []selection.Result{{Symbol: "AAPL", Close: 190}}}
	h := newTestRouter(t, exec, &fakeUniverse{}, nil)

	rec := get(t, h, "/api/screener?minMcap=1000000000&ordered=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp selection.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "AAPL", resp.Results[0].Symbol)
	assert.NotNil(t, resp.Results[0].Financials)
}

func TestScreener_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		execErr    error
		wantStatus int
		wantField  string
		wantKind   string
	}{
		{
			name:       "unknown filter",
			query:      url.Values{"minMarketCap": {"1"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "minMarketCap",
		},
		{
			name:       "quarters out of range",
			query:      url.Values{"revenueGrowth": {"true"}, "revenueGrowthQuarters": {"9"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "revenueGrowthQuarters",
		},
		{
			name:       "connection lost",
			query:      url.Values{},
			execErr:    &pgconn.PgError{Code: "08006", Message: "connection failure"},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "unavailable",
		},
		{
			name:       "bad statement",
			query:      url.Values{},
			execErr:    &pgconn.PgError{Code: "42601", Message: `syntax error at or near "SELECT"`},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{err: tt.execErr}
			h := newTestRouter(t, exec, &fakeUniverse{}, nil)

			rec := get(t, h, "/api/screener?"+tt.query.Encode())
			require.Equal(t, tt.wantStatus, rec.Code)

			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, rec.Body.String(), "SELECT")
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
				assert.Zero(t, exec.calls, "no query for invalid input")
			}
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, body["kind"])
			}
		})
	}
}

func TestScreener_UnclassifiedError(t *testing.T) {
	h := handlers.NewScreenerHandler(screenFunc(func(ctx context.Context, v url.Values) (*selection.Response, error) {
		return nil, errors.New("boom")
	}), nil)

	rec := httptest.NewRecorder()
	h.Screen(rec, httptest.NewRequest(http.MethodGet, "/api/screener", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

type screenFunc func(ctx context.Context, v url.Values) (*selection.Response, error)

func (f screenFunc) ScreenValues(ctx context.Context, v url.Values) (*selection.Response, error) {
	return f(ctx, v)
}

func TestScreener_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, &fakeExecutor{}, &fakeUniverse{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/screener", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUniverse(t *testing.T) {
	h := newTestRouter(t, &fakeExecutor{}, &fakeUniverse{err: contracts.ErrNotFound}, nil)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/universe").Code)

	h = newTestRouter(t, &fakeExecutor{}, &fakeUniverse{err: errors.New("conn reset")}, nil)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/universe").Code)

	u := &contracts.Universe{Symbols: []string{"AAPL", "MSFT"}}
	h = newTestRouter(t, &fakeExecutor{}, &fakeUniverse{u: u}, nil)
	rec := get(t, h, "/api/universe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["symbols"], 2)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, &fakeExecutor{}, &fakeUniverse{}, nil)
	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	h = newTestRouter(t, &fakeExecutor{}, &fakeUniverse{}, fakePinger{err: errors.New("down")})
	rec = get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
}

func TestRequestIDEchoed(t *testing.T) {
	h := newTestRouter(t, &fakeExecutor{}, &fakeUniverse{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
