package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/betting"
	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/internal/engine/settlement"
	httpapi "github.com/aetherwave/market-engine/internal/gateway/http"
	"github.com/aetherwave/market-engine/internal/notify"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

type env struct {
	api     *httpapi.API
	srv     *httptest.Server
	markets *market.Memory
	ledg    *ledger.Memory
}

func newEnv(t *testing.T, startingCents int64) env {
	t.Helper()

	markets := market.NewMemory()
	ledg := ledger.NewMemory(startingCents)
	log := zap.NewNop()
	hub := notify.NewHub(log, markets)

	api := &httpapi.API{
		Log:      log,
		Markets:  markets,
		Ledger:   ledg,
		Betting:  betting.NewService(log, markets, ledg),
		Resolver: settlement.NewService(log, markets, ledg),
		Hub:      hub,
		Bus:      hub,
		TTL:      5 * time.Minute,
	}
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	return env{api: api, srv: srv, markets: markets, ledg: ledg}
}

func (e env) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func (e env) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateAndListMarkets(t *testing.T) {
	e := newEnv(t, 100_000)

	resp := e.post(t, "/v1/markets", httpapi.CreateMarketRequest{
		Creator:     "admin",
		Description: "Will Team B achieve baron_kill in the next 5 minutes?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[httpapi.MarketView](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, market.StatusOpen, created.Status)
	assert.Equal(t, 0.5, created.YesOdds) // pool vazio: prior uniforme
	assert.Equal(t, 0.5, created.NoOdds)

	resp = e.get(t, "/v1/markets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]httpapi.MarketView](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	resp = e.get(t, "/v1/markets/"+created.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.get(t, "/v1/markets/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateMarket_InvalidPayload(t *testing.T) {
	e := newEnv(t, 0)

	resp := e.post(t, "/v1/markets", httpapi.CreateMarketRequest{Creator: "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPlaceBet_FlowAndOdds(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 100_000)

	m, err := e.markets.Create(ctx, "desc", "oracle", time.Minute)
	require.NoError(t, err)

	resp := e.post(t, "/v1/bets", httpapi.PlaceBetRequest{
		Owner: "alice", MarketID: m.ID, Side: "Yes", AmountCents: 10_000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[httpapi.PlaceBetResponse](t, resp)
	assert.Equal(t, int64(10_000), placed.Bet.AmountCents)
	assert.Equal(t, market.SideYes, placed.Bet.Side)

	// as odds refletem o novo pool: Yes 10000 / No 0
	resp = e.get(t, "/v1/markets/" + m.ID)
	view := decode[httpapi.MarketView](t, resp)
	assert.Equal(t, int64(10_000), view.YesPoolCents)
	assert.Equal(t, 0.0, view.YesOdds) // pool inteiro do mesmo lado
	assert.Equal(t, 1.0, view.NoOdds)

	acc, _ := e.ledg.GetOrCreate(ctx, "alice")
	assert.Equal(t, int64(90_000), acc.BalanceCents)
}

func TestPlaceBet_ErrorStatusMapping(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 5_000)

	m, err := e.markets.Create(ctx, "desc", "oracle", time.Minute)
	require.NoError(t, err)
	closed, err := e.markets.Create(ctx, "desc", "oracle", -time.Second)
	require.NoError(t, err)

	cases := []struct {
		name string
		req  httpapi.PlaceBetRequest
		want int
	}{
		{"zero amount", httpapi.PlaceBetRequest{Owner: "u", MarketID: m.ID, Side: "Yes", AmountCents: 0}, http.StatusBadRequest},
		{"bad side", httpapi.PlaceBetRequest{Owner: "u", MarketID: m.ID, Side: "Maybe", AmountCents: 100}, http.StatusBadRequest},
		{"missing owner", httpapi.PlaceBetRequest{MarketID: m.ID, Side: "Yes", AmountCents: 100}, http.StatusBadRequest},
		{"market not found", httpapi.PlaceBetRequest{Owner: "u", MarketID: "nope", Side: "Yes", AmountCents: 100}, http.StatusNotFound},
		{"market closed", httpapi.PlaceBetRequest{Owner: "u", MarketID: closed.ID, Side: "Yes", AmountCents: 100}, http.StatusConflict},
		{"insufficient funds", httpapi.PlaceBetRequest{Owner: "u", MarketID: m.ID, Side: "Yes", AmountCents: 99_000}, http.StatusPaymentRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := e.post(t, "/v1/bets", tc.req)
			assert.Equal(t, tc.want, resp.StatusCode)
			resp.Body.Close()
		})
	}

	// lado oposto depois de apostar Yes: conflito
	resp := e.post(t, "/v1/bets", httpapi.PlaceBetRequest{Owner: "u", MarketID: m.ID, Side: "Yes", AmountCents: 1_000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = e.post(t, "/v1/bets", httpapi.PlaceBetRequest{Owner: "u", MarketID: m.ID, Side: "No", AmountCents: 1_000})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestAccounts_GetAndDeposit(t *testing.T) {
	e := newEnv(t, 100_000)

	resp := e.get(t, "/v1/accounts?owner=bob")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	acc := decode[ledger.Account](t, resp)
	assert.Equal(t, "bob", acc.Owner)
	assert.Equal(t, int64(100_000), acc.BalanceCents)

	resp = e.post(t, "/v1/accounts/deposit", httpapi.DepositRequest{Owner: "bob", AmountCents: 50_000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	acc = decode[ledger.Account](t, resp)
	assert.Equal(t, int64(150_000), acc.BalanceCents)

	resp = e.get(t, "/v1/accounts")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode) // owner obrigatório
	resp.Body.Close()

	resp = e.post(t, "/v1/accounts/deposit", httpapi.DepositRequest{Owner: "bob", AmountCents: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestResolveMarket_SettlesAndReports(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 1_000_000)

	m, err := e.markets.Create(ctx, "desc", "oracle", time.Minute)
	require.NoError(t, err)

	resp := e.post(t, "/v1/bets", httpapi.PlaceBetRequest{Owner: "winner", MarketID: m.ID, Side: "No", AmountCents: 10_000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = e.post(t, "/v1/bets", httpapi.PlaceBetRequest{Owner: "loser", MarketID: m.ID, Side: "Yes", AmountCents: 30_000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, fmt.Sprintf("/v1/markets/%s/resolve", m.ID), httpapi.ResolveRequest{Outcome: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settled := decode[events.MarketSettled](t, resp)
	assert.Equal(t, m.ID, settled.MarketID)
	assert.False(t, settled.Outcome)
	assert.Equal(t, int64(40_000), settled.TotalPoolCents)
	require.Len(t, settled.Payouts, 1)
	assert.Equal(t, "winner", settled.Payouts[0].Owner)
	assert.Equal(t, int64(40_000), settled.Payouts[0].AmountCents) // pool inteiro

	// segunda resolução conflita; mercado inexistente é 404
	resp = e.post(t, fmt.Sprintf("/v1/markets/%s/resolve", m.ID), httpapi.ResolveRequest{Outcome: true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
	resp = e.post(t, "/v1/markets/nope/resolve", httpapi.ResolveRequest{Outcome: true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListEvents_ReturnsSample(t *testing.T) {
	e := newEnv(t, 0)

	resp := e.get(t, "/v1/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sample := decode[[]events.CandidateEvent](t, resp)
	assert.Len(t, sample, 10)
	for _, ev := range sample {
		assert.NotEmpty(t, ev.Type)
	}
}
