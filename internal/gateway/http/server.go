// Package httpapi expõe a superfície REST + WS do motor de mercados.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/betting"
	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/internal/engine/settlement"
	"github.com/aetherwave/market-engine/internal/gateway/cache"
	"github.com/aetherwave/market-engine/internal/notify"
	"github.com/aetherwave/market-engine/internal/scheduler"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

// BetAuditor publica apostas confirmadas no Kafka (opcional).
type BetAuditor interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
}

type API struct {
	Log      *zap.Logger
	Markets  market.Store
	Ledger   ledger.Store
	Betting  *betting.Service
	Resolver *settlement.Service
	Hub      *notify.Hub
	Bus      notify.Broadcaster
	Bets     BetAuditor   // opcional
	Cache    *cache.Cache // opcional
	TTL      time.Duration
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/markets", a.listMarkets)
	r.Post("/v1/markets", a.createMarket)
	r.Get("/v1/markets/{id}", a.getMarket)
	r.Post("/v1/markets/{id}/resolve", a.resolveMarket) // caminho administrativo/teste
	r.Get("/v1/events", a.listEvents)
	r.Get("/v1/accounts", a.getAccount)
	r.Post("/v1/accounts/deposit", a.deposit)
	r.Post("/v1/bets", a.placeBet)
	r.Get("/ws", a.Hub.HandleWS)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// listMarkets retorna todos os mercados, preferencialmente do cache.
func (a *API) listMarkets(w http.ResponseWriter, r *http.Request) {
	if a.Cache != nil {
		var cached []MarketView
		if ok, _ := a.Cache.GetMarkets(r.Context(), &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ms, err := a.Markets.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := toViews(ms)

	if a.Cache != nil {
		_ = a.Cache.SetMarkets(r.Context(), views)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) getMarket(w http.ResponseWriter, r *http.Request) {
	m, err := a.Markets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toView(m))
}

// createMarket abre um mercado por requisição explícita (fora do scheduler).
func (a *API) createMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Creator == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	m, err := a.Markets.Create(r.Context(), req.Description, req.Creator, a.TTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	_ = a.Bus.Publish(r.Context(), events.Envelope{Type: events.TypeMarketCreated, Payload: m})
	writeJSON(w, http.StatusCreated, toView(m))
}

// resolveMarket resolve um mercado manualmente e liquida os pagamentos.
func (a *API) resolveMarket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	rep, err := a.Resolver.Resolve(r.Context(), id, req.Outcome)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, market.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "market already resolved")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	_ = a.Bus.Publish(r.Context(), events.Envelope{
		Type:    events.TypeMarketResolved,
		Payload: events.MarketResolved{MarketID: id, Outcome: req.Outcome},
	})

	writeJSON(w, http.StatusOK, rep.Settled())
}

// listEvents retorna uma amostra de eventos candidatos (diagnóstico,
// não muda estado).
func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	sample := make([]events.CandidateEvent, 10)
	for i := range sample {
		sample[i] = scheduler.RandomEvent()
	}
	writeJSON(w, http.StatusOK, sample)
}

// getAccount retorna (ou cria com saldo inicial) a conta do owner.
func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	acc, err := a.Ledger.GetOrCreate(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Owner == "" || req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := a.Ledger.Credit(r.Context(), req.Owner, req.AmountCents); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	acc, err := a.Ledger.GetOrCreate(r.Context(), req.Owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// placeBet aplica um stake. Cada tipo de falha vira um status específico
// pro cliente distinguir "tenta um valor menor" de "mercado já fechou".
func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Owner == "" || req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	bet, err := a.Betting.PlaceBet(r.Context(), req.Owner, req.MarketID, market.Side(req.Side), req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, betting.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid bet amount")
		case errors.Is(err, market.ErrNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, market.ErrClosed):
			writeError(w, http.StatusConflict, "market closed")
		case errors.Is(err, ledger.ErrConflictingBet):
			writeError(w, http.StatusConflict, "existing bet on opposite side")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "insufficient funds")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if a.Bets != nil {
		if perr := a.Bets.PublishBetPlaced(r.Context(), events.BetPlaced{
			Owner:       bet.Owner,
			MarketID:    bet.MarketID,
			Side:        string(bet.Side),
			AmountCents: req.AmountCents,
		}); perr != nil {
			a.Log.Warn("bet audit publish failed", zap.Error(perr))
		}
	}

	writeJSON(w, http.StatusCreated, PlaceBetResponse{Bet: bet})
}
