// Package journal provides the HTTP handlers for recording, listing and
// deleting trades and for serving the derived analytics and insights.
//
// All monetary values use shopspring/decimal, never float64 for money.
package journal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/analytics"
	"github.com/montanasport9-stack/maestriadotrader/internal/auth"
	"github.com/montanasport9-stack/maestriadotrader/internal/metrics"
	"github.com/montanasport9-stack/maestriadotrader/internal/model"
	"github.com/montanasport9-stack/maestriadotrader/internal/narrator"
	"github.com/montanasport9-stack/maestriadotrader/internal/store"
)

// Service handles journal operations for the authenticated owner. Every
// handler expects auth.Middleware to have run.
type Service struct {
	store    store.Store
	narrator narrator.Narrator
	locale   analytics.Locale
	wsHub    *WSHub // optional WebSocket hub for real-time broadcasts
	now      func() time.Time
}

// NewService creates a journal service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, n narrator.Narrator, locale analytics.Locale, hub *WSHub) *Service {
	return &Service{
		store:    st,
		narrator: n,
		locale:   locale,
		wsHub:    hub,
		now:      time.Now,
	}
}

// --- Request/Response types ---

// CreateTradeResponse is the JSON body returned from POST /api/trades.
type CreateTradeResponse struct {
	ID         string          `json:"id"`
	ResultCash decimal.Decimal `json:"result_cash"`
	ResultR    decimal.Decimal `json:"result_r"`
}

// ValidationResponse is returned with 400 when a submission is rejected.
type ValidationResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields"`
}

// InsightResponse is the JSON body of GET /api/insights.
type InsightResponse struct {
	Insight string `json:"insight"`
}

// --- HTTP Handlers ---

// ListTrades handles GET /api/trades
func (s *Service) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, ok := s.loadTrades(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// CreateTrade handles POST /api/trades
// Derived results are computed here once and stored as a snapshot.
func (s *Service) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var in model.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		metrics.ValidationRejections.Inc()
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ownerID := auth.OwnerID(r.Context())
	t, err := model.NewTrade(ownerID, in, s.now())
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationRejections.Inc()
			writeJSON(w, http.StatusBadRequest, ValidationResponse{Error: "invalid trade", Fields: verr.Fields})
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.CreateTrade(r.Context(), t); err != nil {
		slog.Error("trade insert failed", "owner", ownerID, "err", err)
		writeError(w, "failed to save trade", http.StatusInternalServerError)
		return
	}

	metrics.TradesCreated.WithLabelValues(string(t.Direction)).Inc()
	slog.Info("trade recorded",
		"id", t.ID,
		"owner", ownerID,
		"asset", t.Asset,
		"direction", string(t.Direction),
		"result_cash", t.ResultCash.String(),
		"result_r", t.ResultR.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventTradeCreated, OwnerID: ownerID, TradeID: t.ID, Trade: t})
	}

	writeJSON(w, http.StatusCreated, CreateTradeResponse{
		ID:         t.ID,
		ResultCash: t.ResultCash,
		ResultR:    t.ResultR,
	})
}

// DeleteTrade handles DELETE /api/trades/{tradeID}
// Unknown ids and other owners' trades succeed without effect.
func (s *Service) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "tradeID")
	ownerID := auth.OwnerID(r.Context())

	if err := s.store.DeleteTradeForOwner(r.Context(), tradeID, ownerID); err != nil {
		slog.Error("trade delete failed", "id", tradeID, "owner", ownerID, "err", err)
		writeError(w, "failed to delete trade", http.StatusInternalServerError)
		return
	}

	metrics.TradesDeleted.Inc()
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventTradeDeleted, OwnerID: ownerID, TradeID: tradeID})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetAnalytics handles GET /api/analytics?locale=
// Returns every derived view over the owner's journal.
func (s *Service) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	trades, ok := s.loadTrades(w, r)
	if !ok {
		return
	}

	loc := s.locale
	if tag := r.URL.Query().Get("locale"); tag != "" {
		loc = analytics.ParseLocale(tag)
	}
	writeJSON(w, http.StatusOK, analytics.BuildDashboard(trades, loc))
}

// GetInsights handles GET /api/insights
// Served separately from ListTrades so a slow or failing narrator only
// affects this response, which is always 200 once trades are loaded.
func (s *Service) GetInsights(w http.ResponseWriter, r *http.Request) {
	trades, ok := s.loadTrades(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, InsightResponse{Insight: s.narrator.Summarize(r.Context(), trades)})
}

func (s *Service) loadTrades(w http.ResponseWriter, r *http.Request) ([]model.Trade, bool) {
	ownerID := auth.OwnerID(r.Context())
	trades, err := s.store.ListTradesByOwner(r.Context(), ownerID)
	if err != nil {
		slog.Error("trade listing failed", "owner", ownerID, "err", err)
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return nil, false
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	return trades, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
