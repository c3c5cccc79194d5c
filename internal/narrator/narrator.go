// Package narrator turns a trader's recent journal into short coaching
// commentary from an external language model. It is best-effort: callers
// always get text back, never an error.
package narrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/montanasport9-stack/maestriadotrader/internal/metrics"
	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

const (
	// MinTrades is the journal size below which no call is made.
	MinTrades = 5

	// MaxTrades caps how many of the most recent trades are sent.
	MaxTrades = 20

	Placeholder = "Adicione mais trades para receber insights inteligentes."
	Fallback    = "Não foi possível gerar insights no momento."

	persona = "Você é um mentor de trading profissional. Seja direto, técnico e encorajador."
	prompt  = "Analise estes trades de um trader e forneça 3 insights curtos e diretos em português sobre sua performance, focando em padrões de erro ou acerto.\n\nDados: "
)

// Narrator produces commentary for a newest-first slice of trades.
type Narrator interface {
	Summarize(ctx context.Context, trades []model.Trade) string
}

// Completer sends one system + user prompt pair to a text model.
type Completer interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service applies the journal policy around a Completer. A nil completer
// behaves like an unreachable service.
type Service struct {
	completer Completer
	timeout   time.Duration
}

// NewService creates a narrator. timeout <= 0 leaves the caller's
// deadline in charge.
func NewService(c Completer, timeout time.Duration) *Service {
	return &Service{completer: c, timeout: timeout}
}

// digest is the per-trade payload the model sees.
type digest struct {
	Asset      string          `json:"asset"`
	Result     decimal.Decimal `json:"result"`
	Setup      string          `json:"setup"`
	Planned    bool            `json:"planned"`
	Emotion    string          `json:"emotion"`
	Discipline int             `json:"discipline"`
	Time       string          `json:"time"`
}

// Summarize never fails: short journals get Placeholder and any service
// problem yields Fallback. Calls are not retried.
func (s *Service) Summarize(ctx context.Context, trades []model.Trade) string {
	if len(trades) < MinTrades {
		metrics.NarratorCalls.WithLabelValues("placeholder").Inc()
		return Placeholder
	}

	userPrompt, err := buildPrompt(trades)
	if err != nil || s.completer == nil {
		if err != nil {
			slog.Error("narrator prompt encoding failed", "err", err)
		}
		metrics.NarratorCalls.WithLabelValues("fallback").Inc()
		return Fallback
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.completer.CompleteWithSystem(ctx, persona, userPrompt)
	metrics.NarratorLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("narrator call failed", "trades", len(trades), "err", err)
		metrics.NarratorCalls.WithLabelValues("fallback").Inc()
		return Fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("narrator returned empty text", "trades", len(trades))
		metrics.NarratorCalls.WithLabelValues("fallback").Inc()
		return Fallback
	}

	metrics.NarratorCalls.WithLabelValues("ok").Inc()
	return text
}

// buildPrompt distills the head of the slice, which is the most recent
// trades in store order.
func buildPrompt(trades []model.Trade) (string, error) {
	n := min(len(trades), MaxTrades)
	digests := make([]digest, n)
	for i, t := range trades[:n] {
		digests[i] = digest{
			Asset:      t.Asset,
			Result:     t.ResultCash,
			Setup:      t.Setup,
			Planned:    t.IsPlanned,
			Emotion:    t.Emotion,
			Discipline: t.DisciplineNote,
			Time:       t.EntryTime,
		}
	}
	data, err := json.Marshal(digests)
	if err != nil {
		return "", err
	}
	return prompt + string(data), nil
}
