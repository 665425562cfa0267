package telegram

import (
	"context"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	json "github.com/goccy/go-json"

	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/logging"
)

// Deps are the services the command handlers use. Commentator may be nil.
type Deps struct {
	Store       HoldingStore
	Engine      *finance.Engine
	Commentator Commentator
	Charts      *finance.ChartCache
}

type Bot struct {
	api    *tgbotapi.BotAPI
	h      *Handlers
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBot(token, webhookURL string, deps Deps, logger *logging.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	logger.Info().Str("url", webhookURL).Str("bot", api.Self.UserName).Msg("telegram webhook set")

	b := newBot(NewHandlers(api, deps.Store, deps.Engine, deps.Commentator, deps.Charts, logger), logger)
	b.api = api
	return b, nil
}

func newBot(h *Handlers, logger *logging.Logger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{h: h, logger: logger, ctx: ctx, cancel: cancel}
}

// WebhookHandler accepts Telegram updates (registered at /telegram/webhook).
// Messages are handled in the background so Telegram gets its 200 at once.
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil {
		b.logger.Debug().Int("update_id", update.UpdateID).Msg("webhook: non-message update received")
		w.WriteHeader(http.StatusOK)
		return
	}

	m := update.Message
	b.logger.Debug().Int64("chat_id", m.Chat.ID).Str("text", m.Text).Msg("webhook: message received")
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.h.HandleMessage(b.ctx, m)
	}()
	w.WriteHeader(http.StatusOK)
}

// Shutdown waits for in-flight messages until ctx ends, then cancels them.
func (b *Bot) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		return ctx.Err()
	}
}
