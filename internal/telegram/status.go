package telegram

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/logging"
)

// statusBoard relays loader transitions to one chat as a single message that
// is edited in place. Queued events only seed the board.
type statusBoard struct {
	api    sender
	chatID int64
	logger *logging.Logger

	mu        sync.Mutex
	messageID int
	order     []string
	states    map[string]finance.TickerStatus
}

func newStatusBoard(api sender, chatID int64, logger *logging.Logger) *statusBoard {
	return &statusBoard{api: api, chatID: chatID, logger: logger, states: map[string]finance.TickerStatus{}}
}

func (b *statusBoard) OnStatus(ev finance.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.states[ev.Symbol]; !ok {
		b.order = append(b.order, ev.Symbol)
	}
	st := finance.TickerStatus{Symbol: ev.Symbol, State: ev.To, Source: ev.Source, Range: ev.Range, Points: ev.Points}
	if ev.Err != nil {
		st.Error = ev.Err.Error()
	}
	b.states[ev.Symbol] = st

	if ev.To == finance.StateQueued {
		return
	}
	b.flush()
}

func (b *statusBoard) render() string {
	lines := make([]string, 0, len(b.order)+1)
	lines = append(lines, "Loading price history…")
	for _, sym := range b.order {
		lines = append(lines, statusLine(b.states[sym]))
	}
	return strings.Join(lines, "\n")
}

func (b *statusBoard) flush() {
	text := b.render()
	if b.messageID == 0 {
		msg, err := b.api.Send(tgbotapi.NewMessage(b.chatID, text))
		if err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", b.chatID).Msg("status message send failed")
			return
		}
		b.messageID = msg.MessageID
		return
	}
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(b.chatID, b.messageID, text)); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", b.chatID).Msg("status message edit failed")
	}
}
