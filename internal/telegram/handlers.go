package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/logging"
	"portfolioTracker/internal/portfolio"
	"portfolioTracker/internal/storage"
)

// reCommand captures the command name of "/cmd", "/cmd args" and "/cmd@bot args".
var reCommand = regexp.MustCompile(`^/([a-z]+)(?:@[\w_]+)?(?:\s|$)`)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// HoldingStore persists holdings per chat.
type HoldingStore interface {
	AddHolding(ctx context.Context, chatID int64, h portfolio.Holding) error
	RemoveHolding(ctx context.Context, chatID int64, id string) error
	UpdateCurrentPrice(ctx context.Context, chatID int64, id string, price float64) error
	ListHoldings(ctx context.Context, chatID int64) ([]portfolio.Holding, error)
}

// Commentator writes a narrative for a snapshot.
type Commentator interface {
	Describe(ctx context.Context, snap *finance.Snapshot) (string, error)
}

type Handlers struct {
	api      sender
	store    HoldingStore
	engine   *finance.Engine
	comment  Commentator
	charts   *finance.ChartCache
	logger   *logging.Logger
	timeout  time.Duration
	now      func() time.Time
	mu       sync.Mutex
	lastSnap map[int64]*finance.Snapshot
}

// NewHandlers wires the command handlers. comment may be nil, which disables /insight.
func NewHandlers(api sender, store HoldingStore, engine *finance.Engine, comment Commentator, charts *finance.ChartCache, logger *logging.Logger) *Handlers {
	if charts == nil {
		charts = finance.NewChartCache(finance.DefaultChartTTL)
	}
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Handlers{
		api:      api,
		store:    store,
		engine:   engine,
		comment:  comment,
		charts:   charts,
		logger:   logger,
		timeout:  3 * time.Minute,
		now:      time.Now,
		lastSnap: map[int64]*finance.Snapshot{},
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	g := reCommand.FindStringSubmatch(strings.ToLower(txt))
	if g == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	chatID := m.Chat.ID
	switch g[1] {
	case "add":
		h.handleAdd(ctx, chatID, txt)
	case "remove":
		h.handleRemove(ctx, chatID, txt)
	case "price":
		h.handlePrice(ctx, chatID, txt)
	case "quote":
		h.handleQuote(ctx, chatID, txt)
	case "holdings":
		h.handleHoldings(ctx, chatID)
	case "refresh":
		h.handleRefresh(ctx, chatID)
	case "analytics":
		h.handleAnalytics(ctx, chatID)
	case "hist":
		h.handleHist(ctx, chatID, txt)
	case "chart":
		h.handleChart(ctx, chatID, txt)
	case "compare":
		h.handleCompare(ctx, chatID, txt)
	case "insight":
		h.handleInsight(ctx, chatID)
	case "help", "start":
		h.reply(chatID, helpText)
	}
}

func (h *Handlers) handleAdd(ctx context.Context, chatID int64, txt string) {
	req, err := portfolio.ParseAddCommand(txt)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	price := 0.0
	if req.CurrentPrice != nil {
		price = *req.CurrentPrice
	} else if price, err = h.engine.LatestClose(ctx, req.Symbol); err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch a price for %s: %v\nPass it explicitly: /add %s QTY COST PRICE", req.Symbol, err, req.Symbol))
		return
	}

	holding, err := portfolio.NewHolding(req.Symbol, req.Quantity, req.PurchasePrice, price, h.now())
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	if err := h.store.AddHolding(ctx, chatID, holding); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Str("symbol", holding.Symbol).Msg("add holding failed")
		h.reply(chatID, "Saving the holding failed: "+err.Error())
		return
	}
	h.logger.Info().Int64("chat_id", chatID).Str("symbol", holding.Symbol).Str("id", holding.ID).Msg("holding added")
	h.forget(chatID)
	h.reply(chatID, fmt.Sprintf("Added %s  %s × %g @ %s (now %s)",
		holding.ShortID(), holding.Symbol, holding.Quantity, money(holding.PurchasePrice), money(holding.CurrentPrice)))
}

// resolve maps a user-supplied id prefix to a holding of the chat.
func (h *Handlers) resolve(ctx context.Context, chatID int64, prefix string) (portfolio.Holding, error) {
	holdings, err := h.store.ListHoldings(ctx, chatID)
	if err != nil {
		return portfolio.Holding{}, err
	}
	return portfolio.ResolveID(holdings, prefix)
}

func (h *Handlers) handleRemove(ctx context.Context, chatID int64, txt string) {
	args := strings.Fields(txt)
	if len(args) != 2 {
		h.reply(chatID, "usage: /remove ID")
		return
	}
	holding, err := h.resolve(ctx, chatID, args[1])
	if err == nil {
		err = h.store.RemoveHolding(ctx, chatID, holding.ID)
	}
	if err != nil {
		h.reply(chatID, "Remove failed: "+err.Error())
		return
	}
	h.forget(chatID)
	h.reply(chatID, fmt.Sprintf("Removed %s %s", holding.ShortID(), holding.Symbol))
}

func (h *Handlers) handlePrice(ctx context.Context, chatID int64, txt string) {
	req, err := portfolio.ParsePriceCommand(txt)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	holding, err := h.resolve(ctx, chatID, req.ID)
	if err == nil {
		err = h.store.UpdateCurrentPrice(ctx, chatID, holding.ID, req.Price)
	}
	if err != nil {
		h.reply(chatID, "Price update failed: "+err.Error())
		return
	}
	h.forget(chatID)
	h.reply(chatID, fmt.Sprintf("%s %s now at %s", holding.ShortID(), holding.Symbol, money(req.Price)))
}

func (h *Handlers) handleQuote(ctx context.Context, chatID int64, txt string) {
	sym, _, err := portfolio.ParseSymbolArgs(txt, "/quote")
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	price, err := h.engine.LatestClose(ctx, sym)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", sym, err))
		return
	}
	h.reply(chatID, fmt.Sprintf("%s last close %s", sym, money(price)))
}

func (h *Handlers) handleHoldings(ctx context.Context, chatID int64) {
	holdings, err := h.store.ListHoldings(ctx, chatID)
	if err != nil {
		h.reply(chatID, "Listing holdings failed: "+err.Error())
		return
	}
	h.reply(chatID, formatHoldings(holdings))
}

// handleRefresh fetches one latest close per symbol, sequentially, and updates every
// holding of that symbol. Symbols that fail are skipped.
func (h *Handlers) handleRefresh(ctx context.Context, chatID int64) {
	holdings, err := h.store.ListHoldings(ctx, chatID)
	if err != nil {
		h.reply(chatID, "Listing holdings failed: "+err.Error())
		return
	}
	if len(holdings) == 0 {
		h.reply(chatID, formatHoldings(nil))
		return
	}

	prices := map[string]float64{}
	var failed []string
	for _, sym := range portfolio.Symbols(holdings) {
		price, err := h.engine.LatestClose(ctx, sym)
		if err != nil {
			h.logger.Warn().Err(err).Str("symbol", sym).Msg("latest close failed")
			failed = append(failed, sym)
			continue
		}
		prices[sym] = price
	}

	updated := 0
	for _, hd := range holdings {
		price, ok := prices[hd.Symbol]
		if !ok {
			continue
		}
		if err := h.store.UpdateCurrentPrice(ctx, chatID, hd.ID, price); err != nil {
			h.logger.Error().Err(err).Str("id", hd.ID).Msg("price update failed")
			continue
		}
		updated++
	}

	if updated > 0 {
		h.forget(chatID)
	}
	msg := fmt.Sprintf("Updated %d of %d holdings", updated, len(holdings))
	if len(failed) > 0 {
		msg += "\nSkipped: " + strings.Join(failed, ", ")
	}
	h.reply(chatID, msg)
}

// snapshot refreshes the chat's analytics. sink may be nil.
func (h *Handlers) snapshot(ctx context.Context, chatID int64, sink finance.StatusSink) (*finance.Snapshot, error) {
	holdings, err := h.store.ListHoldings(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, errors.New("no holdings yet, add one with /add")
	}
	snap := h.engine.Refresh(ctx, holdings, sink)
	h.mu.Lock()
	h.lastSnap[chatID] = snap
	h.mu.Unlock()
	return snap, nil
}

// forget drops the chat's last snapshot once its holdings change.
func (h *Handlers) forget(chatID int64) {
	h.mu.Lock()
	delete(h.lastSnap, chatID)
	h.mu.Unlock()
}

func (h *Handlers) handleAnalytics(ctx context.Context, chatID int64) {
	start := h.now()
	snap, err := h.snapshot(ctx, chatID, newStatusBoard(h.api, chatID, h.logger))
	if err != nil {
		h.reply(chatID, "Analytics failed: "+err.Error())
		return
	}
	h.logger.Info().Int64("chat_id", chatID).Int("tickers", len(snap.Tickers)).Dur("took", h.now().Sub(start)).Msg("analytics refreshed")
	h.reply(chatID, formatSnapshot(snap))

	img, err := finance.MakeProjectionChart(snap.Summary.TotalValue.InexactFloat64(), snap.Projections)
	if err != nil {
		h.logger.Warn().Err(err).Msg("projection chart failed")
		return
	}
	h.photo(chatID, "projection.png", img, "Projected value • optimistic / average / pessimistic")
}

func (h *Handlers) handleHist(ctx context.Context, chatID int64, txt string) {
	sym, _, err := portfolio.ParseSymbolArgs(txt, "/hist")
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	d, err := h.engine.Distribution(ctx, sym)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t load %s: %v", sym, err))
		return
	}
	caption := formatDistribution(d)
	if len(d.Histogram.Bins) == 0 {
		h.reply(chatID, caption)
		return
	}

	key := "hist:" + sym + ":" + d.Range
	c, ok := h.charts.Get(key)
	if !ok {
		img, err := finance.MakeHistogramChart(sym, d.Histogram)
		if err != nil {
			h.reply(chatID, "Histogram failed: "+err.Error())
			return
		}
		c = finance.RenderedChart{Image: img, Caption: caption}
		if d.Source == finance.SourceLive {
			h.charts.Set(key, c)
		}
	}
	h.photo(chatID, sym+"_hist.png", c.Image, caption)
}

func (h *Handlers) handleChart(ctx context.Context, chatID int64, txt string) {
	sym, window, err := portfolio.ParseSymbolArgs(txt, "/chart")
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	rng, err := finance.ParseWindow(window)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	key := "chart:" + sym + ":" + rng
	c, ok := h.charts.Get(key)
	if !ok {
		points, src, err := h.engine.Series(ctx, sym, rng)
		if err != nil {
			h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", sym, err))
			return
		}
		img, err := finance.MakePriceChart(sym, rng, points)
		if err != nil {
			h.reply(chatID, "Chart failed: "+err.Error())
			return
		}
		c = finance.RenderedChart{Image: img, Caption: sym + " • " + strings.ToUpper(rng)}
		if src == finance.SourceCache {
			c.Caption += " • cached"
		}
		if perf, ok := analytics.SeriesPerformance(points); ok {
			c.Caption += "\n" + formatPerformance(perf)
		}
		// a cached series is retried live next time
		if src == finance.SourceLive {
			h.charts.Set(key, c)
		}
	}
	h.photo(chatID, sym+"_"+rng+".png", c.Image, c.Caption)
}

// handleCompare loads each symbol's range sequentially and plots them rebased to 100.
func (h *Handlers) handleCompare(ctx context.Context, chatID int64, txt string) {
	syms, window, err := portfolio.ParseCompareCommand(txt)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	rng, err := finance.ParseWindow(window)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	series := make([]finance.NamedSeries, 0, len(syms))
	for _, sym := range syms {
		points, _, err := h.engine.Series(ctx, sym, rng)
		if err != nil {
			h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", sym, err))
			return
		}
		series = append(series, finance.NamedSeries{Symbol: sym, Points: points})
	}
	img, err := finance.MakeIndexedChart(rng, series)
	if err != nil {
		h.reply(chatID, "Comparison failed: "+err.Error())
		return
	}
	h.photo(chatID, strings.Join(syms, "_")+"_indexed.png", img, "Indexed: "+strings.Join(syms, ", ")+" • "+strings.ToUpper(rng))
}

func (h *Handlers) handleInsight(ctx context.Context, chatID int64) {
	if h.comment == nil {
		h.reply(chatID, "Insight is disabled: no OpenAI API key configured.")
		return
	}
	h.mu.Lock()
	snap := h.lastSnap[chatID]
	h.mu.Unlock()
	if snap == nil {
		var err error
		if snap, err = h.snapshot(ctx, chatID, nil); err != nil {
			h.reply(chatID, "Insight failed: "+err.Error())
			return
		}
	}
	out, err := h.comment.Describe(ctx, snap)
	if err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("insight failed")
		h.reply(chatID, "Insight failed: "+err.Error())
		return
	}
	h.reply(chatID, out)
}

func (h *Handlers) photo(chatID int64, name string, img []byte, caption string) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	p.Caption = caption
	if _, err := h.api.Send(p); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("photo send failed")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

var _ HoldingStore = (*storage.Store)(nil)
