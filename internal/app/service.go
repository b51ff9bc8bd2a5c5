package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"bandScalper/config"
	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
	"bandScalper/internal/risk"
	"bandScalper/internal/strategy"
	"bandScalper/internal/strategy/analytics"
	"bandScalper/internal/strategy/indicators"
)

const (
	maxTradeLogSize = 500  // Intents kept in memory for status readers
	fillTolerance   = 1e-9 // relative quantity difference still treated as a full fill
	maxRetryDelay   = 10 * time.Second
	publishTimeout  = 2 * time.Second
)

// SnapshotSource computes indicator snapshots from a bar series.
type SnapshotSource interface {
	Warmup() int
	Latest(bars []domain.Bar) (indicators.Snapshot, error)
}

// Option customizes optional collaborators of the TradingService.
type Option func(*TradingService)

// WithPublisher pushes every committed status snapshot to p.
func WithPublisher(p ports.StatusPublisher) Option {
	return func(s *TradingService) { s.publisher = p }
}

// WithMetrics records loop instrumentation on m.
func WithMetrics(m ports.Metrics) Option {
	return func(s *TradingService) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *TradingService) { s.now = now }
}

// TradingService orchestrates the trading bot's operations.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	market    ports.MarketData
	executor  ports.OrderExecutor
	repo      ports.StateRepository
	engine    SnapshotSource
	evaluator *strategy.Evaluator
	risk      *risk.RiskManager
	publisher ports.StatusPublisher
	metrics   ports.Metrics
	now       func() time.Time

	fetchRetry retryPolicy
	orderRetry retryPolicy

	// State fields. The loop goroutine is the only writer of trading state.
	mu            sync.RWMutex // Protects access to state fields below
	running       bool
	runCtx        context.Context // lifetime of the process, reused by Resume
	stopCh        chan struct{}
	loopDone      chan struct{}
	position      *domain.Position
	profit        float64
	intents       []domain.TradeIntent
	trades        []*domain.Trade
	summary       domain.PerformanceSummary
	lastClose     float64
	lastCycleAt   time.Time
	lastErr       *CycleError
	orderFailures int
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	market ports.MarketData,
	executor ports.OrderExecutor,
	repo ports.StateRepository,
	engine SnapshotSource,
	evaluator *strategy.Evaluator,
	riskMgr *risk.RiskManager,
	opts ...Option,
) (*TradingService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || market == nil || executor == nil || repo == nil ||
		engine == nil || evaluator == nil || riskMgr == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	// Validate config values needed by service
	if cfg.Quantity <= 0 {
		return nil, fmt.Errorf("configuration Quantity must be positive")
	}
	if cfg.BarLimit < engine.Warmup() {
		return nil, fmt.Errorf("configuration BarLimit (%d) must cover the indicator warm-up (%d)", cfg.BarLimit, engine.Warmup())
	}
	if cfg.CycleInterval <= 0 || cfg.FetchTimeout <= 0 || cfg.OrderTimeout <= 0 {
		return nil, fmt.Errorf("configuration intervals and timeouts must be positive")
	}
	if cfg.MaxOrderFailures < 1 {
		return nil, fmt.Errorf("configuration MaxOrderFailures must be at least 1")
	}

	s := &TradingService{
		cfg:       cfg,
		logger:    logger,
		market:    market,
		executor:  executor,
		repo:      repo,
		engine:    engine,
		evaluator: evaluator,
		risk:      riskMgr,
		metrics:   ports.NoopMetrics{},
		now:       func() time.Time { return time.Now().UTC() },
		fetchRetry: retryPolicy{
			attempts:  cfg.RetryAttempts,
			timeout:   cfg.FetchTimeout,
			minDelay:  cfg.RetryMinDelay,
			maxDelay:  maxRetryDelay,
			retryable: anyError,
		},
		orderRetry: retryPolicy{
			attempts:  cfg.RetryAttempts,
			timeout:   cfg.OrderTimeout,
			minDelay:  cfg.RetryMinDelay,
			maxDelay:  maxRetryDelay,
			retryable: rejectedOrder,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init restores the open position, cumulative profit and trade log from
// the repository. It must be called before Start.
func (s *TradingService) Init(ctx context.Context) error {
	s.logger.Info(ctx, "Synchronizing initial state...")

	openPos, err := s.repo.FindOpenPosition(ctx, s.cfg.Symbol)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to check for existing open position")
		return fmt.Errorf("failed to query open position: %w", err)
	}
	profit, err := s.repo.GetTotalProfit(ctx, s.cfg.Symbol)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load cumulative profit")
		return fmt.Errorf("failed to load cumulative profit: %w", err)
	}
	intents, err := s.repo.FindIntents(ctx, s.cfg.Symbol, maxTradeLogSize)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load trade log")
		return fmt.Errorf("failed to load trade log: %w", err)
	}
	trades, err := s.repo.FindTrades(ctx, s.cfg.Symbol, 0)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load closed trades")
		return fmt.Errorf("failed to load closed trades: %w", err)
	}

	s.mu.Lock()
	s.position = openPos
	s.profit = profit
	s.intents = intents
	s.trades = trades
	s.summary = analytics.Summarize(trades)
	s.mu.Unlock()

	if openPos != nil {
		s.logger.Info(ctx, "Found existing open position", map[string]interface{}{
			"positionID": openPos.ID,
			"side":       openPos.Side,
			"entryPrice": openPos.EntryPrice,
			"stopLoss":   openPos.StopLoss,
			"takeProfit": openPos.TakeProfit,
		})
		s.metrics.SetPositionOpen(string(openPos.Side), true)
	} else {
		s.logger.Info(ctx, "No existing open position found")
	}
	s.metrics.SetProfit(profit)
	s.logger.Info(ctx, "Initial state synchronized", map[string]interface{}{"profit": profit, "closedTrades": len(trades)})
	return nil
}

// Run starts the loop and blocks until ctx is canceled or a shutdown
// signal arrives, then waits for the in-flight cycle to finish.
func (s *TradingService) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
	s.Stop()
	s.Wait()
	s.logger.Info(ctx, "Trading Service stopped.")
	return nil
}

// Start launches the evaluation loop if it is not already running. A loop
// that is still finishing a cycle after Stop is waited for, so cycles
// never overlap.
func (s *TradingService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.running = true
	s.runCtx = ctx
	s.orderFailures = 0
	s.stopCh = make(chan struct{})
	prev := s.loopDone
	done := make(chan struct{})
	s.loopDone = done

	s.logger.Info(ctx, "Starting evaluation loop", map[string]interface{}{
		"symbol":   s.cfg.Symbol,
		"interval": s.cfg.Interval,
		"cycle":    s.cfg.CycleInterval.String(),
	})
	go s.loop(ctx, s.stopCh, prev, done)
	s.metrics.SetConsecutiveOrderFailures(0)
	return nil
}

// Resume restarts a stopped or halted loop under the context of the last
// Start. It is the operator "start" control.
func (s *TradingService) Resume() error {
	s.mu.RLock()
	ctx := s.runCtx
	s.mu.RUnlock()
	if ctx == nil {
		return fmt.Errorf("evaluation loop was never started")
	}
	return s.Start(ctx)
}

// Stop asks the loop to exit after its current cycle. It never interrupts
// a cycle in progress.
func (s *TradingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *TradingService) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// Wait blocks until the most recently started loop has exited.
func (s *TradingService) Wait() {
	s.mu.RLock()
	done := s.loopDone
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Status returns a consistent copy of the observable state. The caller
// owns the result.
func (s *TradingService) Status() domain.BotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *TradingService) statusLocked() domain.BotStatus {
	intents := make([]domain.TradeIntent, len(s.intents))
	copy(intents, s.intents)
	return domain.BotStatus{
		Symbol:                   s.cfg.Symbol,
		Running:                  s.running,
		Profit:                   s.profit,
		Position:                 s.position.Clone(),
		Trades:                   intents,
		LastClose:                s.lastClose,
		LastCycleAt:              s.lastCycleAt,
		LastError:                s.lastErr.toDomain(),
		ConsecutiveOrderFailures: s.orderFailures,
		Summary:                  s.summary,
	}
}

func (s *TradingService) loop(ctx context.Context, stopCh <-chan struct{}, prev <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		_ = s.RunCycle(ctx)

		timer := time.NewTimer(s.cfg.CycleInterval)
		select {
		case <-stopCh:
			timer.Stop()
			s.logger.Info(ctx, "Evaluation loop stopped")
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunCycle performs one fetch, evaluate and commit step. Recoverable
// failures are returned as *CycleError and recorded in status.
func (s *TradingService) RunCycle(ctx context.Context) error {
	started := s.now()
	outcome := "ok"
	defer func() {
		s.metrics.ObserveCycle(outcome, s.now().Sub(started))
	}()

	bars, err := s.fetchBars(ctx)
	if err != nil {
		outcome = string(KindDataUnavailable)
		return s.fail(ctx, KindDataUnavailable, err, s.lastKnownClose())
	}

	snap, err := s.engine.Latest(bars)
	if err != nil {
		outcome = string(KindDataUnavailable)
		return s.fail(ctx, KindDataUnavailable, err, bars[len(bars)-1].Close)
	}
	closePrice := bars[len(bars)-1].Close

	s.mu.RLock()
	pos := s.position.Clone()
	s.mu.RUnlock()

	var cycleErr error
	if pos == nil {
		cycleErr = s.evaluateEntry(ctx, snap, closePrice)
	} else {
		s.ensureStored(ctx, pos)
		cycleErr = s.advancePosition(ctx, pos, snap, closePrice)
	}

	s.mu.Lock()
	s.lastClose = closePrice
	s.lastCycleAt = started
	s.mu.Unlock()

	var ce *CycleError
	if errors.As(cycleErr, &ce) {
		outcome = string(ce.Kind)
	}
	s.publish(ctx)
	return cycleErr
}

func (s *TradingService) fetchBars(ctx context.Context) ([]domain.Bar, error) {
	var bars []domain.Bar
	err := s.fetchRetry.do(ctx, func(ctx context.Context) error {
		var err error
		bars, err = s.market.FetchBars(ctx, s.cfg.Symbol, s.cfg.Interval, s.cfg.BarLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if len(bars) < s.engine.Warmup() {
		return nil, fmt.Errorf("%w: need %d, got %d", ports.ErrInsufficientData, s.engine.Warmup(), len(bars))
	}
	return bars, nil
}

func (s *TradingService) evaluateEntry(ctx context.Context, snap indicators.Snapshot, closePrice float64) error {
	op := "evaluateEntry"
	sig := s.evaluator.Evaluate(ctx, snap, closePrice)
	s.metrics.IncSignal(string(sig.Kind))
	if sig.Kind == strategy.NoSignal {
		return nil
	}

	side := sig.Side()
	s.logger.Info(ctx, op+": Attempting to enter position", map[string]interface{}{
		"side":       side,
		"close":      closePrice,
		"stopLoss":   sig.StopLoss,
		"takeProfit": sig.TakeProfit,
	})

	res, err := s.submit(ctx, side.EntrySide(), s.cfg.Quantity)
	if err != nil {
		return s.orderFailed(ctx, err, closePrice)
	}

	// Use the actual filled price if available, otherwise fallback to the bar close
	entry := res.AvgPrice
	if entry <= 0 {
		s.logger.Warn(ctx, op+": Entry order AvgPrice is 0, using bar close as fallback", map[string]interface{}{"orderID": res.OrderID, "fallbackPrice": closePrice})
		entry = closePrice
	}
	qty := s.cfg.Quantity
	if res.ExecutedQty > 0 {
		qty = res.ExecutedQty
	}
	at := s.now()
	stopLoss, takeProfit := s.evaluator.Levels(side, entry, snap.ATR)
	pos := s.risk.OpenPosition(s.cfg.Symbol, side, entry, qty, stopLoss, takeProfit, at)
	intent := s.intentFor(res, side.EntrySide(), domain.PurposeOpen, side, "", entry, qty, at)

	// The exchange already holds the position; a failed write must not hide it.
	persistErr := s.persistEntry(ctx, pos, &intent)

	s.mu.Lock()
	s.position = pos
	s.appendIntentLocked(intent)
	s.orderFailures = 0
	if persistErr != nil {
		s.lastErr = persistErr
	}
	s.mu.Unlock()

	s.metrics.SetConsecutiveOrderFailures(0)
	s.metrics.SetPositionOpen(string(side), true)
	s.logger.Info(ctx, op+": Position opened", map[string]interface{}{
		"positionID": pos.ID,
		"side":       side,
		"entryPrice": entry,
		"quantity":   qty,
		"stopLoss":   stopLoss,
		"takeProfit": takeProfit,
	})
	if persistErr != nil {
		return persistErr
	}
	return nil
}

func (s *TradingService) advancePosition(ctx context.Context, pos *domain.Position, snap indicators.Snapshot, closePrice float64) error {
	op := "advancePosition"
	d := s.risk.Advance(pos, snap, closePrice)

	if d.Ratcheted {
		s.logger.Info(ctx, op+": Trailing stop ratcheted", map[string]interface{}{
			"positionID":   pos.ID,
			"side":         pos.Side,
			"stopLoss":     d.Position.StopLoss,
			"trailingStop": *d.Position.TrailingStop,
		})
	}

	if d.Action == risk.Hold {
		var persistErr *CycleError
		if d.Ratcheted {
			if err := s.repo.UpdatePosition(ctx, d.Position); err != nil {
				persistErr = s.persistenceFailed(ctx, err, closePrice, "Failed to persist ratcheted stop")
			}
		}
		s.commitPosition(d.Position, persistErr)
		if persistErr != nil {
			return persistErr
		}
		return nil
	}

	s.logger.Info(ctx, op+": Exit condition met", map[string]interface{}{
		"positionID": pos.ID,
		"reason":     d.Reason,
		"close":      closePrice,
		"stopLoss":   d.Position.StopLoss,
	})

	res, err := s.submit(ctx, pos.Side.ExitSide(), pos.Quantity)
	if err != nil {
		// The position stays open with its ratcheted stops; the exit is retried next cycle.
		s.commitPosition(d.Position, nil)
		if d.Ratcheted {
			if perr := s.repo.UpdatePosition(ctx, d.Position); perr != nil {
				s.logger.Error(ctx, perr, op+": Failed to persist ratcheted stop", map[string]interface{}{"positionID": pos.ID})
			}
		}
		return s.orderFailed(ctx, err, closePrice)
	}

	if res.ExecutedQty > 0 && pos.Quantity-res.ExecutedQty > fillTolerance*pos.Quantity {
		return s.reduceOnPartialExit(ctx, d, res, closePrice)
	}

	exitPrice := res.AvgPrice
	if exitPrice <= 0 {
		s.logger.Warn(ctx, op+": Close order AvgPrice is 0, using bar close as fallback", map[string]interface{}{"orderID": res.OrderID, "fallbackPrice": closePrice})
		exitPrice = closePrice
	}
	at := s.now()
	closed := d.Position.Clone()
	closed.CloseAt(exitPrice, d.Reason, at)
	trade := closed.ToTrade()
	intent := s.intentFor(res, pos.Side.ExitSide(), domain.PurposeClose, pos.Side, d.Reason, exitPrice, closed.Quantity, at)

	persistErr := s.persistExit(ctx, closed, trade, &intent)

	s.mu.Lock()
	s.position = nil
	s.profit += closed.RealizedDelta
	s.trades = append(s.trades, trade)
	s.summary = analytics.Summarize(s.trades)
	s.appendIntentLocked(intent)
	s.orderFailures = 0
	if persistErr != nil {
		s.lastErr = persistErr
	}
	profit := s.profit
	s.mu.Unlock()

	s.metrics.SetConsecutiveOrderFailures(0)
	s.metrics.IncClose(string(d.Reason))
	s.metrics.SetPositionOpen(string(pos.Side), false)
	s.metrics.SetProfit(profit)
	s.logger.Info(ctx, op+": Position closed", map[string]interface{}{
		"positionID":    closed.ID,
		"reason":        d.Reason,
		"exitPrice":     exitPrice,
		"realizedDelta": closed.RealizedDelta,
		"pnl":           closed.PNL,
		"profit":        profit,
	})
	if persistErr != nil {
		return persistErr
	}
	return nil
}

// reduceOnPartialExit keeps the unsold remainder open so the recorded
// state matches what the venue still holds. The sold part's profit
// accumulates in PNL; the per-unit delta is booked once, on the final close.
func (s *TradingService) reduceOnPartialExit(ctx context.Context, d risk.Decision, res *ports.OrderResult, closePrice float64) error {
	op := "reduceOnPartialExit"
	price := res.AvgPrice
	if price <= 0 {
		price = closePrice
	}
	at := s.now()
	reduced := d.Position.Clone()
	reduced.PNL += reduced.RealizedDeltaAt(price) * res.ExecutedQty
	reduced.Quantity -= res.ExecutedQty
	intent := s.intentFor(res, reduced.Side.ExitSide(), domain.PurposeClose, reduced.Side, d.Reason, price, res.ExecutedQty, at)

	persistErr := s.persistReduction(ctx, reduced, &intent)
	s.commitPosition(reduced, persistErr)
	s.mu.Lock()
	s.appendIntentLocked(intent)
	s.mu.Unlock()

	s.logger.Warn(ctx, op+": Exit order partially filled, remainder stays open", map[string]interface{}{
		"positionID": reduced.ID,
		"orderID":    res.OrderID,
		"executed":   res.ExecutedQty,
		"remaining":  reduced.Quantity,
		"fillPrice":  price,
	})
	err := fmt.Errorf("%w: exit order %s filled %v of %v", ports.ErrOrderNotFilled, res.OrderID, res.ExecutedQty, d.Position.Quantity)
	return s.orderFailed(ctx, err, closePrice)
}

// ensureStored retries the insert of a position whose first write failed,
// so later updates and a restart can find it.
func (s *TradingService) ensureStored(ctx context.Context, pos *domain.Position) {
	if pos.ID != 0 {
		return
	}
	id, err := s.repo.CreatePosition(context.WithoutCancel(ctx), pos)
	if err != nil {
		s.logger.Warn(ctx, "Open position is still not persisted", map[string]interface{}{"error": err.Error()})
		return
	}
	pos.ID = id
	s.mu.Lock()
	if s.position != nil {
		s.position.ID = id
	}
	s.mu.Unlock()
	s.logger.Info(ctx, "Open position persisted on retry", map[string]interface{}{"positionID": id})
}

// submit sends a market order and requires a confirmed fill. Order writes
// are detached from cancellation so a shutdown never abandons a sent order.
func (s *TradingService) submit(ctx context.Context, side domain.OrderSide, qty float64) (*ports.OrderResult, error) {
	req := ports.OrderRequest{
		Symbol:        s.cfg.Symbol,
		Side:          side,
		Quantity:      qty,
		ClientOrderID: newClientOrderID(),
	}
	var res *ports.OrderResult
	err := s.orderRetry.do(context.WithoutCancel(ctx), func(ctx context.Context) error {
		var err error
		res, err = s.executor.SubmitOrder(ctx, req)
		return err
	})
	if err != nil {
		s.metrics.IncOrder(string(side), "error")
		return nil, fmt.Errorf("submit %s order %s: %w", side, req.ClientOrderID, err)
	}
	if !res.Filled() {
		s.metrics.IncOrder(string(side), "unfilled")
		return nil, fmt.Errorf("%w: order %s status %q", ports.ErrOrderNotFilled, res.OrderID, res.Status)
	}
	if res.ClientOrderID == "" {
		res.ClientOrderID = req.ClientOrderID
	}
	s.metrics.IncOrder(string(side), "filled")
	return res, nil
}

func (s *TradingService) persistEntry(ctx context.Context, pos *domain.Position, intent *domain.TradeIntent) *CycleError {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if id, err := s.repo.CreatePosition(ctx, pos); err != nil {
		errs = append(errs, err)
	} else {
		pos.ID = id
	}
	if err := s.repo.AppendIntent(ctx, intent); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return s.persistenceFailed(ctx, errors.Join(errs...), intent.FillPrice, "Failed to record new position")
}

func (s *TradingService) persistReduction(ctx context.Context, reduced *domain.Position, intent *domain.TradeIntent) *CycleError {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if reduced.ID != 0 {
		if err := s.repo.UpdatePosition(ctx, reduced); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.repo.AppendIntent(ctx, intent); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return s.persistenceFailed(ctx, errors.Join(errs...), intent.FillPrice, "Failed to record partial exit")
}

func (s *TradingService) persistExit(ctx context.Context, closed *domain.Position, trade *domain.Trade, intent *domain.TradeIntent) *CycleError {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if closed.ID == 0 {
		// never stored: insert the row first so the update below records the exit
		if id, err := s.repo.CreatePosition(ctx, closed); err != nil {
			errs = append(errs, err)
		} else {
			closed.ID = id
			trade.PositionID = id
		}
	}
	if closed.ID != 0 {
		if err := s.repo.UpdatePosition(ctx, closed); err != nil {
			errs = append(errs, err)
		}
	}
	id, err := s.repo.CreateTrade(ctx, trade)
	if err != nil {
		errs = append(errs, err)
	} else {
		trade.ID = id
	}
	if err := s.repo.AppendIntent(ctx, intent); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return s.persistenceFailed(ctx, errors.Join(errs...), intent.FillPrice, "Failed to record closed position")
}

func (s *TradingService) persistenceFailed(ctx context.Context, err error, lastClose float64, msg string) *CycleError {
	ce := &CycleError{Kind: KindPersistenceFailed, Err: err, At: s.now(), LastClose: lastClose}
	s.logger.Error(ctx, err, msg, map[string]interface{}{"kind": ce.Kind, "lastClose": lastClose})
	return ce
}

// orderFailed counts a failed submission and halts the loop once the
// configured number of consecutive failures is reached.
func (s *TradingService) orderFailed(ctx context.Context, err error, lastClose float64) error {
	ce := &CycleError{Kind: KindOrderFailed, Err: err, At: s.now(), LastClose: lastClose}

	s.mu.Lock()
	s.orderFailures++
	failures := s.orderFailures
	s.lastErr = ce
	halted := failures >= s.cfg.MaxOrderFailures
	if halted {
		ce.Err = fmt.Errorf("%w: %w", ports.ErrHalted, err)
		s.stopLocked()
	}
	s.mu.Unlock()

	s.metrics.SetConsecutiveOrderFailures(failures)
	s.logger.Error(ctx, err, "Order submission failed", map[string]interface{}{
		"kind":                ce.Kind,
		"lastClose":           lastClose,
		"consecutiveFailures": failures,
	})
	if halted {
		s.logger.Warn(ctx, "Trading halted, waiting for operator start", map[string]interface{}{"maxOrderFailures": s.cfg.MaxOrderFailures})
	}
	return ce
}

func (s *TradingService) fail(ctx context.Context, kind CycleErrorKind, err error, lastClose float64) error {
	ce := &CycleError{Kind: kind, Err: err, At: s.now(), LastClose: lastClose}
	s.mu.Lock()
	s.lastErr = ce
	s.mu.Unlock()
	s.logger.Warn(ctx, "Cycle skipped", map[string]interface{}{
		"kind":      kind,
		"error":     err.Error(),
		"lastClose": lastClose,
		"at":        ce.At,
	})
	s.publish(ctx)
	return ce
}

func (s *TradingService) commitPosition(pos *domain.Position, persistErr *CycleError) {
	s.mu.Lock()
	s.position = pos
	if persistErr != nil {
		s.lastErr = persistErr
	}
	s.mu.Unlock()
}

func (s *TradingService) appendIntentLocked(intent domain.TradeIntent) {
	s.intents = append(s.intents, intent)
	if len(s.intents) > maxTradeLogSize {
		s.intents = s.intents[len(s.intents)-maxTradeLogSize:]
	}
}

func (s *TradingService) lastKnownClose() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastClose
}

func (s *TradingService) intentFor(res *ports.OrderResult, side domain.OrderSide, purpose domain.IntentPurpose, posSide domain.PositionSide, reason domain.CloseReason, price, qty float64, at time.Time) domain.TradeIntent {
	return domain.TradeIntent{
		Time:          at,
		Symbol:        s.cfg.Symbol,
		Side:          side,
		Quantity:      qty,
		FillPrice:     price,
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Purpose:       purpose,
		PositionSide:  posSide,
		CloseReason:   reason,
	}
}

func (s *TradingService) publish(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	status := s.Status()
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, status); err != nil {
		s.logger.Warn(ctx, "Failed to publish status", map[string]interface{}{"error": err.Error()})
	}
}

// newClientOrderID returns a venue-safe idempotency key (at most 36 chars).
func newClientOrderID() string {
	return "bs" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
