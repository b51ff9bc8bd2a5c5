package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

// Repository implements ports.StateRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/scalper.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist. At most one open
// position per symbol is enforced by a partial unique index.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		quantity REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		trailing_stop REAL DEFAULT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		status TEXT NOT NULL,
		realized_delta REAL DEFAULT NULL,
		pnl REAL DEFAULT NULL,
		close_reason TEXT DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		quantity REAL NOT NULL,
		realized_delta REAL NOT NULL,
		pnl REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		position_id INTEGER NULL,
		close_reason TEXT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_intents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time TIMESTAMP NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		fill_price REAL NOT NULL,
		order_id TEXT NOT NULL,
		client_order_id TEXT NOT NULL,
		purpose TEXT NOT NULL,
		position_side TEXT NOT NULL,
		close_reason TEXT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_one_open ON positions (symbol) WHERE status = 'open';
	CREATE INDEX IF NOT EXISTS idx_trade_history_symbol ON trade_history (symbol, id);
	CREATE INDEX IF NOT EXISTS idx_trade_intents_symbol ON trade_intents (symbol, id);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- Positions ---

// CreatePosition saves a new position and returns its assigned ID.
func (r *Repository) CreatePosition(ctx context.Context, pos *domain.Position) (int64, error) {
	const query = `
	INSERT INTO positions (symbol, side, entry_price, quantity, stop_loss, take_profit, trailing_stop, entry_time, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		pos.Symbol, pos.Side, pos.EntryPrice, pos.Quantity, pos.StopLoss, pos.TakeProfit,
		nullFloat(pos.TrailingStop), pos.EntryTime, pos.Status)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position for symbol %s: %w", pos.Symbol, classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for position %s: %w: %w", pos.Symbol, ports.ErrQueryFailed, err)
	}
	pos.ID = id
	r.logger.Debug(ctx, "Position created", map[string]interface{}{"positionID": id, "symbol": pos.Symbol, "side": pos.Side})
	return id, nil
}

// UpdatePosition modifies an existing position based on its ID.
func (r *Repository) UpdatePosition(ctx context.Context, pos *domain.Position) error {
	const query = `
	UPDATE positions
	SET exit_price = ?, quantity = ?, stop_loss = ?, take_profit = ?, trailing_stop = ?,
	    exit_time = ?, status = ?, realized_delta = ?, pnl = ?, close_reason = ?
	WHERE id = ?`

	var exitTime sql.NullTime
	if !pos.ExitTime.IsZero() {
		exitTime = sql.NullTime{Time: pos.ExitTime, Valid: true}
	}
	var closeReason sql.NullString
	if pos.CloseReason != "" {
		closeReason = sql.NullString{String: string(pos.CloseReason), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		pos.ExitPrice, pos.Quantity, pos.StopLoss, pos.TakeProfit, nullFloat(pos.TrailingStop),
		exitTime, pos.Status, pos.RealizedDelta, pos.PNL, closeReason,
		pos.ID)
	if err != nil {
		return fmt.Errorf("failed to update position ID %d: %w: %w", pos.ID, ports.ErrUpdateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update position ID %d: %w", pos.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position ID %d not found for update: %w", pos.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Position updated", map[string]interface{}{"positionID": pos.ID, "status": pos.Status, "stopLoss": pos.StopLoss})
	return nil
}

// FindOpenPosition retrieves the currently open position for a symbol, if any.
func (r *Repository) FindOpenPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	const query = `
	SELECT id, symbol, side, entry_price, COALESCE(exit_price, 0), quantity, stop_loss, take_profit,
	       trailing_stop, entry_time, exit_time, status, COALESCE(realized_delta, 0), COALESCE(pnl, 0), close_reason
	FROM positions
	WHERE symbol = ? AND status = ?`

	row := r.db.QueryRowContext(ctx, query, symbol, domain.StatusOpen)
	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "No open position found for symbol", map[string]interface{}{"symbol": symbol})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query open position for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	return pos, nil
}

// --- Trades ---

// CreateTrade saves a closed round trip and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trade_history (symbol, side, entry_price, exit_price, quantity, realized_delta, pnl,
	                           entry_time, exit_time, position_id, close_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var positionID sql.NullInt64
	if trade.PositionID != 0 {
		positionID = sql.NullInt64{Int64: trade.PositionID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side, trade.EntryPrice, trade.ExitPrice, trade.Quantity, trade.RealizedDelta, trade.PNL,
		trade.EntryTime, trade.ExitTime, positionID, trade.CloseReason)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade history for symbol %s: %w", trade.Symbol, classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade history %s: %w: %w", trade.Symbol, ports.ErrQueryFailed, err)
	}
	trade.ID = id
	r.logger.Debug(ctx, "Trade history created", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol, "realizedDelta": trade.RealizedDelta})
	return id, nil
}

// FindTrades retrieves the most recent trades for a symbol, oldest first.
// A limit of zero returns every trade.
func (r *Repository) FindTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	const query = `
	SELECT id, symbol, side, entry_price, exit_price, quantity, realized_delta, pnl,
	       entry_time, exit_time, position_id, close_reason
	FROM (
		SELECT * FROM trade_history WHERE symbol = ? ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade history during FindTrades: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade history rows: %w", err)
	}
	return trades, nil
}

// GetTotalProfit sums the realized per-unit delta over closed trades.
func (r *Repository) GetTotalProfit(ctx context.Context, symbol string) (float64, error) {
	const query = `SELECT COALESCE(SUM(realized_delta), 0) FROM trade_history WHERE symbol = ?`
	var total float64
	if err := r.db.QueryRowContext(ctx, query, symbol).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to calculate total profit: %w: %w", ports.ErrQueryFailed, err)
	}
	return total, nil
}

// --- Intents ---

// AppendIntent records a confirmed order.
func (r *Repository) AppendIntent(ctx context.Context, intent *domain.TradeIntent) error {
	const query = `
	INSERT INTO trade_intents (time, symbol, side, quantity, fill_price, order_id, client_order_id,
	                           purpose, position_side, close_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var closeReason sql.NullString
	if intent.CloseReason != "" {
		closeReason = sql.NullString{String: string(intent.CloseReason), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		intent.Time, intent.Symbol, intent.Side, intent.Quantity, intent.FillPrice, intent.OrderID,
		intent.ClientOrderID, intent.Purpose, intent.PositionSide, closeReason)
	if err != nil {
		return fmt.Errorf("failed to insert trade intent for order %s: %w", intent.OrderID, classify(err))
	}
	return nil
}

// FindIntents retrieves the most recent intents for a symbol, oldest first.
func (r *Repository) FindIntents(ctx context.Context, symbol string, limit int) ([]domain.TradeIntent, error) {
	const query = `
	SELECT time, symbol, side, quantity, fill_price, order_id, client_order_id, purpose, position_side, close_reason
	FROM (
		SELECT * FROM trade_intents WHERE symbol = ? ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade intents for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	intents := make([]domain.TradeIntent, 0)
	for rows.Next() {
		var in domain.TradeIntent
		var side, purpose, posSide string
		var closeReason sql.NullString
		if err := rows.Scan(&in.Time, &in.Symbol, &side, &in.Quantity, &in.FillPrice, &in.OrderID,
			&in.ClientOrderID, &purpose, &posSide, &closeReason); err != nil {
			return nil, fmt.Errorf("failed to scan trade intent: %w", err)
		}
		in.Side = domain.OrderSide(side)
		in.Purpose = domain.IntentPurpose(purpose)
		in.PositionSide = domain.PositionSide(posSide)
		if closeReason.Valid {
			in.CloseReason = domain.CloseReason(closeReason.String)
		}
		intents = append(intents, in)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade intent rows: %w", err)
	}
	return intents, nil
}

// --- Helpers ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var side, status string
	var trailing sql.NullFloat64
	var exitTime sql.NullTime
	var closeReason sql.NullString
	err := s.Scan(
		&p.ID, &p.Symbol, &side, &p.EntryPrice, &p.ExitPrice, &p.Quantity, &p.StopLoss, &p.TakeProfit,
		&trailing, &p.EntryTime, &exitTime, &status, &p.RealizedDelta, &p.PNL, &closeReason)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	p.Side = domain.PositionSide(side)
	p.Status = domain.PositionStatus(status)
	if trailing.Valid {
		ts := trailing.Float64
		p.TrailingStop = &ts
	}
	if exitTime.Valid {
		p.ExitTime = exitTime.Time
	}
	if closeReason.Valid {
		p.CloseReason = domain.CloseReason(closeReason.String)
	}
	return p, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	th := &domain.Trade{}
	var side string
	var positionID sql.NullInt64
	var closeReason sql.NullString
	err := s.Scan(
		&th.ID, &th.Symbol, &side, &th.EntryPrice, &th.ExitPrice, &th.Quantity, &th.RealizedDelta, &th.PNL,
		&th.EntryTime, &th.ExitTime, &positionID, &closeReason)
	if err != nil {
		return nil, err
	}
	th.Side = domain.PositionSide(side)
	if positionID.Valid {
		th.PositionID = positionID.Int64
	}
	if closeReason.Valid {
		th.CloseReason = domain.CloseReason(closeReason.String)
	} else {
		th.CloseReason = domain.CloseReasonUnknown // Default if NULL
	}
	return th, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// sqlLimit maps zero (no limit) onto SQLite's negative LIMIT.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// classify wraps driver errors with the matching ports sentinel.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ports.ErrDuplicateEntry, err)
	}
	return fmt.Errorf("%w: %w", ports.ErrQueryFailed, err)
}
