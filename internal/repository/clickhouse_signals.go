package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	pkgch "MarketWatch/pkg/clickhouse"
	applogger "MarketWatch/pkg/logger"
)

// CHSignalStore persists consensus results and anomaly events in ClickHouse.
type CHSignalStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHSignalStore(ch *pkgch.Client, l *applogger.Logger) *CHSignalStore {
	return &CHSignalStore{db: ch.DB(), ch: ch, l: l.With("signal-store")}
}

// Schema returns the DDL the store needs. Run through Client.InitSchema at
// startup.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS consensus_results (
            evaluated_at DateTime,
            exchange     LowCardinality(String),
            symbol       LowCardinality(String),
            action       LowCardinality(String),
            score        Int64,
            votes        String
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMM(evaluated_at)
        ORDER BY (symbol, evaluated_at)`,
		`CREATE TABLE IF NOT EXISTS anomaly_events (
            detected_at DateTime,
            exchange    LowCardinality(String),
            symbol      LowCardinality(String),
            metric      LowCardinality(String),
            last_price  Decimal(38, 18),
            volume      Decimal(38, 18)
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMM(detected_at)
        ORDER BY (symbol, detected_at)`,
	}
}

func (s *CHSignalStore) SaveConsensus(ctx context.Context, result models.ConsensusResult) error {
	votes, err := json.Marshal(result.Votes)
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}

	const q = `INSERT INTO consensus_results
        (evaluated_at, exchange, symbol, action, score, votes)
        VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		result.EvaluatedAt, result.Exchange, result.Symbol,
		string(result.Action), int64(result.Score), string(votes)); err != nil {
		s.l.Error("insert consensus",
			applogger.String("symbol", result.Symbol),
			applogger.Error(err))
		return fmt.Errorf("insert consensus: %w", err)
	}
	return nil
}

func (s *CHSignalStore) SaveAnomalies(ctx context.Context, events []models.AnomalyEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin anomaly batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO anomaly_events
        (detected_at, exchange, symbol, metric, last_price, volume)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare anomaly batch: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.DetectedAt, e.Exchange, e.Symbol,
			e.Metric, e.LastPrice, e.Volume); err != nil {
			_ = tx.Rollback()
			s.l.Error("insert anomaly",
				applogger.String("symbol", e.Symbol),
				applogger.Error(err))
			return fmt.Errorf("insert anomaly: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit anomaly batch: %w", err)
	}
	return nil
}

// QueryConsensus returns stored results for one symbol, newest first.
func (s *CHSignalStore) QueryConsensus(ctx context.Context, q domrepo.ConsensusQuery) ([]models.ConsensusResult, error) {
	const query = `SELECT evaluated_at, exchange, symbol, action, score, votes
        FROM consensus_results
        WHERE symbol = ? AND evaluated_at >= ? AND evaluated_at <= ?
        ORDER BY evaluated_at DESC
        LIMIT ?`

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, query, q.Symbol, q.From, q.To, limit)
	if err != nil {
		return nil, fmt.Errorf("query consensus: %w", err)
	}
	defer rows.Close()

	var out []models.ConsensusResult
	for rows.Next() {
		var (
			r     models.ConsensusResult
			score int64
			votes string
		)
		if err := rows.Scan(&r.EvaluatedAt, &r.Exchange, &r.Symbol, &r.Action, &score, &votes); err != nil {
			return nil, fmt.Errorf("scan consensus: %w", err)
		}
		r.Score = int(score)
		if votes != "" {
			if err := json.Unmarshal([]byte(votes), &r.Votes); err != nil {
				s.l.Warn("corrupt votes payload",
					applogger.String("symbol", r.Symbol),
					applogger.Error(err))
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consensus: %w", err)
	}
	return out, nil
}

func (s *CHSignalStore) Close() error {
	return s.ch.Close()
}

var (
	_ domrepo.SignalStore     = (*CHSignalStore)(nil)
	_ domrepo.ConsensusReader = (*CHSignalStore)(nil)
)
