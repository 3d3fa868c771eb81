package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/domain/repository"
	pkgkafka "github.com/lblaseygg/minty/pkg/kafka"
)

var (
	_ repository.FillPublisher = (*KafkaFillPublisher)(nil)
	_ repository.FillArchive   = (*ClickHouseFillArchive)(nil)
)

// KafkaFillPublisher publishes executed fills to the fill event topic.
type KafkaFillPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaFillPublisher(producer *pkgkafka.Producer, topic string) *KafkaFillPublisher {
	return &KafkaFillPublisher{producer: producer, topic: topic}
}

func (p *KafkaFillPublisher) Publish(ctx context.Context, f *models.Fill) error {
	// Keyed by symbol so fills for one instrument stay ordered.
	return p.producer.Publish(ctx, p.topic, []byte(f.Symbol), f)
}

func (p *KafkaFillPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// ClickHouseFillArchive is the append-only audit table for executed fills.
type ClickHouseFillArchive struct {
	db    *sql.DB
	table string
}

func NewClickHouseFillArchive(db *sql.DB, table string) *ClickHouseFillArchive {
	return &ClickHouseFillArchive{db: db, table: table}
}

func (a *ClickHouseFillArchive) Init(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ts       DateTime64(3),
			order_id Int64,
			user_id  Int64,
			symbol   LowCardinality(String),
			side     LowCardinality(String),
			qty      Float64,
			price    Float64,
			value    Float64
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)`, a.table)
	_, err := a.db.ExecContext(ctx, q)
	return err
}

func (a *ClickHouseFillArchive) Store(ctx context.Context, f *models.Fill) error {
	return a.StoreBatch(ctx, []*models.Fill{f})
}

func (a *ClickHouseFillArchive) StoreBatch(ctx context.Context, fills []*models.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(fills); start += chunkSize {
		end := start + chunkSize
		if end > len(fills) {
			end = len(fills)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, f := range fills[start:end] {
			if f == nil || f.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, f.Timestamp, f.OrderID, f.UserID, f.Symbol, string(f.Side), f.Qty, f.Price, f.Value)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, order_id, user_id, symbol, side, qty, price, value) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (a *ClickHouseFillArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseFillArchive) Close() error {
	return nil // DB lifecycle is owned by the clickhouse client
}
