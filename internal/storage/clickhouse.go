package storage

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTrafficTable = `
CREATE TABLE IF NOT EXISTS traffic_records (
    ID         UInt64,
    Timestamp  DateTime64(3),
    SourceIP   String,
    DestIP     String,
    SourcePort UInt16,
    DestPort   UInt16,
    Protocol   LowCardinality(String),
    PacketSize UInt32,
    TCPFlags   String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, ID);
`

const createAlertsTable = `
CREATE TABLE IF NOT EXISTS alerts (
    ID              UInt64,
    Timestamp       DateTime64(3),
    Message         String,
    Severity        LowCardinality(String),
    TrafficRecordID Nullable(UInt64)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, ID);
`

const (
	trafficColumns = "ID, Timestamp, SourceIP, DestIP, SourcePort, DestPort, Protocol, PacketSize, TCPFlags"
	alertColumns   = "ID, Timestamp, Message, Severity, TrafficRecordID"
)

// ClickHouseStore persists records and alerts in ClickHouse. IDs are
// allocated in process, continuing from the largest stored ID.
type ClickHouseStore struct {
	conn      driver.Conn
	trafficID atomic.Uint64
	alertID   atomic.Uint64
}

// NewClickHouseStore connects, ensures the tables exist and seeds the ID counters.
func NewClickHouseStore(cfg config.ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	ctx := context.Background()
	for _, stmt := range []string{createTrafficTable, createAlertsTable} {
		if err := conn.Exec(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	s := &ClickHouseStore{conn: conn}
	for table, counter := range map[string]*atomic.Uint64{"traffic_records": &s.trafficID, "alerts": &s.alertID} {
		var maxID uint64
		if err := conn.QueryRow(ctx, "SELECT max(ID) FROM "+table).Scan(&maxID); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to read max id of %s: %w", table, err)
		}
		counter.Store(maxID)
	}
	logging.Info().Str("host", cfg.Host).Uint64("last_traffic_id", s.trafficID.Load()).
		Msg("connected to ClickHouse and ensured tables exist")
	return s, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// SaveTraffic sends the whole batch as a single insert block, so the batch
// is stored entirely or not at all.
func (s *ClickHouseStore) SaveTraffic(ctx context.Context, records []model.TrafficRecord) ([]model.TrafficRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO traffic_records ("+trafficColumns+")")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to prepare batch: %v", model.ErrPersistence, err)
	}
	defer batch.Abort()

	first := s.trafficID.Add(uint64(len(records))) - uint64(len(records)) + 1
	saved := make([]model.TrafficRecord, len(records))
	for i, rec := range records {
		rec.ID = first + uint64(i)
		saved[i] = rec
		if err := batch.Append(trafficRow(rec)...); err != nil {
			return nil, fmt.Errorf("%w: failed to append record: %v", model.ErrPersistence, err)
		}
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("%w: failed to send batch: %v", model.ErrPersistence, err)
	}
	return saved, nil
}

func trafficRow(rec model.TrafficRecord) []interface{} {
	return []interface{}{
		rec.ID,
		rec.Timestamp,
		rec.SourceIP,
		rec.DestIP,
		uint16(rec.SourcePort),
		uint16(rec.DestPort),
		string(rec.Protocol),
		uint32(rec.PacketSize),
		rec.TCPFlags,
	}
}

func (s *ClickHouseStore) SaveAlert(ctx context.Context, alert model.Alert) (model.Alert, error) {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO alerts ("+alertColumns+")")
	if err != nil {
		return model.Alert{}, fmt.Errorf("%w: failed to prepare batch: %v", model.ErrPersistence, err)
	}
	defer batch.Abort()

	alert.ID = s.alertID.Add(1)
	if err := batch.Append(alert.ID, alert.Timestamp, alert.Message, string(alert.Severity), alert.TrafficRecordID); err != nil {
		return model.Alert{}, fmt.Errorf("%w: failed to append alert: %v", model.ErrPersistence, err)
	}
	if err := batch.Send(); err != nil {
		return model.Alert{}, fmt.Errorf("%w: failed to send alert: %v", model.ErrPersistence, err)
	}
	return alert, nil
}

// buildTrafficQuery renders a filtered traffic listing, newest first.
func buildTrafficQuery(q model.TrafficQuery) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT " + trafficColumns + " FROM traffic_records")

	var where []string
	var args []interface{}
	if q.SourceIP != "" {
		where = append(where, "SourceIP = ?")
		args = append(args, q.SourceIP)
	}
	if q.Protocol != "" {
		where = append(where, "Protocol = ?")
		args = append(args, string(q.Protocol))
	}
	if !q.Since.IsZero() {
		where = append(where, "Timestamp >= ?")
		args = append(args, q.Since)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY Timestamp DESC, ID DESC")
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}

// buildAlertQuery renders a filtered alert listing, newest first.
func buildAlertQuery(q model.AlertQuery) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT " + alertColumns + " FROM alerts")

	var where []string
	var args []interface{}
	if q.Severity != "" {
		where = append(where, "Severity = ?")
		args = append(args, string(q.Severity))
	}
	if !q.Since.IsZero() {
		where = append(where, "Timestamp >= ?")
		args = append(args, q.Since)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY Timestamp DESC, ID DESC")
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}

func (s *ClickHouseStore) QueryTraffic(ctx context.Context, q model.TrafficQuery) ([]model.TrafficRecord, error) {
	query, args := buildTrafficQuery(q)
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []model.TrafficRecord
	for rows.Next() {
		var (
			rec              model.TrafficRecord
			srcPort, dstPort uint16
			size             uint32
			protocol         string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.SourceIP, &rec.DestIP,
			&srcPort, &dstPort, &protocol, &size, &rec.TCPFlags); err != nil {
			return nil, fmt.Errorf("failed to scan traffic record: %w", err)
		}
		rec.SourcePort, rec.DestPort = int(srcPort), int(dstPort)
		rec.PacketSize = int(size)
		rec.Protocol = model.Protocol(protocol)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) QueryAlerts(ctx context.Context, q model.AlertQuery) ([]model.Alert, error) {
	query, args := buildAlertQuery(q)
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var (
			a        model.Alert
			severity string
		)
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Message, &severity, &a.TrafficRecordID); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = model.Severity(severity)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Stats(ctx context.Context, topN int) (model.Stats, error) {
	var stats model.Stats
	var err error
	stats.ProtocolBreakdown, err = s.counts(ctx,
		"SELECT Protocol, count() AS c FROM traffic_records GROUP BY Protocol ORDER BY c DESC, Protocol")
	if err != nil {
		return stats, err
	}
	query := "SELECT SourceIP, count() AS c FROM traffic_records GROUP BY SourceIP ORDER BY c DESC, SourceIP"
	if topN > 0 {
		query += fmt.Sprintf(" LIMIT %d", topN)
	}
	stats.TopSources, err = s.counts(ctx, query)
	return stats, err
}

func (s *ClickHouseStore) counts(ctx context.Context, query string) ([]model.Count, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []model.Count
	for rows.Next() {
		var c model.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}
