package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as sortable UTC text so range filters and
// strftime grouping work on plain string comparison.
const tsLayout = "2006-01-02 15:04:05"

// Granularity selects how views are bucketed over time.
type Granularity int

const (
	Daily Granularity = iota
	Hourly
	Monthly
)

func (g Granularity) format() string {
	switch g {
	case Hourly:
		return "%H:00"
	case Monthly:
		return "%Y-%m"
	default:
		return "%Y-%m-%d"
	}
}

// Store persists visits in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			screen_size TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL,
			duration_sec INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_path ON visits(visitor_id, path);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

const currentSchemaVersion = 1

func (s *Store) migrate(ctx context.Context) error {
	v, err := s.Setting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if v != "" {
		if version, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse schema version %q: %w", v, err)
		}
	}
	if version >= currentSchemaVersion {
		return nil
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(currentSchemaVersion))
}

// Setting returns a stored value, or "" when key is unset.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSetting upserts a stored value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Hasher returns a Hasher salted with this installation's salt, creating
// the salt on first use.
func (s *Store) Hasher(ctx context.Context) (Hasher, error) {
	salt, err := s.Setting(ctx, "salt")
	if err != nil {
		return Hasher{}, fmt.Errorf("read salt: %w", err)
	}
	if salt != "" {
		return Hasher{salt: salt}, nil
	}
	if salt, err = NewSalt(); err != nil {
		return Hasher{}, err
	}
	if err := s.SetSetting(ctx, "salt", salt); err != nil {
		return Hasher{}, fmt.Errorf("store salt: %w", err)
	}
	return Hasher{salt: salt}, nil
}

// SaveVisit inserts a human page view.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (visitor_id, session_id, ip_hash, browser, os, device,
			path, referrer, screen_size, timestamp, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.SessionID, v.IPHash, v.Browser, v.OS, v.Device,
		v.Path, v.Referrer, v.ScreenSize, v.Timestamp.UTC().Format(tsLayout), v.DurationSec)
	if err != nil {
		return fmt.Errorf("save visit: %w", err)
	}
	return nil
}

// UpdateVisitDuration sets the duration of the visitor's latest view of path.
func (s *Store) UpdateVisitDuration(ctx context.Context, visitorID, path string, sec int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE visits SET duration_sec = ?
		WHERE id = (SELECT id FROM visits WHERE visitor_id = ? AND path = ?
			ORDER BY timestamp DESC, id DESC LIMIT 1)`, sec, visitorID, path)
	if err != nil {
		return fmt.Errorf("update visit duration: %w", err)
	}
	return nil
}

// SaveBotVisit inserts a crawler page view.
func (s *Store) SaveBotVisit(ctx context.Context, v *BotVisit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		v.BotName, v.IPHash, v.UserAgent, v.Path, v.Timestamp.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("save bot visit: %w", err)
	}
	return nil
}

func period(from, to time.Time) string {
	return from.Format("2006-01-02") + " to " + to.Format("2006-01-02")
}

func (s *Store) scalar(ctx context.Context, dst any, query string, from, to time.Time) error {
	return s.db.QueryRowContext(ctx, query, from.UTC().Format(tsLayout), to.UTC().Format(tsLayout)).Scan(dst)
}

// counts runs a two column (label, count) query over [from, to).
func (s *Store) counts(ctx context.Context, query string, from, to time.Time) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, query, from.UTC().Format(tsLayout), to.UTC().Format(tsLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func dimension(table, column string) string {
	return fmt.Sprintf(`SELECT %[2]s, COUNT(*) AS n FROM %[1]s
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY %[2]s ORDER BY n DESC, %[2]s LIMIT 10`, table, column)
}

func buckets(table string, g Granularity) string {
	return fmt.Sprintf(`SELECT strftime('%[2]s', timestamp) AS label, COUNT(*) FROM %[1]s
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY label ORDER BY MIN(timestamp)`, table, g.format())
}

func toPages(d []DimensionStat) []PageStat {
	out := make([]PageStat, len(d))
	for i, x := range d {
		out[i] = PageStat{Path: x.Name, Views: x.Count}
	}
	return out
}

func toBuckets(d []DimensionStat) []Bucket {
	out := make([]Bucket, len(d))
	for i, x := range d {
		out[i] = Bucket{Label: x.Name, Views: x.Count}
	}
	return out
}

// Stats aggregates human traffic in [from, to).
func (s *Store) Stats(ctx context.Context, from, to time.Time, g Granularity) (*Stats, error) {
	st := &Stats{Period: period(from, to), LatestPages: []LatestVisit{}}

	// Each query writes to its own field, so no locking is needed.
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return wrap("count views", s.scalar(ctx, &st.TotalViews,
			`SELECT COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp < ?`, from, to))
	})
	eg.Go(func() error {
		return wrap("count visitors", s.scalar(ctx, &st.UniqueVisitors,
			`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ? AND timestamp < ?`, from, to))
	})
	eg.Go(func() error {
		var avg sql.NullFloat64
		err := s.scalar(ctx, &avg,
			`SELECT AVG(duration_sec) FROM visits WHERE timestamp >= ? AND timestamp < ? AND duration_sec > 0`, from, to)
		st.AvgDuration = int(avg.Float64)
		return wrap("avg duration", err)
	})
	eg.Go(func() error {
		d, err := s.counts(ctx, dimension("visits", "path"), from, to)
		st.TopPages = toPages(d)
		return wrap("top pages", err)
	})
	eg.Go(func() error {
		var err error
		st.LatestPages, err = s.latest(ctx, from, to)
		return wrap("latest pages", err)
	})
	for _, dim := range []struct {
		column string
		dst    *[]DimensionStat
	}{
		{"browser", &st.Browsers},
		{"os", &st.OS},
		{"device", &st.Devices},
		{"referrer", &st.Referrers},
	} {
		eg.Go(func() error {
			var err error
			*dim.dst, err = s.counts(ctx, dimension("visits", dim.column), from, to)
			return wrap(dim.column+" stats", err)
		})
	}
	eg.Go(func() error {
		d, err := s.counts(ctx, buckets("visits", g), from, to)
		st.Views = toBuckets(d)
		return wrap("views", err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) latest(ctx context.Context, from, to time.Time) ([]LatestVisit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, timestamp, browser FROM visits
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC, id DESC LIMIT 20`,
		from.UTC().Format(tsLayout), to.UTC().Format(tsLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LatestVisit{}
	for rows.Next() {
		var v LatestVisit
		if err := rows.Scan(&v.Path, &v.Timestamp, &v.Browser); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// BotStats aggregates crawler traffic in [from, to).
func (s *Store) BotStats(ctx context.Context, from, to time.Time, g Granularity) (*BotStats, error) {
	st := &BotStats{Period: period(from, to)}
	if err := s.scalar(ctx, &st.TotalVisits,
		`SELECT COUNT(*) FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`, from, to); err != nil {
		return nil, fmt.Errorf("count bot visits: %w", err)
	}
	var err error
	if st.TopBots, err = s.counts(ctx, dimension("bot_visits", "bot_name"), from, to); err != nil {
		return nil, fmt.Errorf("top bots: %w", err)
	}
	pages, err := s.counts(ctx, dimension("bot_visits", "path"), from, to)
	if err != nil {
		return nil, fmt.Errorf("top bot pages: %w", err)
	}
	st.TopPages = toPages(pages)
	visits, err := s.counts(ctx, buckets("bot_visits", g), from, to)
	if err != nil {
		return nil, fmt.Errorf("bot visits: %w", err)
	}
	st.Visits = toBuckets(visits)
	return st, nil
}

// Realtime counts distinct visitors in the last five minutes.
func (s *Store) Realtime(ctx context.Context) (int, error) {
	var n int
	cutoff := s.now().UTC().Add(-5 * time.Minute).Format(tsLayout)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`, cutoff).Scan(&n)
	return n, err
}

// Cleanup deletes visits older than retentionDays.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays).Format(tsLayout)
	var total int64
	for _, table := range []string{"visits", "bot_visits"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// ScheduleCleanup runs Cleanup on the given cron spec until the returned
// stop function is called.
func (s *Store) ScheduleCleanup(spec string, retentionDays int, logger *zap.Logger) (func(), error) {
	log := logger.Sugar().Named("analytics")
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.Cleanup(context.Background(), retentionDays)
		if err != nil {
			log.Errorw("analytics cleanup failed", "err", err)
			return
		}
		log.Infow("analytics cleanup", "deleted", n, "retention_days", retentionDays)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", spec, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
