// Package analytics records privacy-conscious page visits and summarizes
// them, together with content totals, for the admin dashboard.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const timeFormat = "2006-01-02 15:04:05"

// Visit is one recorded page view. The client IP is only kept as a salted
// hash.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type PathStat struct {
	Path   string `json:"path"`
	Visits int64  `json:"visits"`
}

type VisitorStats struct {
	TotalVisitors    int64      `json:"total_visitors"`
	UniqueVisitors   int64      `json:"unique_visitors"`
	VisitorsToday    int64      `json:"visitors_today"`
	VisitorsThisWeek int64      `json:"visitors_this_week"`
	TopPaths         []PathStat `json:"top_paths"`
	RecentVisitors   []Visit    `json:"recent_visitors"`
}

// Tracker stores visits in the site database.
type Tracker struct {
	db              *sql.DB
	salt            string
	retentionMonths int
	logger          *log.Logger
	now             func() time.Time
}

// NewTracker creates the visitors table if needed. The hashing salt is
// random per process, so hashes cannot be correlated across restarts.
func NewTracker(db *sql.DB, retentionMonths int, logger *log.Logger) (*Tracker, error) {
	if logger == nil {
		logger = log.Default()
	}
	t := &Tracker{
		db:              db,
		salt:            randomHex(32),
		retentionMonths: retentionMonths,
		logger:          logger,
		now:             time.Now,
	}
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create visitors table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors (timestamp)`); err != nil {
		return nil, fmt.Errorf("failed to index visitors table: %w", err)
	}
	logger.Println("Privacy: Visitor tracking enabled with hashed IP addresses")
	return t, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// HashIP returns a short salted hash of ip, consistent for the life of the
// tracker.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

var untrackedPrefixes = []string{"/static/", "/uploads/", "/admin", "/api/", "/live", "/favicon"}

// Middleware records page views in the background. Static files, admin
// pages and requests carrying "DNT: 1" are skipped.
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != "GET" || c.GetHeader("DNT") == "1" || isUntracked(path) {
			c.Next()
			return
		}
		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		go func() {
			if err := t.Record(context.Background(), ip, ua, path); err != nil {
				t.logger.Printf("Error recording visitor: %v", err)
			}
		}()
		c.Next()
	}
}

func isUntracked(path string) bool {
	for _, p := range untrackedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (t *Tracker) Record(ctx context.Context, ip, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		t.HashIP(ip), userAgent, path, t.now().UTC().Format(timeFormat))
	return err
}

// Cleanup deletes visits older than the retention period.
func (t *Tracker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := t.now().UTC().AddDate(0, -t.retentionMonths, 0).Format(timeFormat)
	result, err := t.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean up visitor data: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		t.logger.Printf("Privacy cleanup: Removed %d visitor records older than %d months", n, t.retentionMonths)
	}
	return n, nil
}

// RunCleanup runs Cleanup now and then once per interval until ctx is done.
func (t *Tracker) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := t.Cleanup(ctx); err != nil {
			t.logger.Printf("%v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stats summarizes recorded visits.
func (t *Tracker) Stats(ctx context.Context) (*VisitorStats, error) {
	stats := &VisitorStats{}
	now := t.now().UTC()
	today := now.Format("2006-01-02")
	weekAgo := now.AddDate(0, 0, -7).Format(timeFormat)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE DATE(timestamp) = ?`, []any{today}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{weekAgo}},
	}
	for _, c := range counts {
		if err := t.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	var err error
	stats.TopPaths, err = t.topPaths(ctx, 10)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors, err = t.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (t *Tracker) topPaths(ctx context.Context, limit int) ([]PathStat, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS visits
		FROM visitors
		GROUP BY path
		ORDER BY visits DESC, path ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []PathStat
	for rows.Next() {
		var p PathStat
		if err := rows.Scan(&p.Path, &p.Visits); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Recent returns the latest visits, newest first.
func (t *Tracker) Recent(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var ts string
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, err
		}
		v.Timestamp, _ = time.Parse(timeFormat, ts)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
