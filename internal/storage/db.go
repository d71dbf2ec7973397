package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"grnflow/internal"
)

// DB is the local run ledger: one row per workflow run plus the run lease
// that keeps overlapping invocations on the same host from racing on the
// remote stores.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  startedAt TEXT NOT NULL,
  endedAt TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  status TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS leases (
  name TEXT PRIMARY KEY,
  holder TEXT NOT NULL,
  expiresAt INTEGER NOT NULL
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) RecordRun(traceID string, stats internal.RunStats) error {
	counts := map[string]int{
		"emailsChecked":      stats.EmailsChecked,
		"attachmentsFound":   stats.AttachmentsFound,
		"attachmentsSaved":   stats.AttachmentsSaved,
		"attachmentsSkipped": stats.AttachmentsSkipped,
		"attachmentsFailed":  stats.AttachmentsFailed,
		"filesFound":         stats.FilesFound,
		"filesProcessed":     stats.FilesProcessed,
		"filesSkipped":       stats.FilesSkipped,
		"filesFailed":        stats.FilesFailed,
		"duplicatesRemoved":  stats.DuplicatesRemoved,
	}
	countsJSON, _ := json.Marshal(counts)

	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, startedAt, endedAt, countsJson, status)
VALUES (?, ?, ?, ?, ?)
`, traceID, stats.StartTime.UTC().Format(time.RFC3339), stats.EndTime.UTC().Format(time.RFC3339), string(countsJSON), stats.Status)
	return err
}

// AcquireLease takes the named lease for ttl. Returns false when another
// holder's lease is still live. A stale lease is claimed over.
func (d *DB) AcquireLease(name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().Unix()
	expires := time.Now().Add(ttl).Unix()

	result, err := d.conn.Exec(`
INSERT INTO leases (name, holder, expiresAt) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET holder = excluded.holder, expiresAt = excluded.expiresAt
WHERE leases.expiresAt < ? OR leases.holder = excluded.holder
`, name, holder, expires, now)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReleaseLease frees the lease if this holder still owns it.
func (d *DB) ReleaseLease(name, holder string) error {
	_, err := d.conn.Exec(`DELETE FROM leases WHERE name = ? AND holder = ?`, name, holder)
	return err
}
