package storage

import (
	"path/filepath"
	"testing"
	"time"

	"grnflow/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordRun(t *testing.T) {
	db := openTestDB(t)

	stats := internal.RunStats{
		StartTime:        time.Now().Add(-time.Minute),
		EndTime:          time.Now(),
		EmailsChecked:    2,
		AttachmentsSaved: 1,
		Status:           "Completed Successfully",
	}
	if err := db.RecordRun("abc123", stats); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM runs WHERE traceId = ?`, "abc123").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count=%d", count)
	}
}

func TestAcquireLease(t *testing.T) {
	db := openTestDB(t)

	ok, err := db.AcquireLease("workflow", "host-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first acquire failed")
	}

	ok, err = db.AcquireLease("workflow", "host-2", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second holder acquired a live lease")
	}
}

func TestAcquireLeaseReentrant(t *testing.T) {
	db := openTestDB(t)

	if ok, _ := db.AcquireLease("workflow", "host-1", time.Hour); !ok {
		t.Fatal("first acquire failed")
	}
	ok, err := db.AcquireLease("workflow", "host-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("same holder could not renew")
	}
}

func TestAcquireLeaseExpired(t *testing.T) {
	db := openTestDB(t)

	if ok, _ := db.AcquireLease("workflow", "host-1", -time.Minute); !ok {
		t.Fatal("first acquire failed")
	}
	ok, err := db.AcquireLease("workflow", "host-2", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("stale lease not claimed")
	}
}

func TestReleaseLease(t *testing.T) {
	db := openTestDB(t)

	if ok, _ := db.AcquireLease("workflow", "host-1", time.Hour); !ok {
		t.Fatal("acquire failed")
	}
	if err := db.ReleaseLease("workflow", "host-1"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.AcquireLease("workflow", "host-2", time.Hour); !ok {
		t.Fatal("released lease not acquirable")
	}
}

func TestReleaseLeaseWrongHolder(t *testing.T) {
	db := openTestDB(t)

	if ok, _ := db.AcquireLease("workflow", "host-1", time.Hour); !ok {
		t.Fatal("acquire failed")
	}
	if err := db.ReleaseLease("workflow", "host-2"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.AcquireLease("workflow", "host-2", time.Hour); ok {
		t.Fatal("lease was released by the wrong holder")
	}
}
