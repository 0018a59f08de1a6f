package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	keyRecords      = "records"
	keyAchievements = "achievements"
)

// SQLite keeps records and achievements as JSON values in a kv table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// WAL lets the debug tooling read while the server writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *SQLite) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`)
	return err
}

func (db *SQLite) get(key string, dst any) (bool, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (db *SQLite) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (db *SQLite) LoadRecords() (Records, error) {
	var r Records
	if _, err := db.get(keyRecords, &r); err != nil {
		return Records{}, err
	}
	return r, nil
}

func (db *SQLite) SaveRecords(r Records) error {
	return db.put(keyRecords, r)
}

func (db *SQLite) LoadAchievements() (map[string]bool, error) {
	a := make(map[string]bool)
	if _, err := db.get(keyAchievements, &a); err != nil {
		return nil, err
	}
	return copyAchievements(a), nil
}

func (db *SQLite) SaveAchievements(a map[string]bool) error {
	return db.put(keyAchievements, copyAchievements(a))
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}
