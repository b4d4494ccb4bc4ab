package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Operational event tail
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		level TEXT,
		code TEXT,
		msg TEXT,
		meta TEXT
	)`); err != nil {
		return nil, err
	}

	// Per-principal review history
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records(
		id TEXT PRIMARY KEY,
		principal TEXT NOT NULL,
		input_type TEXT,
		original_input TEXT,
		fields_json TEXT,
		result_json TEXT,
		pass_count INTEGER,
		warn_count INTEGER,
		fail_count INTEGER,
		dur_ms REAL,
		display_name TEXT,
		created_at REAL
	)`); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_principal
		ON records(principal, created_at DESC)`); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) Event(level, code, msg string, meta map[string]interface{}) {
	m := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		m = string(b)
	}
	_, _ = db.Exec(`INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`,
		float64(time.Now().UnixNano())/1e9, level, code, msg, m)
}
