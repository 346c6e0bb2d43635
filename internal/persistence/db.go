// Package persistence provides SQLite-based simulation state storage.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/world"
)

// Meta keys stored in sim_meta.
const (
	MetaMicros = "micros"
	MetaSaveID = "save_id"
	MetaSeed   = "seed"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settlements (
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		class INTEGER NOT NULL,
		name TEXT NOT NULL,
		nation TEXT NOT NULL,
		current_population REAL NOT NULL,
		target_population REAL NOT NULL,
		gap_half_life_micros INTEGER NOT NULL,
		last_update_micros INTEGER NOT NULL,
		PRIMARY KEY (pos_x, pos_y)
	);

	CREATE TABLE IF NOT EXISTS nations (
		name TEXT PRIMARY KEY,
		names_used INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_nation ON settlements(nation);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSettlements writes all settlements to the database (full replace).
func (db *DB) SaveSettlements(settlements []social.Settlement) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM settlements"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO settlements
		(pos_x, pos_y, class, name, nation,
		 current_population, target_population, gap_half_life_micros, last_update_micros)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range settlements {
		_, err := stmt.Exec(
			s.Position.X, s.Position.Y, s.Class, s.Name, s.Nation,
			s.CurrentPopulation, s.TargetPopulation,
			s.GapHalfLife.Microseconds(), s.LastPopulationUpdateMicros,
		)
		if err != nil {
			return fmt.Errorf("insert settlement %v: %w", s.Position, err)
		}
	}

	return tx.Commit()
}

type settlementRow struct {
	PosX              int     `db:"pos_x"`
	PosY              int     `db:"pos_y"`
	Class             uint8   `db:"class"`
	Name              string  `db:"name"`
	Nation            string  `db:"nation"`
	CurrentPopulation float64 `db:"current_population"`
	TargetPopulation  float64 `db:"target_population"`
	GapHalfLifeMicros int64   `db:"gap_half_life_micros"`
	LastUpdateMicros  int64   `db:"last_update_micros"`
}

// LoadSettlements reads every stored settlement.
func (db *DB) LoadSettlements() ([]social.Settlement, error) {
	var rows []settlementRow
	err := db.conn.Select(&rows,
		"SELECT * FROM settlements ORDER BY pos_x, pos_y")
	if err != nil {
		return nil, err
	}

	settlements := make([]social.Settlement, 0, len(rows))
	for _, row := range rows {
		settlements = append(settlements, social.Settlement{
			Position:                   world.Position{X: row.PosX, Y: row.PosY},
			Class:                      social.Class(row.Class),
			Name:                       row.Name,
			Nation:                     row.Nation,
			CurrentPopulation:          row.CurrentPopulation,
			TargetPopulation:           row.TargetPopulation,
			GapHalfLife:                microsDuration(row.GapHalfLifeMicros),
			LastPopulationUpdateMicros: row.LastUpdateMicros,
		})
	}
	return settlements, nil
}

func microsDuration(micros int64) time.Duration {
	return time.Duration(micros) * time.Microsecond
}

// SaveNations records each nation's town name pool progress.
func (db *DB) SaveNations(nations []*social.Nation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, n := range nations {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO nations (name, names_used) VALUES (?, ?)",
			n.Name, n.NamesUsed(),
		)
		if err != nil {
			return fmt.Errorf("insert nation %s: %w", n.Name, err)
		}
	}

	return tx.Commit()
}

// LoadNations restores town name pool progress onto an existing roster.
// Nations absent from the database are left untouched.
func (db *DB) LoadNations(nations []*social.Nation) error {
	type nationRow struct {
		Name      string `db:"name"`
		NamesUsed int    `db:"names_used"`
	}
	var rows []nationRow
	if err := db.conn.Select(&rows, "SELECT name, names_used FROM nations"); err != nil {
		return err
	}

	used := make(map[string]int, len(rows))
	for _, row := range rows {
		used[row.Name] = row.NamesUsed
	}
	for _, n := range nations {
		if u, ok := used[n.Name]; ok {
			n.SetNamesUsed(u)
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in sim metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. Missing keys return ("", nil).
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SaveState performs a full save of the settlement store and the clock. The
// save identity is minted on the first save and stable thereafter.
func (db *DB) SaveState(store *social.Store, micros int64) error {
	settlements := store.Settlements()
	slog.Info("saving state", "settlements", len(settlements), "micros", micros)

	if err := db.SaveSettlements(settlements); err != nil {
		return fmt.Errorf("save settlements: %w", err)
	}
	if err := db.SaveNations(store.Nations()); err != nil {
		return fmt.Errorf("save nations: %w", err)
	}
	if err := db.SaveMeta(MetaMicros, strconv.FormatInt(micros, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	id, err := db.GetMeta(MetaSaveID)
	if err != nil {
		return fmt.Errorf("read save id: %w", err)
	}
	if id == "" {
		if err := db.SaveMeta(MetaSaveID, uuid.NewString()); err != nil {
			return fmt.Errorf("save id: %w", err)
		}
	}

	slog.Info("state saved")
	return nil
}

// LoadState restores the settlement store and returns the saved clock. A
// database with no saved clock returns (0, false, nil).
func (db *DB) LoadState(store *social.Store) (int64, bool, error) {
	value, err := db.GetMeta(MetaMicros)
	if err != nil {
		return 0, false, fmt.Errorf("read meta: %w", err)
	}
	if value == "" {
		return 0, false, nil
	}
	micros, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse micros %q: %w", value, err)
	}

	settlements, err := db.LoadSettlements()
	if err != nil {
		return 0, false, fmt.Errorf("load settlements: %w", err)
	}
	for _, s := range settlements {
		store.UpdateSettlement(s)
	}
	if err := db.LoadNations(store.Nations()); err != nil {
		return 0, false, fmt.Errorf("load nations: %w", err)
	}

	slog.Info("state loaded", "settlements", len(settlements), "micros", micros)
	return micros, true, nil
}
