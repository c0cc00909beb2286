package overrides

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists override state in a local sqlite database so that manual
// decisions survive score recomputation and process restarts.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS overrides (
	pair_key TEXT PRIMARY KEY,
	status   TEXT NOT NULL
);`

// OpenStore opens (creating if needed) the override database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open override store %q: %w", path, err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init override store: %w", err)
	}

	return &Store{db: db}, nil
}

// Load reads the persisted override sets into a fresh State. Unknown status
// values and malformed keys are skipped.
func (s *Store) Load() (*State, error) {
	rows, err := s.db.Query(`SELECT pair_key, status FROM overrides`)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	defer rows.Close()

	state := NewState()
	for rows.Next() {
		var key, status string
		if err := rows.Scan(&key, &status); err != nil {
			return nil, fmt.Errorf("scan override row: %w", err)
		}
		if _, _, err := SplitKey(key); err != nil {
			continue
		}
		switch Status(status) {
		case StatusManualMatch:
			state.matches[key] = struct{}{}
		case StatusManualNonMatch:
			state.nonMatches[key] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	return state, nil
}

// Save replaces the persisted sets with the state's current contents.
func (s *Store) Save(state *State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM overrides`); err != nil {
		tx.Rollback()
		return fmt.Errorf("save overrides: %w", err)
	}

	for _, key := range state.Matches() {
		if _, err := tx.Exec(`INSERT INTO overrides (pair_key, status) VALUES (?, ?)`, key, string(StatusManualMatch)); err != nil {
			tx.Rollback()
			return fmt.Errorf("save manual match %s: %w", key, err)
		}
	}
	for _, key := range state.NonMatches() {
		if _, err := tx.Exec(`INSERT INTO overrides (pair_key, status) VALUES (?, ?)`, key, string(StatusManualNonMatch)); err != nil {
			tx.Rollback()
			return fmt.Errorf("save manual non-match %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}
