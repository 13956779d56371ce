package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// pq is the PostgreSQL driver
	_ "github.com/lib/pq"
)

// PGStore persists sessions in PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects to PostgreSQL, verifies the connection and ensures the
// schema exists.
func OpenPG(dataSourceName string) (*PGStore, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store := &PGStore{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *PGStore) ensureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS screening_sessions (
			session_id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS level_results (
			session_id TEXT NOT NULL REFERENCES screening_sessions(session_id),
			level INT NOT NULL,
			target_text TEXT NOT NULL,
			transcribed_text TEXT NOT NULL,
			accuracy INT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, level)
		);
	`
	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure session schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *PGStore) Close() error { return p.db.Close() }

func (p *PGStore) SaveLevelData(ctx context.Context, sessionID string, level int, res LevelResult) error {
	if p.db == nil {
		return errors.New("database connection not initialized")
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO screening_sessions (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = now()
	`, sessionID); err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", sessionID, err)
	}

	var priorLevels int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM level_results
		WHERE session_id = $1 AND level < $2
	`, sessionID, level).Scan(&priorLevels); err != nil {
		return fmt.Errorf("failed to check level progression: %w", err)
	}
	if level < 1 || priorLevels != level-1 {
		return fmt.Errorf("%w: level %d with %d prior levels stored", ErrLevelOutOfOrder, level, priorLevels)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO level_results (session_id, level, target_text, transcribed_text, accuracy, completed_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id, level) DO UPDATE
		SET target_text = EXCLUDED.target_text,
		    transcribed_text = EXCLUDED.transcribed_text,
		    accuracy = EXCLUDED.accuracy,
		    completed_at = now()
	`, sessionID, level, res.TargetText, res.TranscribedText, res.Accuracy); err != nil {
		return fmt.Errorf("failed to save level %d for session %s: %w", level, sessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit level save: %w", err)
	}
	return nil
}

func (p *PGStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if p.db == nil {
		return nil, errors.New("database connection not initialized")
	}
	sess := &Session{SessionID: sessionID, LevelResults: make(map[int]LevelResult)}
	err := p.db.QueryRowContext(ctx, `
		SELECT created_at, updated_at FROM screening_sessions WHERE session_id = $1
	`, sessionID).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT level, target_text, transcribed_text, accuracy, completed_at
		FROM level_results
		WHERE session_id = $1
		ORDER BY level ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query level results for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var level int
		var res LevelResult
		if err := rows.Scan(&level, &res.TargetText, &res.TranscribedText, &res.Accuracy, &res.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan level result row: %w", err)
		}
		sess.LevelResults[level] = res
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (p *PGStore) List(ctx context.Context) ([]*Session, error) {
	if p.db == nil {
		return nil, errors.New("database connection not initialized")
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT session_id FROM screening_sessions ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := p.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
