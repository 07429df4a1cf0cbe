package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/AngelCh415/funnel_go/internal/funnel"
	"github.com/AngelCh415/funnel_go/internal/models"
)

// SQLiteStore keeps scenarios in a single table. Calculations are not stored;
// they are recomputed from the inputs on read.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens dsn with the connection pragmas in the DSN itself, so every
// pooled connection gets them.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	revision   INTEGER NOT NULL,
	inputs     TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scenarios_updated_at ON scenarios(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, sc models.Scenario) error {
	if sc.ID == "" {
		return eris.New("sqlite: scenario without id")
	}
	inputs, err := json.Marshal(sc.Inputs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal inputs")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, revision, inputs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   revision = excluded.revision,
		   inputs = excluded.inputs,
		   updated_at = excluded.updated_at`,
		sc.ID, sc.Name, sc.Revision, string(inputs), sc.CreatedAt.UTC(), sc.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save scenario %s", sc.ID)
}

func (s *SQLiteStore) Update(ctx context.Context, sc models.Scenario, prev int) error {
	inputs, err := json.Marshal(sc.Inputs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal inputs")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE scenarios SET name = ?, revision = ?, inputs = ?, updated_at = ?
		 WHERE id = ? AND revision = ?`,
		sc.Name, sc.Revision, string(inputs), sc.UpdatedAt.UTC(), sc.ID, prev,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s", sc.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM scenarios WHERE id = ?`, sc.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: update %s", sc.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s", sc.ID)
	}
	return eris.Wrapf(ErrConflict, "sqlite: update %s: revision moved past %d", sc.ID, prev)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Scenario, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, revision, inputs, created_at, updated_at FROM scenarios WHERE id = ?`, id)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Scenario{}, eris.Wrapf(ErrNotFound, "sqlite: get %s", id)
	}
	if err != nil {
		return models.Scenario{}, eris.Wrapf(err, "sqlite: get %s", id)
	}
	return sc, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, revision, inputs, created_at, updated_at FROM scenarios ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scenarios")
	}
	defer rows.Close()

	out := []models.Scenario{}
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scenario")
		}
		out = append(out, sc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rows")
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScenario(r scanner) (models.Scenario, error) {
	var (
		sc      models.Scenario
		inputs  string
		created time.Time
		updated time.Time
	)
	if err := r.Scan(&sc.ID, &sc.Name, &sc.Revision, &inputs, &created, &updated); err != nil {
		return models.Scenario{}, err
	}
	if err := json.Unmarshal([]byte(inputs), &sc.Inputs); err != nil {
		return models.Scenario{}, eris.Wrap(err, "unmarshal inputs")
	}
	sc.CreatedAt = created.UTC()
	sc.UpdatedAt = updated.UTC()
	sc.Calculations = funnel.Compute(sc.Inputs)
	return sc, nil
}
