// Package postgres loads authored quiz content. Sessions and their question
// lists are stored as JSONB fixtures; live game state lives in the memory or
// redis stores and is seeded from here.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// Fixture is one authored quiz: the session shell plus its ordered questions.
type Fixture struct {
	Session   domain.Session    `json:"session"`
	Questions []domain.Question `json:"questions"`
}

// FixtureLoader reads quiz fixtures from Postgres.
type FixtureLoader struct {
	pool *pgxpool.Pool
}

func NewFixtureLoader(pool *pgxpool.Pool) *FixtureLoader {
	return &FixtureLoader{pool: pool}
}

// LoadFixture fetches one fixture by session code.
func (l *FixtureLoader) LoadFixture(ctx context.Context, code string) (Fixture, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quiz_fixtures WHERE code=$1`, code).Scan(&raw)
	if err != nil {
		return Fixture{}, fmt.Errorf("load fixture: %w", err)
	}
	var fixture Fixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("unmarshal fixture: %w", err)
	}
	return fixture, nil
}

// ListCodes returns every fixture's session code.
func (l *FixtureLoader) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT code FROM quiz_fixtures ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan fixture code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
