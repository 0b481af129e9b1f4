package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/tinylink/internal/errx"
)

// querier is the subset of *pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const (
	linkColumns = `code, target_url, total_clicks, last_clicked, created_at`

	pgCreateLink = `INSERT INTO links (code, target_url, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (code) DO NOTHING
RETURNING ` + linkColumns

	pgGetLink = `SELECT ` + linkColumns + ` FROM links WHERE code = $1`

	pgListLinks = `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, seq DESC`

	pgIncrementClicks = `UPDATE links
SET total_clicks = total_clicks + 1, last_clicked = $2
WHERE code = $1
RETURNING ` + linkColumns

	pgDeleteLink = `DELETE FROM links WHERE code = $1`
)

type postgresRepository struct {
	q querier
}

// NewPostgresRepository creates a Repository backed by PostgreSQL.
// A *pgxpool.Pool satisfies q.
func NewPostgresRepository(q querier) Repository {
	return &postgresRepository{q: q}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time.UTC(), nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

func scanPostgresLink(row pgx.Row) (Link, error) {
	var (
		link        Link
		lastClicked pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(&link.Code, &link.TargetURL, &link.TotalClicks, &lastClicked, &createdAt); err != nil {
		return Link{}, err
	}

	t, err := mustTime(createdAt, "created_at")
	if err != nil {
		return Link{}, err
	}
	link.CreatedAt = t
	link.LastClicked = timePtr(lastClicked)
	return link, nil
}

func mapPostgresError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	case isCheckViolation(err):
		return errx.E(op, errx.Invalid, err)

	default:
		return errx.E(op, errx.Internal, err)
	}
}

func (r *postgresRepository) Create(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Create"

	created, err := scanPostgresLink(r.q.QueryRow(ctx, pgCreateLink, link.Code, link.TargetURL, link.CreatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		// ON CONFLICT DO NOTHING returns no row for an existing code.
		return Link{}, errx.E(op, errx.Conflict, fmt.Errorf("code %q already exists", link.Code))
	}
	if err != nil {
		return Link{}, mapPostgresError(op, err)
	}
	return created, nil
}

func (r *postgresRepository) GetByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.GetByCode"

	link, err := scanPostgresLink(r.q.QueryRow(ctx, pgGetLink, code))
	if err != nil {
		return Link{}, mapPostgresError(op, err)
	}
	return link, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Link, error) {
	const op = "shortener.repo.List"

	rows, err := r.q.Query(ctx, pgListLinks)
	if err != nil {
		return nil, mapPostgresError(op, err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		link, err := scanPostgresLink(rows)
		if err != nil {
			return nil, mapPostgresError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(op, err)
	}
	return links, nil
}

func (r *postgresRepository) IncrementClicks(ctx context.Context, code string, at time.Time) (Link, error) {
	const op = "shortener.repo.IncrementClicks"

	link, err := scanPostgresLink(r.q.QueryRow(ctx, pgIncrementClicks, code, at))
	if err != nil {
		return Link{}, mapPostgresError(op, err)
	}
	return link, nil
}

func (r *postgresRepository) Delete(ctx context.Context, code string) error {
	const op = "shortener.repo.Delete"

	if _, err := r.q.Exec(ctx, pgDeleteLink, code); err != nil {
		return mapPostgresError(op, err)
	}
	return nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	const op = "shortener.repo.Ping"

	if err := r.q.Ping(ctx); err != nil {
		return errx.E(op, errx.Internal, err)
	}
	return nil
}
