package shortener

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sundayezeilo/tinylink/internal/errx"
)

// sqliteTimeLayout is fixed width so lexical order matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	liteCreateLink = `INSERT INTO links (code, target_url, created_at)
VALUES (?, ?, ?)
ON CONFLICT (code) DO NOTHING
RETURNING ` + linkColumns

	liteGetLink = `SELECT ` + linkColumns + ` FROM links WHERE code = ?`

	liteListLinks = `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, rowid DESC`

	liteIncrementClicks = `UPDATE links
SET total_clicks = total_clicks + 1, last_clicked = ?
WHERE code = ?
RETURNING ` + linkColumns

	liteDeleteLink = `DELETE FROM links WHERE code = ?`
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a Repository backed by a SQLite database
// opened with the sqlite or libsql driver.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func scanSQLiteLink(row rowScanner) (Link, error) {
	var (
		link        Link
		lastClicked sql.NullString
		createdAt   string
	)
	if err := row.Scan(&link.Code, &link.TargetURL, &link.TotalClicks, &lastClicked, &createdAt); err != nil {
		return Link{}, err
	}

	t, err := parseSQLiteTime(createdAt)
	if err != nil {
		return Link{}, err
	}
	link.CreatedAt = t

	if lastClicked.Valid {
		lc, err := parseSQLiteTime(lastClicked.String)
		if err != nil {
			return Link{}, err
		}
		link.LastClicked = &lc
	}
	return link, nil
}

func mapSQLiteError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	case isCheckViolation(err):
		return errx.E(op, errx.Invalid, err)

	default:
		return errx.E(op, errx.Internal, err)
	}
}

func (r *sqliteRepository) Create(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Create"

	row := r.db.QueryRowContext(ctx, liteCreateLink, link.Code, link.TargetURL, formatSQLiteTime(link.CreatedAt))
	created, err := scanSQLiteLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, errx.E(op, errx.Conflict, fmt.Errorf("code %q already exists", link.Code))
	}
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return created, nil
}

func (r *sqliteRepository) GetByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.GetByCode"

	link, err := scanSQLiteLink(r.db.QueryRowContext(ctx, liteGetLink, code))
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepository) List(ctx context.Context) ([]Link, error) {
	const op = "shortener.repo.List"

	rows, err := r.db.QueryContext(ctx, liteListLinks)
	if err != nil {
		return nil, mapSQLiteError(op, err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, mapSQLiteError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(op, err)
	}
	return links, nil
}

func (r *sqliteRepository) IncrementClicks(ctx context.Context, code string, at time.Time) (Link, error) {
	const op = "shortener.repo.IncrementClicks"

	row := r.db.QueryRowContext(ctx, liteIncrementClicks, formatSQLiteTime(at), code)
	link, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepository) Delete(ctx context.Context, code string) error {
	const op = "shortener.repo.Delete"

	if _, err := r.db.ExecContext(ctx, liteDeleteLink, code); err != nil {
		return mapSQLiteError(op, err)
	}
	return nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	const op = "shortener.repo.Ping"

	if err := r.db.PingContext(ctx); err != nil {
		return errx.E(op, errx.Internal, err)
	}
	return nil
}
