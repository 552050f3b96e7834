// Package sqlite stores links and users in SQLite, either a local file through
// modernc.org/sqlite or a remote libsql database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type DBStore struct {
	db *sql.DB
}

// DriverFor picks the database/sql driver for a DSN.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		return "libsql"
	}
	return "sqlite"
}

func NewSQLiteStore(ctx context.Context, dsn string) (*DBStore, error) {
	driver := DriverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer keeps SQLITE_BUSY away and lets ":memory:" databases be shared.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		for _, pragma := range []string{
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("error setting %q: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DBStore{db: db}, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

const linkColumns = `id, short_code, destination_url, owner_id, guest_id, click_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*models.Link, error) {
	var (
		link    models.Link
		created int64
	)
	if err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.DestinationURL,
		&link.OwnerID,
		&link.GuestID,
		&link.ClickCount,
		&created,
	); err != nil {
		return nil, err
	}
	link.CreatedAt = time.Unix(0, created).UTC()
	return &link, nil
}

func (s *DBStore) CreateLink(ctx context.Context, link *models.Link) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT (short_code) DO NOTHING
	`, link.ID, link.ShortCode, link.DestinationURL, link.OwnerID, link.GuestID, link.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("code %q: %w", link.ShortCode, store.ErrCodeConflict)
		}
		return fmt.Errorf("error inserting link: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("code %q: %w", link.ShortCode, store.ErrCodeConflict)
	}
	return nil
}

func (s *DBStore) getLink(ctx context.Context, column, value string) (*models.Link, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE `+column+` = ?`, value)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error selecting link: %w", err)
	}
	return link, nil
}

func (s *DBStore) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	return s.getLink(ctx, "short_code", code)
}

func (s *DBStore) GetLinkByID(ctx context.Context, id string) (*models.Link, error) {
	return s.getLink(ctx, "id", id)
}

func ownerFilter(owner models.Owner) (string, any) {
	if owner.UserID != "" {
		return "owner_id = ?", owner.UserID
	}
	return "owner_id = '' AND guest_id = ?", owner.GuestID
}

func (s *DBStore) ListLinksByOwner(
	ctx context.Context,
	owner models.Owner,
	limit, offset int,
) ([]models.Link, int, error) {
	if owner.IsZero() {
		return []models.Link{}, 0, nil
	}
	where, arg := ownerFilter(owner)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting links: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, arg, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("error selecting links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0, limit)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating links: %w", err)
	}
	return links, total, nil
}

func (s *DBStore) IncrementClicks(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE links SET click_count = click_count + 1 WHERE short_code = ?`, code)
	if err != nil {
		return fmt.Errorf("error incrementing clicks: %w", err)
	}
	return expectOne(res)
}

func (s *DBStore) DeleteLink(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting link: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DBStore) CreateUser(ctx context.Context, user *models.User, passwordHash string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, verified, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Verified, user.CreatedAt.UnixNano(),
	); err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailTaken
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (user_id, password_hash) VALUES (?, ?)`, user.ID, passwordHash,
	); err != nil {
		return fmt.Errorf("error inserting credentials: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing user: %w", err)
	}
	return nil
}

func (s *DBStore) UpdatePendingUser(ctx context.Context, user *models.User, passwordHash string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ? AND verified = 0`, user.Name, user.ID)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if err = expectOne(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE credentials SET password_hash = ? WHERE user_id = ?`, passwordHash, user.ID,
	); err != nil {
		return fmt.Errorf("error updating credentials: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing user: %w", err)
	}
	return nil
}

func (s *DBStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	var (
		user    models.User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, verified, created_at FROM users WHERE `+column+` = ?`, value,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Verified, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error selecting user: %w", err)
	}
	user.CreatedAt = time.Unix(0, created).UTC()
	return &user, nil
}

func (s *DBStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *DBStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *DBStore) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM credentials WHERE user_id = ?`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("error selecting credentials: %w", err)
	}
	return hash, nil
}

func (s *DBStore) MarkUserVerified(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET verified = 1 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("error verifying user: %w", err)
	}
	return expectOne(res)
}

func (s *DBStore) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM links), (SELECT COUNT(*) FROM users)`,
	).Scan(&stats.URLs, &stats.Users)
	if err != nil {
		return nil, fmt.Errorf("error counting stats: %w", err)
	}
	return &stats, nil
}

func (s *DBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DBStore) Close() error {
	return s.db.Close()
}
