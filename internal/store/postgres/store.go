package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/store"
)

const uniqueViolation = "23505"

type DBStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*DBStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &DBStore{pool: pool}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const linkColumns = `id::text, short_code, destination_url, owner_id, guest_id, click_count, created_at`

func scanLink(row pgx.Row) (*models.Link, error) {
	var link models.Link
	if err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.DestinationURL,
		&link.OwnerID,
		&link.GuestID,
		&link.ClickCount,
		&link.CreatedAt,
	); err != nil {
		return nil, err
	}
	link.CreatedAt = link.CreatedAt.UTC()
	return &link, nil
}

func (db *DBStore) CreateLink(ctx context.Context, link *models.Link) error {
	tag, err := db.pool.Exec(ctx, `
		INSERT INTO links (id, short_code, destination_url, owner_id, guest_id, click_count, created_at)
		VALUES (@id, @code, @url, @owner, @guest, 0, @created)
		ON CONFLICT (short_code) DO NOTHING
	`, pgx.NamedArgs{
		"id":      link.ID,
		"code":    link.ShortCode,
		"url":     link.DestinationURL,
		"owner":   link.OwnerID,
		"guest":   link.GuestID,
		"created": link.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("error inserting link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("code %q: %w", link.ShortCode, store.ErrCodeConflict)
	}
	return nil
}

func (db *DBStore) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	return db.getLink(ctx, `SELECT `+linkColumns+` FROM links WHERE short_code = $1`, code)
}

func (db *DBStore) GetLinkByID(ctx context.Context, id string) (*models.Link, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return db.getLink(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1::uuid`, uid)
}

// parseID normalizes a row id. A ref that is not a uuid cannot match any row.
func parseID(id string) (string, bool) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return uid.String(), true
}

func (db *DBStore) getLink(ctx context.Context, query string, arg string) (*models.Link, error) {
	link, err := scanLink(db.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error selecting link: %w", err)
	}
	return link, nil
}

func ownerFilter(owner models.Owner) (string, string) {
	if owner.UserID != "" {
		return "owner_id = $1", owner.UserID
	}
	return "owner_id = '' AND guest_id = $1", owner.GuestID
}

func (db *DBStore) ListLinksByOwner(
	ctx context.Context,
	owner models.Owner,
	limit, offset int,
) ([]models.Link, int, error) {
	if owner.IsZero() {
		return []models.Link{}, 0, nil
	}
	where, arg := ownerFilter(owner)

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM links WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting links: %w", err)
	}

	rows, err := db.pool.Query(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
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

func (db *DBStore) IncrementClicks(ctx context.Context, code string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE links SET click_count = click_count + 1 WHERE short_code = $1`, code)
	if err != nil {
		return fmt.Errorf("error incrementing clicks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DBStore) DeleteLink(ctx context.Context, id string) error {
	uid, ok := parseID(id)
	if !ok {
		return store.ErrNotFound
	}
	tag, err := db.pool.Exec(ctx, `DELETE FROM links WHERE id = $1::uuid`, uid)
	if err != nil {
		return fmt.Errorf("error deleting link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DBStore) CreateUser(ctx context.Context, user *models.User, passwordHash string) error {
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, name, email, verified, created_at) VALUES ($1, $2, $3, $4, $5)`,
			user.ID, user.Name, user.Email, user.Verified, user.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO credentials (user_id, password_hash) VALUES ($1, $2)`, user.ID, passwordHash)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailTaken
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (db *DBStore) UpdatePendingUser(ctx context.Context, user *models.User, passwordHash string) error {
	uid, ok := parseID(user.ID)
	if !ok {
		return store.ErrNotFound
	}
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET name = $1 WHERE id = $2::uuid AND NOT verified`, user.Name, uid)
		if err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE credentials SET password_hash = $1 WHERE user_id = $2::uuid`, passwordHash, uid,
		); err != nil {
			return fmt.Errorf("error updating credentials: %w", err)
		}
		return nil
	})
}

func (db *DBStore) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var user models.User
	err := db.pool.QueryRow(ctx,
		`SELECT id::text, name, email, verified, created_at FROM users WHERE `+where, arg,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Verified, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error selecting user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (db *DBStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "email = $1", email)
}

func (db *DBStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return db.getUser(ctx, "id = $1::uuid", uid)
}

func (db *DBStore) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	uid, ok := parseID(userID)
	if !ok {
		return "", store.ErrNotFound
	}
	var hash string
	err := db.pool.QueryRow(ctx, `SELECT password_hash FROM credentials WHERE user_id = $1::uuid`, uid).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("error selecting credentials: %w", err)
	}
	return hash, nil
}

func (db *DBStore) MarkUserVerified(ctx context.Context, userID string) error {
	uid, ok := parseID(userID)
	if !ok {
		return store.ErrNotFound
	}
	tag, err := db.pool.Exec(ctx, `UPDATE users SET verified = TRUE WHERE id = $1::uuid`, uid)
	if err != nil {
		return fmt.Errorf("error verifying user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DBStore) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := db.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM links), (SELECT COUNT(*) FROM users)`,
	).Scan(&stats.URLs, &stats.Users)
	if err != nil {
		return nil, fmt.Errorf("error counting stats: %w", err)
	}
	return &stats, nil
}

func (db *DBStore) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DBStore) Close() error {
	db.pool.Close()
	return nil
}
