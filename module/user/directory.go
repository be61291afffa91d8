package user

import (
	"context"

	"SaChat/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Directory maps user ids to routing phone numbers and back. Read-only
// from the chat core's perspective; user lifecycle lives elsewhere.
type Directory interface {
	FindUserIDByPhone(ctx context.Context, phone string) (int64, bool, error)
	FindPhoneByUserID(ctx context.Context, userID int64) (string, bool, error)
	FindUsernameByUserID(ctx context.Context, userID int64) (string, bool, error)
}

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) FindUserIDByPhone(ctx context.Context, phone string) (int64, bool, error) {
	var id int64
	err := d.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE phone_number = $1`, phone).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errs.ErrStoreFailure.WrapMsg("find user by phone", "err", err)
	}
	return id, true, nil
}

func (d *PgDirectory) FindPhoneByUserID(ctx context.Context, userID int64) (string, bool, error) {
	var phone string
	err := d.pool.QueryRow(ctx,
		`SELECT phone_number FROM users WHERE id = $1`, userID).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.ErrStoreFailure.WrapMsg("find phone by user", "err", err)
	}
	return phone, phone != "", nil
}

func (d *PgDirectory) FindUsernameByUserID(ctx context.Context, userID int64) (string, bool, error) {
	var username string
	err := d.pool.QueryRow(ctx,
		`SELECT username FROM users WHERE id = $1`, userID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.ErrStoreFailure.WrapMsg("find username by user", "err", err)
	}
	return username, true, nil
}
