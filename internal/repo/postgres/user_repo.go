package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type UsersRepo struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo { return &UsersRepo{pool: pool} }

const userCols = `id::text, email, name, avatar, blood_group, district, upazila,
role, status, created_at, last_logged_in`

func scanUser(row pgx.Row, extra ...any) (*domain.User, error) {
	var u domain.User
	dest := []any{
		&u.ID, &u.Email, &u.Name, &u.Avatar, &u.BloodGroup, &u.District, &u.Upazila,
		&u.Role, &u.Status, &u.CreatedAt, &u.LastLoggedIn,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepo) SyncLogin(ctx context.Context, u *domain.User, now time.Time) (*domain.User, bool, error) {
	const q = `
INSERT INTO users (email, name, avatar, blood_group, district, upazila, role, status, created_at, last_logged_in)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (email) DO UPDATE SET last_logged_in = $10
RETURNING ` + userCols + `, (xmax = 0) AS inserted`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var inserted bool
	out, err := scanUser(r.pool.QueryRow(ctx, q,
		u.Email, u.Name, u.Avatar, u.BloodGroup, u.District, u.Upazila,
		u.Role, u.Status, u.CreatedAt, now,
	), &inserted)
	if err != nil {
		return nil, false, domain.StoreFailure("users.sync_login", err)
	}
	return out, inserted, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("users.find_by_email", err)
	}
	return u, nil
}

func (r *UsersRepo) Find(ctx context.Context, pred query.Predicate) ([]domain.User, error) {
	suffix, args, err := toSQL(pred, userColumns)
	if err != nil {
		return nil, domain.StoreFailure("users.find", err)
	}
	q := `SELECT ` + userCols + ` FROM users` + suffix

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.StoreFailure("users.find", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.StoreFailure("users.find", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreFailure("users.find", err)
	}
	return users, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, email string, p domain.Profile) (domain.WriteResult, error) {
	const q = `
UPDATE users
SET name=$2, avatar=$3, blood_group=$4, district=$5, upazila=$6
WHERE email=$1`
	return r.exec(ctx, "users.update_profile", q, email, p.Name, p.Avatar, p.BloodGroup, p.District, p.Upazila)
}

var (
	setUserStatusSQL = countedUpdate("users", "status=$2", "status IS DISTINCT FROM $2")
	setUserRoleSQL   = countedUpdate("users", "role=$2", "role IS DISTINCT FROM $2")
)

func (r *UsersRepo) SetStatus(ctx context.Context, id string, status domain.UserStatus) (domain.WriteResult, error) {
	if !validID(id) {
		return domain.Updated(0, 0), nil
	}
	return execCounted(ctx, r.pool, "users.set_status", setUserStatusSQL, id, status)
}

func (r *UsersRepo) SetRole(ctx context.Context, id string, role domain.Role) (domain.WriteResult, error) {
	if !validID(id) {
		return domain.Updated(0, 0), nil
	}
	return execCounted(ctx, r.pool, "users.set_role", setUserRoleSQL, id, role)
}

func (r *UsersRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, domain.StoreFailure("users.count", err)
	}
	return n, nil
}

func (r *UsersRepo) exec(ctx context.Context, op, q string, args ...any) (domain.WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure(op, err)
	}
	n := tag.RowsAffected()
	return domain.Updated(n, n), nil
}
