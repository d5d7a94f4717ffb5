package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storeboost/storeboost-auth/internal/domain"
)

// Compile-time interface assertions.
var (
	_ OrgRepository   = (*PostgresOrgRepo)(nil)
	_ UserRepository  = (*PostgresUserRepo)(nil)
	_ StoreRepository = (*PostgresStoreRepo)(nil)
)

// PostgresOrgRepo implements OrgRepository on pgx.
type PostgresOrgRepo struct {
	db *pgxpool.Pool
}

func NewPostgresOrgRepo(pool *pgxpool.Pool) *PostgresOrgRepo {
	return &PostgresOrgRepo{db: pool}
}

const selectOrgSQL = `SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`

func (r *PostgresOrgRepo) GetOrg(ctx context.Context, orgID int64) (domain.Organization, error) {
	var org domain.Organization
	row := r.db.QueryRow(ctx, selectOrgSQL, orgID)
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.Organization{}, fmt.Errorf("get org: %w", err)
	}
	return org, nil
}

const insertOrgSQL = `INSERT INTO organizations (id, name)
VALUES ($1, $2)
RETURNING id, name, created_at, updated_at`

func (r *PostgresOrgRepo) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	row := r.db.QueryRow(ctx, insertOrgSQL, org.ID, org.Name)
	var created domain.Organization
	if err := row.Scan(&created.ID, &created.Name, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return domain.Organization{}, fmt.Errorf("create org: %w", err)
	}
	return created, nil
}

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const selectUserColumns = `id, org_id, email, password_hash, first_name, last_name, role_id, avatar_url, is_active, is_invited, registered, created_at, updated_at`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

const insertUserSQL = `INSERT INTO users (id, org_id, email, password_hash, first_name, last_name, role_id, avatar_url, is_active, is_invited, registered)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + selectUserColumns

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.OrgID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.RoleID,
		user.AvatarURL,
		user.IsActive,
		user.IsInvited,
		user.Registered,
	)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) MarkRegistered(ctx context.Context, userID int64, firstName, lastName, passwordHash string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, password_hash = $4, registered = true, is_active = true, updated_at = now() WHERE id = $1`,
		userID, firstName, lastName, passwordHash)
	if err != nil {
		return fmt.Errorf("mark registered: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`,
		userID, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// PostgresStoreRepo implements StoreRepository on pgx.
type PostgresStoreRepo struct {
	db *pgxpool.Pool
}

func NewPostgresStoreRepo(pool *pgxpool.Pool) *PostgresStoreRepo {
	return &PostgresStoreRepo{db: pool}
}

const selectStoreColumns = `id, user_id, store_url, access_token, store_name, created_at, updated_at`

const insertStoreSQL = `INSERT INTO stores (id, user_id, store_url, access_token, store_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + selectStoreColumns

func (r *PostgresStoreRepo) Create(ctx context.Context, store domain.Store) (domain.Store, error) {
	row := r.db.QueryRow(ctx, insertStoreSQL,
		store.ID,
		store.UserID,
		store.StoreURL,
		store.AccessToken,
		store.StoreName,
	)
	created, err := scanStore(row)
	if err != nil {
		return domain.Store{}, fmt.Errorf("create store: %w", err)
	}
	return created, nil
}

func (r *PostgresStoreRepo) GetByID(ctx context.Context, storeID int64) (domain.Store, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectStoreColumns+` FROM stores WHERE id = $1`, storeID)
	store, err := scanStore(row)
	if err != nil {
		return domain.Store{}, fmt.Errorf("get store: %w", err)
	}
	return store, nil
}

func (r *PostgresStoreRepo) GetByUserAndURL(ctx context.Context, userID int64, storeURL string) (domain.Store, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectStoreColumns+` FROM stores WHERE user_id = $1 AND store_url = $2`,
		userID, storeURL)
	store, err := scanStore(row)
	if err != nil {
		return domain.Store{}, fmt.Errorf("get store by user and url: %w", err)
	}
	return store, nil
}

func (r *PostgresStoreRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Store, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectStoreColumns+` FROM stores WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

func (r *PostgresStoreRepo) Rename(ctx context.Context, storeID int64, storeName string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE stores SET store_name = $2, updated_at = now() WHERE id = $1`,
		storeID, storeName)
	if err != nil {
		return fmt.Errorf("rename store: %w", err)
	}
	return nil
}

func (r *PostgresStoreRepo) Delete(ctx context.Context, storeID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.OrgID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.RoleID,
		&user.AvatarURL,
		&user.IsActive,
		&user.IsInvited,
		&user.Registered,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func scanStore(row rowScanner) (domain.Store, error) {
	var store domain.Store
	err := row.Scan(
		&store.ID,
		&store.UserID,
		&store.StoreURL,
		&store.AccessToken,
		&store.StoreName,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	return store, err
}
