package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"account_service/internal/config"
	"account_service/internal/models"
	"account_service/internal/storage"
)

type Repo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*Repo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &Repo{pool: pool}, nil
}

// CreateUser inserts a new unverified account. The unique index on
// lower(email) guarantees case-insensitive uniqueness; a violation maps
// to storage.ErrUserExists.
func (r *Repo) CreateUser(ctx context.Context, email, firstName, lastName, passHash string) (models.User, error) {
	const op = "storage.postgres.CreateUser"

	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, user_class, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING created_at;
	`

	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		PassHash:  passHash,
		UserClass: models.DefaultUserClass,
	}

	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.PassHash, user.UserClass,
	).Scan(&user.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	return user, nil
}

// UserByEmail looks a user up case-insensitively.
func (r *Repo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, user_class, is_verified, created_at
		FROM users
		WHERE lower(email) = lower($1);
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *Repo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, user_class, is_verified, created_at
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *Repo) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	const op = "storage.postgres.UserExistsByEmail"

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1));`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// SaveUser persists the mutable fields of an existing account.
func (r *Repo) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		UPDATE users
		SET password_hash = $1, user_class = $2, is_verified = $3
		WHERE id = $4;
	`

	tag, err := r.pool.Exec(ctx, query, user.PassHash, user.UserClass, user.IsVerified, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

func (r *Repo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PassHash,
		&u.UserClass,
		&u.IsVerified,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
