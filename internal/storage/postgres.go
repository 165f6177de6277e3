package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"savings_auth/internal/models"
)

const (
	accountsTable     = "accounts"
	rolesTable        = "roles"
	accountRolesTable = "account_roles"
	authTokensTable   = "auth_tokens"
	savingsTable      = "savings"
)

const uniqueViolationCode = "23505"

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(dbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	pool, err := pgxpool.Connect(context.Background(), dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: pool,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (p *PostgresStorage) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	const op = "storage.FindByEmail"

	var account models.Account
	query := fmt.Sprintf("SELECT id, email, username, created_at FROM %s WHERE lower(email)=lower($1);", accountsTable)

	err := p.db.QueryRow(ctx, query, email).Scan(&account.ID, &account.Email, &account.Username, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return account, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	if err != nil {
		return account, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// Create validates the password against the store policy, hashes it and
// inserts the account. Email uniqueness is enforced by the database; a
// conflicting insert comes back as ErrDuplicateAccount.
func (p *PostgresStorage) Create(ctx context.Context, account models.Account, password string) (models.Account, error) {
	const op = "storage.Create"

	if errs := ValidatePassword(password); len(errs) > 0 {
		return models.Account{}, fmt.Errorf("%s: %w", op, errs)
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if account.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return models.Account{}, fmt.Errorf("%s: %w", op, err)
		}
		account.ID = id
	}

	query := fmt.Sprintf("INSERT INTO %s(id, email, username, password_hash) VALUES ($1, $2, $3, $4) RETURNING created_at;", accountsTable)

	err = p.db.QueryRow(ctx, query, account.ID, account.Email, account.Username, passwordHash).Scan(&account.CreatedAt)
	if isUniqueViolation(err) {
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrDuplicateAccount)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

func (p *PostgresStorage) GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error) {
	const op = "storage.GetCredentialsByEmail"

	var cred models.Credentials
	query := fmt.Sprintf("SELECT id, password_hash FROM %s WHERE lower(email)=lower($1);", accountsTable)

	err := p.db.QueryRow(ctx, query, email).Scan(&cred.AccountID, &cred.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return cred, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	if err != nil {
		return cred, fmt.Errorf("%s: %w", op, err)
	}

	return cred, nil
}

func (p *PostgresStorage) RoleExists(ctx context.Context, name string) (bool, error) {
	const op = "storage.RoleExists"

	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE name=$1);", rolesTable)

	if err := p.db.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (p *PostgresStorage) CreateRole(ctx context.Context, name string) error {
	const op = "storage.CreateRole"

	query := fmt.Sprintf("INSERT INTO %s(name) VALUES ($1);", rolesTable)

	if _, err := p.db.Exec(ctx, query, name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrDuplicateRole)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *PostgresStorage) AssignRole(ctx context.Context, accountID uuid.UUID, name string) error {
	const op = "storage.AssignRole"

	query := fmt.Sprintf(`INSERT INTO %s(account_id, role_id)
	SELECT $1, id FROM %s WHERE name=$2
	ON CONFLICT (account_id, role_id) DO NOTHING;`, accountRolesTable, rolesTable)

	tag, err := p.db.Exec(ctx, query, accountID, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		if exists, err := p.RoleExists(ctx, name); err == nil && !exists {
			return fmt.Errorf("%s: %w", op, ErrRoleNotFound)
		}
	}

	return nil
}

func (p *PostgresStorage) GetRoles(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	const op = "storage.GetRoles"

	query := fmt.Sprintf(`SELECT r.name FROM %s r
	JOIN %s ar ON ar.role_id = r.id
	WHERE ar.account_id = $1
	ORDER BY ar.assigned_at, r.name;`, rolesTable, accountRolesTable)

	rows, err := p.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return roles, nil
}

func (p *PostgresStorage) SetAuthToken(ctx context.Context, accountID uuid.UUID, providerKey, tokenName, value string) error {
	const op = "storage.SetAuthToken"

	if err := setAuthToken(ctx, p.db, accountID, providerKey, tokenName, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetAuthTokens writes all fields in one transaction so a crash cannot
// leave the token value and its expiry out of step.
func (p *PostgresStorage) SetAuthTokens(ctx context.Context, accountID uuid.UUID, providerKey string, fields []models.AuthTokenField) error {
	const op = "storage.SetAuthTokens"

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	for _, field := range fields {
		if err := setAuthToken(ctx, tx, accountID, providerKey, field.Name, field.Value); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func setAuthToken(ctx context.Context, db execer, accountID uuid.UUID, providerKey, tokenName, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s(account_id, provider_key, token_name, value)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (account_id, provider_key, token_name)
	DO UPDATE SET value = EXCLUDED.value, updated_at = now();`, authTokensTable)

	_, err := db.Exec(ctx, query, accountID, providerKey, tokenName, value)
	return err
}

func (p *PostgresStorage) GetAuthToken(ctx context.Context, accountID uuid.UUID, providerKey, tokenName string) (string, error) {
	const op = "storage.GetAuthToken"

	var value string
	query := fmt.Sprintf("SELECT value FROM %s WHERE account_id=$1 AND provider_key=$2 AND token_name=$3;", authTokensTable)

	err := p.db.QueryRow(ctx, query, accountID, providerKey, tokenName).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

func (p *PostgresStorage) FindByAuthToken(ctx context.Context, providerKey, tokenName, value string) (models.Account, error) {
	const op = "storage.FindByAuthToken"

	var account models.Account
	query := fmt.Sprintf(`SELECT a.id, a.email, a.username, a.created_at FROM %s a
	JOIN %s t ON t.account_id = a.id
	WHERE t.provider_key=$1 AND t.token_name=$2 AND t.value=$3;`, accountsTable, authTokensTable)

	err := p.db.QueryRow(ctx, query, providerKey, tokenName, value).Scan(&account.ID, &account.Email, &account.Username, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return account, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	}
	if err != nil {
		return account, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

func (p *PostgresStorage) CreateSaving(ctx context.Context, saving models.Saving) (models.Saving, error) {
	const op = "storage.CreateSaving"

	if saving.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return models.Saving{}, fmt.Errorf("%s: %w", op, err)
		}
		saving.ID = id
	}

	query := fmt.Sprintf(`INSERT INTO %s(id, account_id, name, description, amount)
	VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at;`, savingsTable)

	err := p.db.QueryRow(ctx, query, saving.ID, saving.AccountID, saving.Name, saving.Description, saving.Amount).
		Scan(&saving.CreatedAt, &saving.UpdatedAt)
	if err != nil {
		return models.Saving{}, fmt.Errorf("%s: %w", op, err)
	}

	return saving, nil
}

func (p *PostgresStorage) ListSavings(ctx context.Context, accountID uuid.UUID) ([]models.Saving, error) {
	const op = "storage.ListSavings"

	query := fmt.Sprintf(`SELECT id, account_id, name, description, amount, created_at, updated_at
	FROM %s WHERE account_id=$1 ORDER BY created_at DESC;`, savingsTable)

	rows, err := p.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var savings []models.Saving
	for rows.Next() {
		var s models.Saving
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Name, &s.Description, &s.Amount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		savings = append(savings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return savings, nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}
