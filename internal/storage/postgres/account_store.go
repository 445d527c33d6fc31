package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

// AccountStore is a PostgreSQL-backed models.AccountRepository.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore creates an account store over the given connection.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query := `
		INSERT INTO accounts (id, avito_user_id, client_id, client_secret)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	return s.db.QueryRowContext(ctx, query,
		account.ID,
		account.AvitoUserID,
		account.ClientID,
		account.ClientSecret,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, avito_user_id, client_id, client_secret,
		       access_token, token_expires_at, created_at, updated_at
		FROM accounts WHERE id = $1
	`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "account", ID: id}
	}
	return account, err
}

func (s *AccountStore) ListAll(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, avito_user_id, client_id, client_secret,
		       access_token, token_expires_at, created_at, updated_at
		FROM accounts ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *AccountStore) UpdateCredentials(ctx context.Context, id, avitoUserID, clientID, clientSecret string) error {
	query := `
		UPDATE accounts SET
			avito_user_id = $2, client_id = $3, client_secret = $4, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, id, query, id, avitoUserID, clientID, clientSecret)
}

func (s *AccountStore) UpdateToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE accounts SET
			access_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, id, query, id, accessToken, expiresAt)
}

func (s *AccountStore) exec(ctx context.Context, id, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &models.NotFoundError{Kind: "account", ID: id}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var expiresAt sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.AvitoUserID,
		&account.ClientID,
		&account.ClientSecret,
		&account.AccessToken,
		&expiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		account.TokenExpiresAt = expiresAt.Time
	}
	return &account, nil
}
