// internal/accounts/implementation.go
package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"bookmart/internal/ledger"
	"bookmart/internal/postgres"
)

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	account     *ledger.Account
	jwtSecret   []byte
	rateLimiter *rate.Limiter
}

// NewService creates a new accounts service instance.
func NewService(db *sqlx.DB, account *ledger.Account, jwtSecret []byte) Service {
	return &service{
		db:          db,
		account:     account,
		jwtSecret:   jwtSecret,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// Signup creates a new user with a zero balance and stores the salted
// password hash alongside.
func (s *service) Signup(ctx context.Context, email, name, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:    uuid.New(),
		Email: email,
		Name:  name,
	}
	credential := &Credential{
		UserID:       user.ID,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	err = postgres.WithTx(ctx, s.db, func(ctx context.Context) error {
		q := postgres.QuerierFrom(ctx, s.db)

		err := q.QueryRowContext(ctx, `
			INSERT INTO users (id, email, name)
			VALUES ($1, $2, $3)
			RETURNING balance_cents, created_at, updated_at
		`, user.ID, user.Email, user.Name).Scan(&user.BalanceCents, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO credentials (user_id, password_hash, salt)
			VALUES ($1, $2, $3)
		`, credential.UserID, credential.PasswordHash, credential.Salt); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies the user's credentials and returns a signed token plus the
// user. Lookup and verification failures are indistinguishable to the
// caller.
func (s *service) Login(ctx context.Context, email, password string) (string, *User, error) {
	if !s.rateLimiter.Allow() {
		return "", nil, fmt.Errorf("rate limit exceeded")
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	credential, err := s.getCredential(ctx, user.ID)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	ok, err := verifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil || !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := issueToken(s.jwtSecret, user.ID, time.Now().UTC())
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// GetUser retrieves a user by ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	q := postgres.QuerierFrom(ctx, s.db)

	user := &User{}
	err := q.GetContext(ctx, user, `
		SELECT id, email, name, balance_cents, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Deposit credits the user's balance through the account ledger and returns
// the updated user.
func (s *service) Deposit(ctx context.Context, id uuid.UUID, amountCents int64) (*User, error) {
	if _, err := s.account.Credit(ctx, id, amountCents); err != nil {
		if err == ledger.ErrUserNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *service) getUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user, `
		SELECT id, email, name, balance_cents, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) getCredential(ctx context.Context, userID uuid.UUID) (*Credential, error) {
	credential := &Credential{}
	err := s.db.GetContext(ctx, credential, `
		SELECT user_id, password_hash, salt
		FROM credentials
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return credential, nil
}
