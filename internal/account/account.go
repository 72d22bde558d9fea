package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	sl "account_service/internal/lib/logger"
	"account_service/internal/lib/password"
	"account_service/internal/models"
	"account_service/internal/storage"
)

var (
	ErrWeakPassword       = errors.New("password does not meet complexity requirements")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrInvalidCode        = errors.New("code is invalid or expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountUnverified  = errors.New("account is not verified")
)

// ResetAck is returned by RequestPasswordReset whether or not the email
// matches an account, so the endpoint cannot be used to enumerate users.
const ResetAck = "We will send you an email if you have an account with us."

type UserSaver interface {
	CreateUser(ctx context.Context, email, firstName, lastName, passHash string) (models.User, error)
	SaveUser(ctx context.Context, user models.User) error
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
}

type CodeManager interface {
	Create(ctx context.Context, ownerID string, ttl time.Duration) (string, error)
	Validate(ctx context.Context, code string) (string, error)
}

type TokenMinter interface {
	Mint(userID string, scopes []string, ttl time.Duration) (string, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashValue string) bool
}

// Notifier hands a mail message off for delivery. Implementations are
// fire-and-forget; the flow never learns whether the mail went out.
type Notifier interface {
	Dispatch(msg models.Message)
}

// Account orchestrates registration, verification, login, and password
// reset against the user store, the code store, and the token minter.
// It holds no per-request state.
type Account struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	codes       CodeManager
	tokens      TokenMinter
	hasher      PasswordHasher
	notifier    Notifier

	accessTokenTTL      time.Duration
	verificationCodeTTL time.Duration
	resetCodeTTL        time.Duration
}

// AuthResult is returned by every operation that ends in a session.
type AuthResult struct {
	User        models.User
	AccessToken string
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	codes CodeManager,
	tokens TokenMinter,
	hasher PasswordHasher,
	notifier Notifier,
	accessTokenTTL, verificationCodeTTL, resetCodeTTL time.Duration,
) *Account {
	return &Account{
		log:                 log,
		usrSaver:            userSaver,
		usrProvider:         userProvider,
		codes:               codes,
		tokens:              tokens,
		hasher:              hasher,
		notifier:            notifier,
		accessTokenTTL:      accessTokenTTL,
		verificationCodeTTL: verificationCodeTTL,
		resetCodeTTL:        resetCodeTTL,
	}
}

// Register creates an unverified account and triggers a verification
// email. The send is best-effort: a failure to issue or deliver the code
// never rolls back the created user.
func (a *Account) Register(ctx context.Context, email, firstName, lastName, pass string) (models.User, error) {
	const op = "account.Register"

	log := a.log.With(slog.String("op", op))

	if !password.MeetsPolicy(pass) {
		return models.User{}, ErrWeakPassword
	}

	exists, err := a.usrProvider.UserExistsByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check user existence", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		log.Warn("user already exists")
		return models.User{}, ErrUserExists
	}

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrSaver.CreateUser(ctx, email, firstName, lastName, passHash)
	if err != nil {
		// The unique index closes the window between the existence
		// check and the insert.
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return models.User{}, ErrUserExists
		}

		log.Error("failed to create user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendCode(ctx, user, models.PurposeVerification, a.verificationCodeTTL); err != nil {
		log.Error("failed to issue verification code", sl.Err(err))
	}

	log.Info("user registered", slog.String("uid", user.ID.String()))

	return user, nil
}

// ResendVerification issues a fresh verification code for an existing
// unverified account.
func (a *Account) ResendVerification(ctx context.Context, email string) error {
	const op = "account.ResendVerification"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	if err := a.sendCode(ctx, user, models.PurposeVerification, a.verificationCodeTTL); err != nil {
		log.Error("failed to issue verification code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("verification code resent", slog.String("uid", user.ID.String()))

	return nil
}

// VerifyAccount consumes a verification code, marks the owning account
// as verified, and opens a session.
func (a *Account) VerifyAccount(ctx context.Context, code string) (AuthResult, error) {
	const op = "account.VerifyAccount"

	log := a.log.With(slog.String("op", op))

	user, err := a.consumeCode(ctx, code)
	if err != nil {
		return AuthResult{}, err
	}

	user.IsVerified = true

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		log.Error("failed to save user", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.tokens.Mint(user.ID.String(), []string{user.UserClass}, a.accessTokenTTL)
	if err != nil {
		log.Error("failed to mint access token", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account verified", slog.String("uid", user.ID.String()))

	return AuthResult{User: user, AccessToken: token}, nil
}

// Login checks credentials and opens a session. A missing account and a
// wrong password return the same error so callers cannot tell which one
// happened.
func (a *Account) Login(ctx context.Context, email, pass string) (AuthResult, error) {
	const op = "account.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return AuthResult{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(pass, user.PassHash) {
		log.Info("invalid credentials")
		return AuthResult{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return AuthResult{}, ErrAccountUnverified
	}

	token, err := a.tokens.Mint(user.ID.String(), []string{user.UserClass}, a.accessTokenTTL)
	if err != nil {
		log.Error("failed to mint access token", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("uid", user.ID.String()))

	return AuthResult{User: user, AccessToken: token}, nil
}

// RequestPasswordReset issues a reset code if the email matches an
// account. The returned acknowledgment is identical either way.
func (a *Account) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const op = "account.RequestPasswordReset"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ResetAck, nil
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendCode(ctx, user, models.PurposePasswordReset, a.resetCodeTTL); err != nil {
		log.Error("failed to issue reset code", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("reset code issued", slog.String("uid", user.ID.String()))

	return ResetAck, nil
}

// ConfirmPasswordReset consumes a reset code, replaces the credential,
// and opens a session. A successful reset proves control of the mailbox,
// so the account is marked verified as well.
func (a *Account) ConfirmPasswordReset(ctx context.Context, code, newPassword string) (AuthResult, error) {
	const op = "account.ConfirmPasswordReset"

	log := a.log.With(slog.String("op", op))

	user, err := a.consumeCode(ctx, code)
	if err != nil {
		return AuthResult{}, err
	}

	if !password.MeetsPolicy(newPassword) {
		return AuthResult{}, ErrWeakPassword
	}

	passHash, err := a.hasher.Hash(newPassword)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	user.PassHash = passHash
	user.IsVerified = true

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		log.Error("failed to save user", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.tokens.Mint(user.ID.String(), []string{user.UserClass}, a.accessTokenTTL)
	if err != nil {
		log.Error("failed to mint access token", sl.Err(err))
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.String("uid", user.ID.String()))

	return AuthResult{User: user, AccessToken: token}, nil
}

// sendCode issues a single-use code for the user and hands the mail
// message off to the dispatcher.
func (a *Account) sendCode(ctx context.Context, user models.User, purpose string, ttl time.Duration) error {
	code, err := a.codes.Create(ctx, user.ID.String(), ttl)
	if err != nil {
		return err
	}

	a.notifier.Dispatch(models.Message{
		Email:     user.Email,
		FirstName: user.FirstName,
		Code:      code,
		Purpose:   purpose,
	})

	return nil
}

// consumeCode validates a code and loads the user it was issued for.
func (a *Account) consumeCode(ctx context.Context, code string) (models.User, error) {
	const op = "account.consumeCode"

	log := a.log.With(slog.String("op", op))

	ownerID, err := a.codes.Validate(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			log.Info("invalid or expired code")
			return models.User{}, ErrInvalidCode
		}

		log.Error("failed to validate code", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	uid, err := uuid.Parse(ownerID)
	if err != nil {
		log.Error("malformed owner id in code store", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrProvider.UserByID(ctx, uid)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
