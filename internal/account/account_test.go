package account_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_service/internal/account"
	"account_service/internal/lib/hash"
	"account_service/internal/lib/jwt"
	"account_service/internal/lib/otp"
	"account_service/internal/models"
	"account_service/internal/storage"
	"account_service/internal/storage/redis"
)

// fakeUserStore is an in-memory stand-in for the postgres repo.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]models.User)}
}

func (s *fakeUserStore) CreateUser(_ context.Context, email, firstName, lastName, passHash string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return models.User{}, storage.ErrUserExists
		}
	}

	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		PassHash:  passHash,
		UserClass: models.DefaultUserClass,
		CreatedAt: time.Now(),
	}
	s.users[user.ID] = user

	return user, nil
}

func (s *fakeUserStore) SaveUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	s.users[user.ID] = user

	return nil
}

func (s *fakeUserStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *fakeUserStore) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *fakeUserStore) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.UserByEmail(ctx, email)
	if err != nil {
		return false, nil
	}

	return true, nil
}

// recordingNotifier captures dispatched messages synchronously.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []models.Message
}

func (n *recordingNotifier) Dispatch(msg models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) last(t *testing.T) models.Message {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	require.NotEmpty(t, n.messages, "expected a dispatched message")
	return n.messages[len(n.messages)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.messages)
}

type testEnv struct {
	account  *account.Account
	users    *fakeUserStore
	notifier *recordingNotifier
	tokens   *jwt.Manager
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	users := newFakeUserStore()
	notifier := &recordingNotifier{}
	tokens := jwt.New("test-secret", 7*24*time.Hour)

	acc := account.New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		users,
		users,
		otp.New(redis.NewWithClient(client)),
		tokens,
		hash.New(),
		notifier,
		7*24*time.Hour,
		time.Hour,
		time.Hour,
	)

	return &testEnv{
		account:  acc,
		users:    users,
		notifier: notifier,
		tokens:   tokens,
		redis:    mr,
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", user.Email)
	assert.False(t, user.IsVerified)
	assert.Equal(t, "base", user.UserClass)
	assert.NotEqual(t, "Passw0rd!", user.PassHash)

	msg := env.notifier.last(t)
	assert.Equal(t, "a@b.com", msg.Email)
	assert.Equal(t, models.PurposeVerification, msg.Purpose)
	assert.Len(t, msg.Code, otp.CodeLength)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.account.Register(ctx, "A@B.COM", "A", "B", "Passw0rd!")
	assert.ErrorIs(t, err, account.ErrUserExists)
}

func TestRegisterWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.account.Register(context.Background(), "a@b.com", "A", "B", "password1")
	assert.ErrorIs(t, err, account.ErrWeakPassword)
	assert.Zero(t, env.notifier.count())
}

func TestLoginBeforeVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.account.Login(ctx, "a@b.com", "Passw0rd!")
	assert.ErrorIs(t, err, account.ErrAccountUnverified)
}

func TestLoginIndistinguishableFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	_, unknownErr := env.account.Login(ctx, "nobody@b.com", "Passw0rd!")
	_, wrongPassErr := env.account.Login(ctx, "a@b.com", "Wr0ng-pass")

	assert.ErrorIs(t, unknownErr, account.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPassErr, account.ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongPassErr)
}

func TestFullVerificationCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	code := env.notifier.last(t).Code

	result, err := env.account.VerifyAccount(ctx, code)
	require.NoError(t, err)
	assert.True(t, result.User.IsVerified)
	assert.Equal(t, user.ID, result.User.ID)

	payload, err := env.tokens.Decode(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), payload.UserID)
	assert.Equal(t, []string{"base"}, payload.Scopes)

	login, err := env.account.Login(ctx, "a@b.com", "Passw0rd!")
	require.NoError(t, err)

	payload, err = env.tokens.Decode(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), payload.UserID)
}

func TestVerifyAccountCodeSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	code := env.notifier.last(t).Code

	_, err = env.account.VerifyAccount(ctx, code)
	require.NoError(t, err)

	_, err = env.account.VerifyAccount(ctx, code)
	assert.ErrorIs(t, err, account.ErrInvalidCode)
}

func TestVerifyAccountInvalidCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.account.VerifyAccount(context.Background(), "000000")
	assert.ErrorIs(t, err, account.ErrInvalidCode)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.account.ResendVerification(ctx, "nobody@b.com")
	assert.ErrorIs(t, err, account.ErrUserNotFound)

	_, err = env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	require.NoError(t, env.account.ResendVerification(ctx, "a@b.com"))
	assert.Equal(t, 2, env.notifier.count())

	code := env.notifier.last(t).Code
	_, err = env.account.VerifyAccount(ctx, code)
	require.NoError(t, err)

	err = env.account.ResendVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, account.ErrAlreadyVerified)
}

func TestRequestPasswordResetEnumerationResistance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)
	registered := env.notifier.count()

	missingAck, err := env.account.RequestPasswordReset(ctx, "nobody@b.com")
	require.NoError(t, err)

	existingAck, err := env.account.RequestPasswordReset(ctx, "a@b.com")
	require.NoError(t, err)

	assert.Equal(t, missingAck, existingAck)

	// Only the existing-email path dispatches a reset message.
	assert.Equal(t, registered+1, env.notifier.count())
	assert.Equal(t, models.PurposePasswordReset, env.notifier.last(t).Purpose)
}

func TestConfirmPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.account.RequestPasswordReset(ctx, "a@b.com")
	require.NoError(t, err)

	code := env.notifier.last(t).Code

	result, err := env.account.ConfirmPasswordReset(ctx, code, "N3w-Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.True(t, result.User.IsVerified, "reset auto-verifies the account")

	payload, err := env.tokens.Decode(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), payload.UserID)

	_, err = env.account.Login(ctx, "a@b.com", "Passw0rd!")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, err = env.account.Login(ctx, "a@b.com", "N3w-Passw0rd!")
	assert.NoError(t, err)
}

func TestConfirmPasswordResetWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.account.RequestPasswordReset(ctx, "a@b.com")
	require.NoError(t, err)

	code := env.notifier.last(t).Code

	_, err = env.account.ConfirmPasswordReset(ctx, code, "password1")
	assert.ErrorIs(t, err, account.ErrWeakPassword)
}

func TestConfirmPasswordResetInvalidCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.account.ConfirmPasswordReset(context.Background(), "999999", "N3w-Passw0rd!")
	assert.ErrorIs(t, err, account.ErrInvalidCode)
}

func TestResetCodeExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.account.Register(ctx, "a@b.com", "A", "B", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.account.RequestPasswordReset(ctx, "a@b.com")
	require.NoError(t, err)

	code := env.notifier.last(t).Code

	env.redis.FastForward(2 * time.Hour)

	_, err = env.account.ConfirmPasswordReset(ctx, code, "N3w-Passw0rd!")
	assert.ErrorIs(t, err, account.ErrInvalidCode)
}
