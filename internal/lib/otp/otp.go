package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"account_service/internal/storage"
)

const (
	// CodeLength is the number of digits in a generated code.
	CodeLength = 6

	keyPrefix = "otp:"

	// maxCreateAttempts bounds the collision-regeneration loop. The code
	// space is 10^6, so hitting the cap means the store is effectively
	// saturated and the request should fail loudly.
	maxCreateAttempts = 10
)

var (
	ErrCodeSpaceExhausted = errors.New("could not generate a unique code")
)

// TransientStore is the expiring key-value store codes live in.
type TransientStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Manager issues and consumes single-use numeric codes. A code maps to
// the id of the user it was issued for and disappears after its TTL.
type Manager struct {
	store TransientStore
}

func New(store TransientStore) *Manager {
	return &Manager{store: store}
}

// Create generates a code for ownerID and stores it with the given TTL.
// Candidate codes that collide with a live code are discarded and
// regenerated; the set-if-absent write makes the uniqueness check and the
// insert a single step, so two concurrent creates can never claim the
// same code.
func (m *Manager) Create(ctx context.Context, ownerID string, ttl time.Duration) (string, error) {
	const op = "otp.Create"

	for i := 0; i < maxCreateAttempts; i++ {
		code, err := generateCode(CodeLength)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		stored, err := m.store.SetIfAbsent(ctx, keyPrefix+code, ownerID, ttl)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if stored {
			return code, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, ErrCodeSpaceExhausted)
}

// Validate consumes a code and returns its owner id. The read and delete
// are one atomic store operation, so a code validates at most once. A
// consumed, expired, or never-issued code all report the same
// storage.ErrCodeNotFound.
func (m *Manager) Validate(ctx context.Context, code string) (string, error) {
	const op = "otp.Validate"

	ownerID, err := m.store.GetDel(ctx, keyPrefix+code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			return "", storage.ErrCodeNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return ownerID, nil
}

// Delete discards a code without consuming it. Absent codes are a no-op.
func (m *Manager) Delete(ctx context.Context, code string) error {
	const op = "otp.Delete"

	if err := m.store.Delete(ctx, keyPrefix+code); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)

	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}
