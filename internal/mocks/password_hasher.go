package mocks

import (
	"strings"

	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// MockPasswordHasher implements auth.PasswordHasher without bcrypt's cost.
// By default Hash prefixes "hashed:" and Compare checks that prefix form.
type MockPasswordHasher struct {
	HashFn    func(password string) (string, error)
	CompareFn func(hashed, password string) error
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return "hashed:" + password, nil
}

func (m *MockPasswordHasher) Compare(hashed, password string) error {
	if m.CompareFn != nil {
		return m.CompareFn(hashed, password)
	}
	if strings.TrimPrefix(hashed, "hashed:") != password {
		return auth.ErrPasswordMismatch
	}
	return nil
}
