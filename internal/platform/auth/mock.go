package auth

import "context"

// MockVerifier is a Verifier for tests. Error wins over everything else. When
// Tokens is set only listed tokens verify; otherwise every token maps to User.
type MockVerifier struct {
	User   *User
	Error  error
	Tokens map[string]*User
}

func (m *MockVerifier) Verify(_ context.Context, token string) (*User, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Tokens != nil {
		user, ok := m.Tokens[token]
		if !ok {
			return nil, ErrInvalidToken
		}
		return user, nil
	}
	return m.User, nil
}

// TestUser returns the profile owner used across handler tests.
func TestUser() *User {
	return &User{
		UID:           "owner-0001",
		Email:         "owner@wallet.test",
		EmailVerified: true,
		Provider:      "password",
	}
}

var _ Verifier = (*MockVerifier)(nil)
