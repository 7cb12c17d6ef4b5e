package auth

import (
	"context"
	"errors"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// User is the verified caller. UID owns every profile the request touches.
type User struct {
	UID           string
	Email         string
	EmailVerified bool
	// Provider is the Firebase sign-in provider, e.g. "password" or "google.com".
	Provider string
}

// Verification failures. ErrCertificateFetch is transient and maps to 503;
// the rest map to 401.
var (
	ErrNoToken          = errors.New("missing authorization header")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrUserDisabled     = errors.New("user disabled")
	ErrCertificateFetch = errors.New("failed to fetch certificates")
)

// Verifier turns a bearer token into the profile owner it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// FirebaseVerifier checks Firebase ID tokens, revocation included.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// firebaseFailures is checked in order; the first matching predicate wins.
var firebaseFailures = []struct {
	is  func(error) bool
	err error
}{
	{fbauth.IsCertificateFetchFailed, ErrCertificateFetch},
	{fbauth.IsIDTokenExpired, ErrTokenExpired},
	{fbauth.IsIDTokenRevoked, ErrTokenRevoked},
	{fbauth.IsUserDisabled, ErrUserDisabled},
}

func classifyFirebaseError(err error) error {
	for _, f := range firebaseFailures {
		if f.is(err) {
			return f.err
		}
	}
	return ErrInvalidToken
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return nil, classifyFirebaseError(err)
	}
	return userFromToken(token), nil
}

func userFromToken(token *fbauth.Token) *User {
	user := &User{UID: token.UID}
	user.Email, _ = token.Claims["email"].(string)
	user.EmailVerified, _ = token.Claims["email_verified"].(bool)
	user.Provider = token.Firebase.SignInProvider
	return user
}

// BearerToken returns the credential of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrInvalidToken
	}
	return token, nil
}

var _ Verifier = (*FirebaseVerifier)(nil)
