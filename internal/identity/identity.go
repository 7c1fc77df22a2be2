// Package identity is the boundary to the external identity provider. The
// core never stores credentials: it verifies provider-signed tokens into
// opaque identities, or mints guest identities for unauthenticated viewers.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cinematogether/server/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrEmptyName    = errors.New("display name required")
)

const maxDisplayNameLen = 32

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses a provider-issued HS256 token carrying the subject id and a
// display name claim.
func (v *Verifier) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	name, _ := claims["name"].(string)
	if name == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	return domain.Identity{
		ID:          sub,
		DisplayName: name,
	}, nil
}

// Guest mints a local identity for a viewer without an account.
func (v *Verifier) Guest(displayName string) (domain.Identity, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.Identity{}, ErrEmptyName
	}
	if len(displayName) > maxDisplayNameLen {
		displayName = displayName[:maxDisplayNameLen]
	}

	return domain.Identity{
		ID:          "guest-" + uuid.NewString(),
		DisplayName: displayName,
		Guest:       true,
	}, nil
}
