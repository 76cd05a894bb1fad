package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brtkpo/RestaurantApp/internal/domain"
)

// Claims mirror what the token-issuing collaborator puts into access tokens:
// the user id and the role discriminator.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(userID int64, role domain.Role) (string, error) {
	secret := os.Getenv("ACCESS_SECRET")
	if secret == "" {
		return "", fmt.Errorf("jwt secret is not found in env")
	}

	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ResolveIdentity validates a bearer credential and maps it onto the domain
// identity used for authorization decisions.
func ResolveIdentity(tokenString string) (domain.Identity, error) {
	secret := os.Getenv("ACCESS_SECRET")
	if secret == "" {
		return domain.Identity{}, fmt.Errorf("jwt secret is not found in env")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return domain.Identity{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{UserID: claims.UserID, Role: role}, nil
}
