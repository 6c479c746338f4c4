package utils

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignToken issues the HS256 login token carried in the Bearer cookie.
func SignToken(userID int, username, role string) (string, error) {
	jwtSecret := os.Getenv("JWT_SECRET")

	claims := jwt.MapClaims{
		"uid":  userID,
		"user": username,
		"role": role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", ErrorHandler(err, "failed to sign login token")
	}
	return signed, nil
}
