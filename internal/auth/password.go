package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

// HashPassword hashes a plaintext password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash. A
// malformed hash counts as a mismatch.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash stands in for the stored hash of an account that does not exist.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("chopflow-no-such-account")
	if err != nil {
		panic(err)
	}
	return hash
})

// CheckLogin reports whether password is valid for u. A nil u is compared
// against a dummy hash and always fails, so unknown emails take as long to
// reject as wrong passwords.
func CheckLogin(u *domain.User, password string) bool {
	if u == nil {
		CheckPassword(dummyHash(), password)
		return false
	}
	return CheckPassword(u.PasswordHash, password)
}
