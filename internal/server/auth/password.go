package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a one-way bcrypt hash from the plaintext password.
// bcrypt embeds a random per-call salt, so two hashes of the same password
// differ. The plaintext is never stored or logged.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
// Malformed hashes yield false, never a panic or an error to the caller.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
