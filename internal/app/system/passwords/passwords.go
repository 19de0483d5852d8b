// Package passwords wraps bcrypt hashing for user passwords and password
// reset codes. Plaintext never leaves this package's callers: hashing
// happens at the persistence boundary, verification against stored hashes.
package passwords

import "golang.org/x/crypto/bcrypt"

// MinLength is the minimum plaintext password length, enforced before
// hashing.
const MinLength = 6

// BcryptCost for user password hashes.
const BcryptCost = 10

// Hash returns the bcrypt hash of a plaintext password.
func Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
