package util

import (
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Hasher turns secrets (passwords, one-time codes) into stored digests
// and checks candidates against them.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(digest, plain string) bool
}

// BcryptHasher is the production Hasher. Tests construct it with
// bcrypt.MinCost to keep state-machine tests fast.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcryptCost}
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptHasher) Verify(digest, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// HashPassword hashes a plain text password
func HashPassword(password string) (string, error) {
	return NewBcryptHasher().Hash(password)
}

// VerifyPassword checks if a plain text password matches a hashed password
func VerifyPassword(hashedPassword, password string) bool {
	return NewBcryptHasher().Verify(hashedPassword, password)
}
