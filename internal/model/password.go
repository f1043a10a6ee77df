package model

// PasswordHasher is the one-way hashing capability used for local accounts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, digest string) bool
}
