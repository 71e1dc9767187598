package repository

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	documentIDLength   = 20
	documentIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewDocumentID returns a 20 character alphanumeric id.
func NewDocumentID() string {
	max := big.NewInt(int64(len(documentIDAlphabet)))
	id := make([]byte, documentIDLength)
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		id[i] = documentIDAlphabet[n.Int64()]
	}
	return string(id)
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
