package service

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"time"
)

// ShareCodeLength is the length of generated list share codes.
const ShareCodeLength = 12

// ShareCode generates a random base58 code.
// Uniqueness is enforced by the caller against the database.
func ShareCode(length int) string {
	const base58 = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	code := make([]byte, length)
	chars := []byte(base58)
	mrand.New(mrand.NewSource(time.Now().UnixNano())).Shuffle(len(chars), func(i, j int) {
		chars[i], chars[j] = chars[j], chars[i]
	})
	max := big.NewInt(int64(len(chars)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // should never occured because max >= 0
		}
		code[i] = chars[int(n.Int64())]
	}

	return string(code)
}
