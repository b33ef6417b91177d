package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

func isBcrypt(encodedHash string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(encodedHash, p) {
			return true
		}
	}
	return false
}

// verifyBcrypt checks a legacy bcrypt hash. Any error, including a malformed
// hash or a plaintext over bcrypt's 72 byte limit, is a mismatch.
func verifyBcrypt(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
