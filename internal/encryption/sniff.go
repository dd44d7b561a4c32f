package encryption

import "bytes"

// SealedHeader is the first line of every age file.
const SealedHeader = "age-encryption.org/v1"

// testSealedHeader marks output of TestEncryptor.
const testSealedHeader = "agriledger-test-seal\n"

// LooksSealed reports whether head, the first bytes of a file, starts
// with a header written by one of the encryptors.
func LooksSealed(head []byte) bool {
	return bytes.HasPrefix(head, []byte(SealedHeader)) || bytes.HasPrefix(head, []byte(testSealedHeader))
}
