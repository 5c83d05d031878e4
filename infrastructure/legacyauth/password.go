package legacyauth

import "strings"

// SecurePassword derives the 20-byte secure_password sent in the Auth pack
// for authtype=1: SHA0(SHA0(password || UPPER(username)) || random), where
// random is the 20-byte value the server supplied in its Hello response.
func SecurePassword(password, username string, random [Sha0Size]byte) [Sha0Size]byte {
	inner := Sha0(append([]byte(password), []byte(strings.ToUpper(username))...))
	outer := append(append([]byte{}, inner[:]...), random[:]...)
	return Sha0(outer)
}
