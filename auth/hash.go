package auth

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ServerHash computes the server id hash sent to the session server: SHA-1 over the server id,
// shared secret and public key, printed as a signed two's complement hex number without leading
// zeros.
func ServerHash(serverID string, secret, publicDER []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(secret)
	h.Write(publicDER)
	return minecraftHex(h.Sum(nil))
}

func minecraftHex(sum []byte) string {
	negative := sum[0]&0x80 != 0
	if negative {
		// two's complement: invert and add one
		carry := true
		for i := len(sum) - 1; i >= 0; i-- {
			sum[i] = ^sum[i]
			if carry {
				carry = sum[i] == 0xFF
				sum[i]++
			}
		}
	}
	digest := strings.TrimLeft(hex.EncodeToString(sum), "0")
	if negative {
		return "-" + digest
	}
	return digest
}

// OfflineUUID is the id an offline-mode server gives a player: a name-based MD5 UUID of
// "OfflinePlayer:<name>".
func OfflineUUID(name string) uuid.UUID {
	// unlike uuid.NewMD5 there is no namespace prefix in the hashed data
	id := uuid.UUID(md5.Sum([]byte("OfflinePlayer:" + name)))
	id[6] = id[6]&0x0f | 0x30
	id[8] = id[8]&0x3f | 0x80
	return id
}
