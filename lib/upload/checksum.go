// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ChecksumHeader carries the hex BLAKE3 digest of the uncompressed
// request body.
const ChecksumHeader = "X-Eventq-Checksum"

// checksumKey separates upload checksums from any other BLAKE3 use of
// the same bytes. ASCII "eventq.upload.body", zero-padded.
var checksumKey = [32]byte{
	'e', 'v', 'e', 'n', 't', 'q', '.', 'u', 'p', 'l', 'o', 'a', 'd', '.',
	'b', 'o', 'd', 'y',
}

// Checksum returns the keyed BLAKE3 digest of body, hex encoded.
func Checksum(body []byte) string {
	hasher, err := blake3.NewKeyed(checksumKey[:])
	if err != nil {
		panic("upload: blake3 keyed hash: " + err.Error())
	}
	hasher.Write(body)
	return hex.EncodeToString(hasher.Sum(nil))
}

// VerifyChecksum reports whether digest is the checksum of body.
func VerifyChecksum(body []byte, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Checksum(body)), []byte(digest)) == 1
}
