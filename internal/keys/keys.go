// Package keys implements the per-file key schedule of spec §4.4: given
// (dir_path, name, pass), derive the cipher key, MAC key and per-copy IVs
// that internal/block and the file engine use to encrypt and authenticate
// one file's blocks.
package keys

import (
	"github.com/stegfs-go/stegfs/internal/crypto"
)

// FileKeys holds the key material for one (dir_path, name, pass) triple.
// The cipher key and MAC key are identical across all N copies — only
// the IV differs per copy (spec §4.4: "Same key is used for all copies,
// but IV differs, so each copy's ciphertext is distinct").
type FileKeys struct {
	CipherKey []byte
	MACKey    []byte

	suite               *crypto.Suite
	pass, name, dirPath string
}

// Derive computes m = hash(name ∥ pass), s = hash(dir_path), then the
// cipher and MAC keys via the Suite's KDF. keyLen and macKeyLen are
// measured in bytes (32 for AES-256, 32 for HMAC-SHA-256).
func Derive(suite *crypto.Suite, dirPath, name, pass string, keyLen, macKeyLen int) *FileKeys {
	m := suite.Hash([]byte(name), []byte(pass))
	s := suite.Hash([]byte(dirPath))

	return &FileKeys{
		CipherKey: suite.KDF(m[:], s[:], keyLen),
		MACKey:    suite.KDF(m[:], s[:], macKeyLen),
		suite:     suite,
		pass:      pass,
		name:      name,
		dirPath:   dirPath,
	}
}

// IV returns the cipher IV for copy index i: hash(pass ∥ name ∥ dir_path
// ∥ i) truncated to the cipher's block length (16 bytes for AES). The
// copy index is a single byte, since duplication is capped at 64 (spec
// glossary).
func (fk *FileKeys) IV(copyIndex int, ivLen int) []byte {
	digest := fk.suite.Hash([]byte(fk.pass), []byte(fk.name), []byte(fk.dirPath), []byte{byte(copyIndex)})
	return digest[:ivLen]
}
