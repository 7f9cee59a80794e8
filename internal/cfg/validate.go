// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import "fmt"

// Validate returns a non-nil error if c cannot be used to mount or
// format a filesystem.
func Validate(c Config) error {
	if c.BlockSize == 0 {
		return fmt.Errorf("blocksize must be positive")
	}
	if (c.BlockSize-PathTagLen)%16 != 0 {
		return fmt.Errorf("blocksize %d: ciphertext region (blocksize - %d) must be AES-block aligned", c.BlockSize, PathTagLen)
	}
	if uint32(BlockOverhead)+(uint32(c.Duplication)+1)*8+MACLen >= c.BlockSize {
		return fmt.Errorf("blocksize %d too small for duplication %d: no room for payload", c.BlockSize, c.Duplication)
	}
	if c.Duplication < MinDuplication || c.Duplication > MaxDuplication {
		return fmt.Errorf("duplication %d out of range [%d, %d]", c.Duplication, MinDuplication, MaxDuplication)
	}
	if !c.Paranoid && !c.FormatVersion.Supported() {
		return fmt.Errorf("unsupported format version %q", c.FormatVersion)
	}
	if c.Cipher != CipherAES256 {
		return fmt.Errorf("unsupported cipher %q", c.Cipher)
	}
	if c.Mode != ModeCBC {
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}
	if c.Hash != HashSHA256 {
		return fmt.Errorf("unsupported hash %q", c.Hash)
	}
	if c.MAC != MACHMACSHA256 {
		return fmt.Errorf("unsupported mac %q", c.MAC)
	}
	if c.KDFIterations == 0 {
		return fmt.Errorf("kdf iterations must be positive")
	}
	return nil
}
