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

// Default returns the Config used by mkfs and by mount when no
// overrides are supplied: AES-256-CBC/SHA-256/HMAC-SHA-256, 2048-byte
// blocks, 8-way duplication (spec §3, §8 scenario 1).
func Default() Config {
	c := Config{
		Product:       ProductName,
		FormatVersion: VersionCurrent,
		Cipher:        CipherAES256,
		Mode:          ModeCBC,
		Hash:          HashSHA256,
		MAC:           MACHMACSHA256,
		BlockSize:     DefaultBlockSize,
		Duplication:   DefaultDuplication,
		KDFIterations: DefaultKDFIterations,
	}
	c.HeaderOffset = c.HeadCapacity()
	return c
}
