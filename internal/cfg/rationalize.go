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

// ParanoidParams is the set of algorithm parameters a caller must supply
// directly when mounting in paranoid mode (spec §4.7): the superblock is
// neither read nor checked, so nothing here is auto-detected.
type ParanoidParams struct {
	Cipher        CipherName
	Mode          ModeName
	Hash          HashName
	MAC           MACName
	KDFIterations KDFIterations
	Duplication   Duplication
	BlockSize     uint32
	ShowBloc      bool
}

// Rationalize turns caller-supplied ParanoidParams into a full Config,
// filling in defaults for anything left at its zero value so a caller
// need only override what they actually distrust about the on-disk
// superblock.
func Rationalize(p ParanoidParams) Config {
	c := Default()
	c.Paranoid = true
	c.ShowBloc = p.ShowBloc

	if p.Cipher != "" {
		c.Cipher = p.Cipher
	}
	if p.Mode != "" {
		c.Mode = p.Mode
	}
	if p.Hash != "" {
		c.Hash = p.Hash
	}
	if p.MAC != "" {
		c.MAC = p.MAC
	}
	if p.KDFIterations != 0 {
		c.KDFIterations = p.KDFIterations
	}
	if p.Duplication != 0 {
		c.Duplication = p.Duplication
	}
	if p.BlockSize != 0 {
		c.BlockSize = p.BlockSize
	}
	c.HeaderOffset = c.HeadCapacity()
	return c
}
