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

const (
	// ProductName is the STEGFS TLV tag's value.
	ProductName = "STEGFS"

	// PathTagLen, DataHashLen and NextLen are the fixed field widths of
	// every block (spec §3).
	PathTagLen  = 32
	DataHashLen = 32
	NextLen     = 8

	// BlockOverhead is path_tag + data_hash + next, the bytes of every
	// block that are not available for the data field.
	BlockOverhead = PathTagLen + DataHashLen + NextLen // 72

	// MACLen is HMAC-SHA256's output width.
	MACLen = 32
)

const (
	// Superblock TLV tag identifiers (spec §4.7, §6). Single bytes, since
	// the TLV record header is {u8 tag, u16 length, value}.
	TagProduct     byte = 1
	TagVersion     byte = 2
	TagCipher      byte = 3
	TagMode        byte = 4
	TagHash        byte = 5
	TagMAC         byte = 6
	TagBlockSize   byte = 7
	TagHeaderSize  byte = 8
	TagDuplication byte = 9
	TagKDF         byte = 10
)

const (
	// DefaultBlockSize and DefaultDuplication are the scenario-1 values
	// from spec §8.
	DefaultBlockSize   uint32      = 2048
	DefaultDuplication Duplication = 8
	DefaultKDFIterations KDFIterations = 100000
)

// Superblock magic constants (spec §4.7, §6). Two words identify the
// product, three identify the format generation; an observer without the
// recipe cannot distinguish them from random 64-bit values without
// already knowing to look for them.
const (
	MagicWord0 uint64 = 0x5374656746532100 // "StegFS!\0"-ish, arbitrary but fixed
	MagicWord1 uint64 = 0x0a42ca5e1badc0de

	GenerationWord0 uint64 = 0x00000000000004 // format generation 4
	GenerationWord1 uint64 = 0x00000000000003 // recognized predecessor, generation 3
	GenerationWord2 uint64 = 0x53756273656374 // "Subsect" — sub-generation marker
)
