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

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// CipherName is the datatype for the superblock's CIPHER tag and the
// mount-time cipher option (spec §4.1, §4.7). Only cipher families whose
// block-mode can encrypt an arbitrary blocksize-32 byte buffer belong
// here; stream ciphers and AEAD modes are deliberately not representable
// (spec §4.1 rationale).
type CipherName string

const (
	CipherAES256 CipherName = "aes-256"
)

func (c *CipherName) UnmarshalText(text []byte) error {
	v := CipherName(strings.ToLower(string(text)))
	if !slices.Contains([]CipherName{CipherAES256}, v) {
		return fmt.Errorf("invalid cipher value: %s", text)
	}
	*c = v
	return nil
}

func (c CipherName) String() string { return string(c) }

// ModeName is the superblock's MODE tag: the block-cipher mode of operation.
type ModeName string

const (
	ModeCBC ModeName = "cbc"
)

func (m *ModeName) UnmarshalText(text []byte) error {
	v := ModeName(strings.ToLower(string(text)))
	if !slices.Contains([]ModeName{ModeCBC}, v) {
		return fmt.Errorf("invalid mode value: %s", text)
	}
	*m = v
	return nil
}

func (m ModeName) String() string { return string(m) }

// HashName is the superblock's HASH tag.
type HashName string

const (
	HashSHA256 HashName = "sha256"
)

func (h *HashName) UnmarshalText(text []byte) error {
	v := HashName(strings.ToLower(string(text)))
	if !slices.Contains([]HashName{HashSHA256}, v) {
		return fmt.Errorf("invalid hash value: %s", text)
	}
	*h = v
	return nil
}

func (h HashName) String() string { return string(h) }

// MACName is the superblock's MAC tag.
type MACName string

const (
	MACHMACSHA256 MACName = "hmac-sha256"
)

func (m *MACName) UnmarshalText(text []byte) error {
	v := MACName(strings.ToLower(string(text)))
	if !slices.Contains([]MACName{MACHMACSHA256}, v) {
		return fmt.Errorf("invalid mac value: %s", text)
	}
	*m = v
	return nil
}

func (m MACName) String() string { return string(m) }

// Duplication is the N duplication-factor type: at least 1, at most 64
// (spec glossary, §3).
type Duplication uint32

const (
	MinDuplication Duplication = 1
	MaxDuplication Duplication = 64
)

func (d *Duplication) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid duplication value: %w", err)
	}
	n := Duplication(v)
	if n < MinDuplication || n > MaxDuplication {
		return fmt.Errorf("duplication %d out of range [%d, %d]", n, MinDuplication, MaxDuplication)
	}
	*d = n
	return nil
}

func (d Duplication) String() string { return strconv.FormatUint(uint64(d), 10) }

// KDFIterations is the PBKDF2 iteration count stored in the KDF tag.
type KDFIterations uint64

func (k *KDFIterations) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid kdf iterations value: %w", err)
	}
	if v == 0 {
		return fmt.Errorf("kdf iterations must be positive")
	}
	*k = KDFIterations(v)
	return nil
}

func (k KDFIterations) String() string { return strconv.FormatUint(uint64(k), 10) }

// Version is the superblock's VERSION tag. Only the current generation
// and exactly one prior generation are recognized (spec §4.7, §9).
type Version string

const (
	VersionCurrent  Version = "400"
	VersionPrevious Version = "300"
)

func (v Version) Supported() bool {
	return v == VersionCurrent || v == VersionPrevious
}
