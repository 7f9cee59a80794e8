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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BindFlags registers the mount-option flags a host CLI exposes on a
// pflag.FlagSet with viper, so ReadBound below can assemble a
// ParanoidParams from whatever the host parsed. Argv parsing itself
// (help text, usage, short/long forms) is the host's concern — this
// only wires the flag values through to viper, matching gcsfuse's
// BindFlags/cfg split.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.Bool("paranoid", false, "ignore the on-disk superblock; use the supplied algorithm parameters")
	flagSet.Bool("show-bloc", false, "expose the /bloc/ diagnostic view of in-use blocks")
	flagSet.String("cipher", "", "override cipher (paranoid mode only)")
	flagSet.String("mode", "", "override cipher mode (paranoid mode only)")
	flagSet.String("hash", "", "override hash (paranoid mode only)")
	flagSet.String("mac", "", "override mac (paranoid mode only)")
	flagSet.Uint64("kdf-iterations", 0, "override KDF iteration count (paranoid mode only)")
	flagSet.Uint32("duplication", 0, "override duplication factor (paranoid mode only)")
	flagSet.Uint32("blocksize", 0, "override blocksize (paranoid mode only)")

	for _, name := range []string{"paranoid", "show-bloc", "cipher", "mode", "hash", "mac", "kdf-iterations", "duplication", "blocksize"} {
		if err := viper.BindPFlag(name, flagSet.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// ReadBound assembles a ParanoidParams from whatever was bound by
// BindFlags (and any config file/env viper also consulted).
func ReadBound() (paranoid bool, params ParanoidParams) {
	paranoid = viper.GetBool("paranoid")
	params = ParanoidParams{
		Cipher:        CipherName(viper.GetString("cipher")),
		Mode:          ModeName(viper.GetString("mode")),
		Hash:          HashName(viper.GetString("hash")),
		MAC:           MACName(viper.GetString("mac")),
		KDFIterations: KDFIterations(viper.GetUint64("kdf-iterations")),
		Duplication:   Duplication(viper.GetUint32("duplication")),
		BlockSize:     viper.GetUint32("blocksize"),
		ShowBloc:      viper.GetBool("show-bloc"),
	}
	return paranoid, params
}
