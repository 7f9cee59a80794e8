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
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// hookFunc recognizes our custom TextUnmarshaler types so mapstructure's
// generic string decoding (used when assembling a Config from the
// superblock's TLV tag values, which arrive as strings and byte counts)
// produces validated values instead of bare strings.
func hookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		switch t {
		case reflect.TypeOf(CipherName("")):
			var v CipherName
			return v, (&v).UnmarshalText([]byte(s))
		case reflect.TypeOf(ModeName("")):
			var v ModeName
			return v, (&v).UnmarshalText([]byte(s))
		case reflect.TypeOf(HashName("")):
			var v HashName
			return v, (&v).UnmarshalText([]byte(s))
		case reflect.TypeOf(MACName("")):
			var v MACName
			return v, (&v).UnmarshalText([]byte(s))
		case reflect.TypeOf(Duplication(0)):
			var v Duplication
			return v, (&v).UnmarshalText([]byte(s))
		case reflect.TypeOf(KDFIterations(0)):
			var v KDFIterations
			return v, (&v).UnmarshalText([]byte(s))
		case reflect.TypeOf(uint32(0)):
			n, err := strconv.ParseUint(s, 10, 32)
			return uint32(n), err
		default:
			return data, nil
		}
	}
}

// DecodeHook composes our tag-aware hook with mapstructure's built-ins.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		hookFunc(),
	)
}

// FromTags decodes a TLV tag-name → string-value map (see superblock
// package) into a Config via mapstructure, sharing the same decode hook
// used for flag binding so the on-disk record and mount overrides agree
// on syntax.
func FromTags(tags map[string]string) (Config, error) {
	raw := make(map[string]any, len(tags))
	for k, v := range tags {
		raw[k] = v
	}

	var c Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DecodeHook(),
		Result:     &c,
	})
	if err != nil {
		return Config{}, fmt.Errorf("cfg: building decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("cfg: decoding superblock tags: %w", err)
	}
	c.HeaderOffset = c.HeadCapacity()
	return c, nil
}
