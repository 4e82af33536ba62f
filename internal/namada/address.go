// Copyright © 2025 Attestant Limited.
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

package namada

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// addressHRP is the human readable part of Namada bech32m addresses.
	addressHRP = "tnam"

	addrHashLen = 20

	prefixImplicit    byte = 0
	prefixEstablished byte = 1
	prefixPoS         byte = 5

	livenessMissedVotesSeg = "liveness_sum_missed_votes"
	lazyMapDataSeg         = "data"
)

// Borsh variant indices of the Address enum.
const (
	addressVariantEstablished = 0
	addressVariantImplicit    = 1
)

// encodeAddress renders a raw address as bech32m.
func encodeAddress(prefix byte, hash []byte) (string, error) {
	if len(hash) != addrHashLen {
		return "", fmt.Errorf("address hash must be %d bytes, got %d", addrHashLen, len(hash))
	}
	raw := append([]byte{prefix}, hash...)
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	return bech32.EncodeM(addressHRP, conv)
}

// ValidateAddress checks that s is a well-formed bech32m Namada address.
func ValidateAddress(s string) error {
	hrp, data, version, err := bech32.DecodeGeneric(s)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	if hrp != addressHRP {
		return fmt.Errorf("invalid address %q: unexpected prefix %q", s, hrp)
	}
	if version != bech32.VersionM {
		return fmt.Errorf("invalid address %q: not bech32m", s)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != addrHashLen+1 {
		return fmt.Errorf("invalid address %q: payload is %d bytes", s, len(raw))
	}
	return nil
}

// PoSAddress is the internal proof-of-stake account owning validator storage.
func PoSAddress() string {
	addr, err := encodeAddress(prefixPoS, make([]byte, addrHashLen))
	if err != nil {
		panic(err)
	}
	return addr
}

// livenessKey is the lazy-map entry holding the validator's missed votes
// within the liveness window.
func livenessKey(posAddress, validator string) string {
	return strings.Join([]string{
		"#" + posAddress,
		livenessMissedVotesSeg,
		lazyMapDataSeg,
		"#" + validator,
	}, "/")
}

func (r *borshReader) address() (string, error) {
	variant, err := r.u8()
	if err != nil {
		return "", err
	}
	var prefix byte
	switch variant {
	case addressVariantEstablished:
		prefix = prefixEstablished
	case addressVariantImplicit:
		prefix = prefixImplicit
	default:
		return "", fmt.Errorf("borsh: unsupported address variant %d", variant)
	}
	hash, err := r.take(addrHashLen)
	if err != nil {
		return "", err
	}
	return encodeAddress(prefix, hash)
}
