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
	"encoding/binary"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// decPrecision is the number of fractional digits of a Namada Dec.
const decPrecision = 12

// borshReader decodes the Borsh encoding used by Namada query responses.
type borshReader struct {
	buf []byte
	off int
}

func newBorshReader(b []byte) *borshReader {
	return &borshReader{buf: b}
}

func (r *borshReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, fmt.Errorf("borsh: need %d bytes at offset %d, have %d", n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *borshReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *borshReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *borshReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *borshReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// option reads an Option tag and reports whether a value follows.
func (r *borshReader) option() (bool, error) {
	tag, err := r.u8()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("borsh: invalid option tag %d", tag)
	}
}

func (r *borshReader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("borsh: invalid utf-8 string")
	}
	return string(b), nil
}

func (r *borshReader) optionString() (*string, error) {
	some, err := r.option()
	if err != nil || !some {
		return nil, err
	}
	s, err := r.string()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// u256 reads a little-endian unsigned 256-bit integer (token::Amount).
func (r *borshReader) u256() (*uint256.Int, error) {
	b, err := r.take(32)
	if err != nil {
		return nil, err
	}
	var be [32]byte
	for i := range b {
		be[31-i] = b[i]
	}
	return new(uint256.Int).SetBytes32(be[:]), nil
}

// dec reads a Namada Dec: a two's complement little-endian 256-bit integer
// scaled by 10^-12.
func (r *borshReader) dec() (decimal.Decimal, error) {
	raw, err := r.u256()
	if err != nil {
		return decimal.Decimal{}, err
	}
	var value *big.Int
	if raw.Sign() < 0 {
		value = new(uint256.Int).Neg(raw).ToBig()
		value.Neg(value)
	} else {
		value = raw.ToBig()
	}
	return decimal.NewFromBigInt(value, -decPrecision), nil
}

func (r *borshReader) optionDec() (*decimal.Decimal, error) {
	some, err := r.option()
	if err != nil || !some {
		return nil, err
	}
	d, err := r.dec()
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// done fails when undecoded bytes remain.
func (r *borshReader) done() error {
	if r.remaining() != 0 {
		return fmt.Errorf("borsh: %d trailing bytes", r.remaining())
	}
	return nil
}
