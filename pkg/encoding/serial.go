// Package encoding obfuscates sequential database identifiers for use in
// URLs and API payloads. It is a keyed 32-round Feistel network over 32-bit
// values: encoding is a bijection, so values round-trip exactly and no state
// is needed to decode. This must not be treated as cryptography; it only
// keeps serial ids from being enumerable.
package encoding

import (
	"math/bits"
	"strconv"

	apperrors "github.com/queueup/backend/pkg/errors"
)

const rounds = 32

// Codec encodes and decodes identifiers under a fixed key.
type Codec struct {
	roundKeys []uint32
}

// NewCodec derives the round-key schedule from key.
func NewCodec(key uint32) *Codec {
	keys := make([]uint32, rounds)
	keys[0] = keyRound(key)
	for i := 1; i < rounds; i++ {
		keys[i] = keyRound(keys[i-1])
	}
	return &Codec{roundKeys: keys}
}

// Encode maps an internal identifier to its public string form.
func (c *Codec) Encode(id int32) string {
	return strconv.FormatUint(uint64(c.encrypt(uint32(id))), 16)
}

// Decode maps a public identifier back to its internal form.
func (c *Codec) Decode(s string) (int32, error) {
	x, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid identifier format")
	}
	return int32(c.decrypt(uint32(x))), nil
}

// DecodeAll decodes a slice of public identifiers, failing on the first
// malformed element.
func (c *Codec) DecodeAll(ss []string) ([]int32, error) {
	ids := make([]int32, 0, len(ss))
	for _, s := range ss {
		id, err := c.Decode(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EncodeAll encodes a slice of internal identifiers.
func (c *Codec) EncodeAll(ids []int32) []string {
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, c.Encode(id))
	}
	return ss
}

func (c *Codec) encrypt(x uint32) uint32 {
	l := uint16(x >> 16)
	r := uint16(x & 0xFFFF)
	for _, k := range c.roundKeys {
		l, r = r, l^roundFn(r, k)
	}
	return uint32(r)<<16 | uint32(l)
}

func (c *Codec) decrypt(x uint32) uint32 {
	l := uint16(x >> 16)
	r := uint16(x & 0xFFFF)
	for i := rounds - 1; i >= 0; i-- {
		l, r = r, l^roundFn(r, c.roundKeys[i])
	}
	return uint32(r)<<16 | uint32(l)
}

// roundFn mixes one half-block with a round key: key whitening, an LCG step,
// then a PCG-style output permutation (xorshift + data-dependent rotate).
func roundFn(half uint16, k uint32) uint16 {
	x := uint32(half)
	x0 := x ^ bits.RotateLeft32(k, -int(x>>(16-5)))
	x1 := x0*2697822563 + 4212697711

	const (
		rotate = 32 - 4
		xshift = (16 + 4) / 2
		spare  = 16 - 4
	)
	rot := int(x1 >> rotate)
	xsh := uint16(((x1 >> xshift) ^ x1) >> spare)
	return bits.RotateLeft16(xsh, -rot)
}

// keyRound advances the round-key LCG.
func keyRound(k uint32) uint32 {
	return k*4212697711 + 2697822563
}
