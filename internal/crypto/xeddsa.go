// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package crypto

import (
	cryptorand "crypto/rand"
	"crypto/sha512"
	"io"
	"math/big"
)

// XEdDSA signs and verifies with a Curve25519 (Montgomery) key pair by
// converting it to Edwards form, the scheme Signal uses for identity and
// signed pre-key signatures. A plain Ed25519 implementation that generates
// its own keys will not interoperate: the private scalar must be the exact
// clamped X25519 private key.
//
// Implemented directly over math/big rather than a group-arithmetic
// library: no dependency in the pack exposes the Montgomery-to-Edwards
// bridge XEdDSA needs, and the curve's complete twisted-Edwards addition
// law keeps the hand-rolled point addition short, with no special cases.

// field arithmetic over p = 2^255 - 19
var fieldP = mustBig("57896044618658097711785492504343953926634992332820282019728792003956564819949")

// group order L = 2^252 + 27742317777372353535851937790883648493
var groupL = mustBig("7237005577332262213973186563042994240857116359379907606001950938285454250989")

var edD = mustBig("37095705934669439343138083508754565189542113879843219016388785533085940283555")

func mustBig(dec string) *big.Int {
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		panic("crypto: bad constant")
	}
	return n
}

func fmod(x *big.Int) *big.Int {
	y := new(big.Int).Mod(x, fieldP)
	return y
}

func finv(x *big.Int) *big.Int {
	return new(big.Int).ModInverse(fmod(x), fieldP)
}

// edPoint is an affine point on the twisted Edwards curve
// -x^2 + y^2 = 1 + d*x^2*y^2 (edwards25519).
type edPoint struct{ x, y *big.Int }

var edIdentity = edPoint{x: big.NewInt(0), y: big.NewInt(1)}

func edBasepoint() edPoint {
	// Standard edwards25519 base point.
	by := fmod(mustBig("46316835694926478169428394003475163141307993866256225615783033603165251855960"))
	bx := fmod(mustBig("15112221349535400772501151409588531511454012693041857206046113283949847762202"))
	return edPoint{x: bx, y: by}
}

// add computes p+q using the unified twisted-Edwards addition law, which is
// complete (valid for all inputs including the identity) for curves with
// non-square d, as edwards25519 has.
func (p edPoint) add(q edPoint) edPoint {
	x1, y1 := p.x, p.y
	x2, y2 := q.x, q.y

	x1y2 := fmod(new(big.Int).Mul(x1, y2))
	y1x2 := fmod(new(big.Int).Mul(y1, x2))
	y1y2 := fmod(new(big.Int).Mul(y1, y2))
	x1x2 := fmod(new(big.Int).Mul(x1, x2))

	t := fmod(new(big.Int).Mul(edD, fmod(new(big.Int).Mul(x1x2, y1y2))))

	xNum := fmod(new(big.Int).Add(x1y2, y1x2))
	xDen := finv(fmod(new(big.Int).Add(big.NewInt(1), t)))
	x3 := fmod(new(big.Int).Mul(xNum, xDen))

	yNum := fmod(new(big.Int).Add(y1y2, x1x2))
	yDen := finv(fmod(new(big.Int).Sub(big.NewInt(1), t)))
	y3 := fmod(new(big.Int).Mul(yNum, yDen))

	return edPoint{x: x3, y: y3}
}

func (p edPoint) scalarMul(k *big.Int) edPoint {
	result := edIdentity
	base := p
	bits := k.BitLen()
	for i := 0; i < bits; i++ {
		if k.Bit(i) == 1 {
			result = result.add(base)
		}
		base = base.add(base)
	}
	return result
}

func edSqrt(a *big.Int) (*big.Int, bool) {
	// p ≡ 5 (mod 8): use the standard Ed25519/Curve25519 sqrt trick.
	exp := new(big.Int).Add(fieldP, big.NewInt(3))
	exp.Div(exp, big.NewInt(8))
	candidate := new(big.Int).Exp(fmod(a), exp, fieldP)

	sq := fmod(new(big.Int).Mul(candidate, candidate))
	if sq.Cmp(fmod(a)) == 0 {
		return candidate, true
	}
	i := fmod(new(big.Int).Exp(big.NewInt(2), new(big.Int).Div(new(big.Int).Sub(fieldP, big.NewInt(1)), big.NewInt(4)), fieldP))
	candidate2 := fmod(new(big.Int).Mul(candidate, i))
	sq2 := fmod(new(big.Int).Mul(candidate2, candidate2))
	if sq2.Cmp(fmod(a)) == 0 {
		return candidate2, true
	}
	return nil, false
}

// pointFromY recovers x from y and a desired sign bit, per edwards25519
// point decompression: x^2 = (y^2-1) / (d*y^2+1).
func pointFromY(y *big.Int, sign uint) (edPoint, bool) {
	y2 := fmod(new(big.Int).Mul(y, y))
	num := fmod(new(big.Int).Sub(y2, big.NewInt(1)))
	den := fmod(new(big.Int).Add(fmod(new(big.Int).Mul(edD, y2)), big.NewInt(1)))
	x2 := fmod(new(big.Int).Mul(num, finv(den)))

	x, ok := edSqrt(x2)
	if !ok {
		return edPoint{}, false
	}
	if x.Bit(0) != sign {
		x = fmod(new(big.Int).Sub(fieldP, x))
	}
	return edPoint{x: x, y: y}, true
}

func (p edPoint) encode() []byte {
	out := make([]byte, 32)
	yb := p.y.Bytes()
	for i := 0; i < len(yb); i++ {
		out[i] = yb[len(yb)-1-i]
	}
	if p.x.Bit(0) == 1 {
		out[31] |= 0x80
	}
	return out
}

func decodePoint(b []byte) (edPoint, bool) {
	if len(b) != 32 {
		return edPoint{}, false
	}
	tmp := make([]byte, 32)
	for i := 0; i < 32; i++ {
		tmp[i] = b[31-i]
	}
	sign := uint(tmp[0] >> 7 & 1)
	tmp[0] &= 0x7F
	y := new(big.Int).SetBytes(tmp)
	return pointFromY(y, sign)
}

// montgomeryUToEdwardsY applies the standard birational map between the
// Montgomery u-coordinate and the Edwards y-coordinate: y = (u-1)/(u+1).
func montgomeryUToEdwardsY(u []byte) *big.Int {
	uu := new(big.Int).SetBytes(reverse(u))
	num := fmod(new(big.Int).Sub(uu, big.NewInt(1)))
	den := finv(fmod(new(big.Int).Add(uu, big.NewInt(1))))
	return fmod(new(big.Int).Mul(num, den))
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

func clampScalar(b []byte) *big.Int {
	s := make([]byte, 32)
	copy(s, b)
	s[0] &= 248
	s[31] &= 127
	s[31] |= 64
	return new(big.Int).SetBytes(reverse(s))
}

// edwardsKeypair derives the Edwards public point and "effective" signing
// scalar from an X25519 private key, forcing the stored sign bit to 0 by
// negating the scalar mod L when necessary (the XEdDSA convention — this
// never changes the corresponding Montgomery public key, which has no sign).
func edwardsKeypair(priv []byte) (pub edPoint, scalar *big.Int) {
	a := clampScalar(priv)
	A := edBasepoint().scalarMul(a)
	if A.x.Bit(0) == 1 {
		a = new(big.Int).Sub(groupL, a)
		A = edBasepoint().scalarMul(a)
	}
	return A, a
}

func scalarFromHash(h []byte) *big.Int {
	return new(big.Int).Mod(new(big.Int).SetBytes(reverse(h)), groupL)
}

func scalarToBytes(s *big.Int) []byte {
	b := reverse(s.Bytes())
	out := make([]byte, 32)
	copy(out, b)
	return out
}

// Sign produces a 64-byte XEdDSA signature of msg under the Curve25519
// private key priv.
func Sign(priv, msg []byte) ([]byte, error) {
	if len(priv) != 32 {
		return nil, ErrInvalidKeyLength
	}
	A, a := edwardsKeypair(priv)

	randomness := make([]byte, 64)
	if _, err := io.ReadFull(cryptorand.Reader, randomness); err != nil {
		return nil, err
	}

	nonceHash := sha512.New()
	nonceHash.Write([]byte{0xFE})
	for i := 0; i < 31; i++ {
		nonceHash.Write([]byte{0xFF})
	}
	nonceHash.Write(scalarToBytes(a))
	nonceHash.Write(msg)
	nonceHash.Write(randomness)
	r := scalarFromHash(nonceHash.Sum(nil))

	R := edBasepoint().scalarMul(r)

	hHash := sha512.New()
	hHash.Write(R.encode())
	hHash.Write(A.encode())
	hHash.Write(msg)
	h := scalarFromHash(hHash.Sum(nil))

	s := new(big.Int).Mod(new(big.Int).Add(r, new(big.Int).Mul(h, a)), groupL)

	sig := make([]byte, 64)
	copy(sig[:32], R.encode())
	copy(sig[32:], scalarToBytes(s))
	return sig, nil
}

// Verify checks a 64-byte XEdDSA signature of msg against the Curve25519
// public key pub. It returns false (never an error/panic) for any malformed
// input, per spec.
func Verify(pub, msg, sig []byte) bool {
	if len(pub) != 32 || len(sig) != 64 {
		return false
	}
	y := montgomeryUToEdwardsY(pub)
	A, ok := pointFromY(y, 0)
	if !ok {
		return false
	}

	R, ok := decodePoint(sig[:32])
	if !ok {
		return false
	}
	s := new(big.Int).SetBytes(reverse(sig[32:]))
	if s.Cmp(groupL) >= 0 {
		return false
	}

	hHash := sha512.New()
	hHash.Write(R.encode())
	hHash.Write(A.encode())
	hHash.Write(msg)
	h := scalarFromHash(hHash.Sum(nil))

	lhs := edBasepoint().scalarMul(s)
	rhs := R.add(A.scalarMul(h))

	return lhs.x.Cmp(rhs.x) == 0 && lhs.y.Cmp(rhs.y) == 0
}
