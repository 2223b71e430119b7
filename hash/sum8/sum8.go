// Package sum8 implements the one's-complement byte sum used
// as the packet checksum on Robotis servo buses.
package sum8

import (
	"github.com/knieriem/robotis/hash"
)

// The size of a sum8 checksum in bytes.
const Size = 1

// digest represents the partial evaluation of a checksum.
type digest struct {
	sum uint8
}

// New creates a new hash.Hash8 computing the complemented
// modulo-256 sum of all bytes written.
func New() hash.Hash8 { return new(digest) }

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.sum = 0 }

// Update returns the result of adding the bytes in p to the running sum.
func Update(sum uint8, p []byte) uint8 {
	for _, v := range p {
		sum += v
	}
	return sum
}

func (d *digest) Write(p []byte) (n int, err error) {
	d.sum = Update(d.sum, p)
	return len(p), nil
}

func (d *digest) Sum8() uint8 {
	return ^d.sum
}

func (d *digest) Sum(in []byte) []byte {
	return append(in, d.Sum8())
}

// Checksum returns the complemented byte sum of data.
func Checksum(data []byte) uint8 {
	return ^Update(0, data)
}
