// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dla

import (
	"golang.org/x/exp/constraints"

	"github.com/aamcrae/dla/debug"
)

// field shifts v into position. Values wider than width are not
// masked, so an oversized value spills into the neighbouring field exactly
// as the hardware would see it; debug builds catch this instead.
func field[T constraints.Unsigned](v T, width, shift uint) uint32 {
	debug.Assertf(fits(v, width), "dla: value 0x%x exceeds %d bit field", uint64(v), width)
	return uint32(v) << shift
}

// fits reports whether v can be held in width bits.
func fits[T constraints.Unsigned](v T, width uint) bool {
	return uint64(v)>>width == 0
}

// extract returns the width bit field at shift.
func extract(w uint32, width, shift uint) uint32 {
	return (w >> shift) & (1<<width - 1)
}

// KernelWord packs the kernel geometry of a convolution.
type KernelWord struct {
	Size, Scale, ColSub, RowSub uint8
}

func (k KernelWord) Word() uint32 {
	return field(k.Size, 8, 24) | field(k.Scale, 8, 16) | field(k.ColSub, 8, 8) | field(k.RowSub, 8, 0)
}

func DecodeKernelWord(w uint32) KernelWord {
	return KernelWord{
		Size:   uint8(extract(w, 8, 24)),
		Scale:  uint8(extract(w, 8, 16)),
		ColSub: uint8(extract(w, 8, 8)),
		RowSub: uint8(extract(w, 8, 0)),
	}
}

// PairWord packs two 16 bit values, Hi in the upper half.
// It is used for the feature map lengths (output, input), channel
// counts (output, input), buffer pairs (destination, source) and
// strides (skip, dilation).
type PairWord struct {
	Hi, Lo uint16
}

func (p PairWord) Word() uint32 {
	return field(p.Hi, 16, 16) | field(p.Lo, 16, 0)
}

func DecodePairWord(w uint32) PairWord {
	return PairWord{Hi: uint16(w >> 16), Lo: uint16(w)}
}

// PadWord packs the convolution padding.
type PadWord struct {
	Count       uint16
	Right, Left uint8
}

func (p PadWord) Word() uint32 {
	return field(p.Count, 16, 16) | field(p.Right, 8, 8) | field(p.Left, 8, 0)
}

func DecodePadWord(w uint32) PadWord {
	return PadWord{
		Count: uint16(extract(w, 16, 16)),
		Right: uint8(extract(w, 8, 8)),
		Left:  uint8(extract(w, 8, 0)),
	}
}

// AddrWord packs the input, weight and local buffer base addresses.
// IBuf is 8 bits, WBuf and LBuf 12 bits each.
type AddrWord struct {
	IBuf, WBuf, LBuf uint16
}

func (a AddrWord) Word() uint32 {
	return field(a.IBuf, 8, 24) | field(a.WBuf, 12, 12) | field(a.LBuf, 12, 0)
}

func DecodeAddrWord(w uint32) AddrWord {
	return AddrWord{
		IBuf: uint16(extract(w, 8, 24)),
		WBuf: uint16(extract(w, 12, 12)),
		LBuf: uint16(extract(w, 12, 0)),
	}
}

// ShapeWord packs the post-processing shape: 8 bit rows,
// 12 bit iteration count and 12 bit length.
type ShapeWord struct {
	Rows       uint8
	Iterations uint16
	Length     uint16
}

func (s ShapeWord) Word() uint32 {
	return field(s.Rows, 8, 24) | field(s.Iterations, 12, 12) | field(s.Length, 12, 0)
}

func DecodeShapeWord(w uint32) ShapeWord {
	return ShapeWord{
		Rows:       uint8(extract(w, 8, 24)),
		Iterations: uint16(extract(w, 12, 12)),
		Length:     uint16(extract(w, 12, 0)),
	}
}

// BufWord packs the target of a DDR move: 4 bit mux,
// 4 bit buffer index and 24 bit buffer address.
type BufWord struct {
	Mux, Index uint8
	Addr       uint32
}

func (b BufWord) Word() uint32 {
	return field(b.Mux, 4, 28) | field(b.Index, 4, 24) | field(b.Addr, 24, 0)
}

func DecodeBufWord(w uint32) BufWord {
	return BufWord{
		Mux:   uint8(extract(w, 4, 28)),
		Index: uint8(extract(w, 4, 24)),
		Addr:  extract(w, 24, 0),
	}
}

// ConvCtrl is the convolution control word.
type ConvCtrl struct {
	Start    bool
	Sparsity uint8
}

func (c ConvCtrl) Word() uint32 {
	w := field(c.Sparsity, 2, 0)
	if c.Start {
		w |= startHi
	}
	return w
}

func DecodeConvCtrl(w uint32) ConvCtrl {
	return ConvCtrl{Start: w&startHi != 0, Sparsity: uint8(extract(w, 2, 0))}
}

// PPECtrl is the post-processing control word.
type PPECtrl struct {
	Start                          bool
	ElementWise, Bias, PassThrough bool
	Activation                     uint8
}

func (c PPECtrl) Word() uint32 {
	w := field(c.Activation, 4, 0)
	if c.ElementWise {
		w |= ppeElem
	}
	if c.Bias {
		w |= ppeBias
	}
	if c.PassThrough {
		w |= ppePass
	}
	if c.Start {
		w |= startLo
	}
	return w
}

func DecodePPECtrl(w uint32) PPECtrl {
	return PPECtrl{
		Start:       w&startLo != 0,
		ElementWise: w&ppeElem != 0,
		Bias:        w&ppeBias != 0,
		PassThrough: w&ppePass != 0,
		Activation:  uint8(extract(w, 4, 0)),
	}
}

// MoveCtrl is the DDR move control word.
type MoveCtrl struct {
	Start bool
	Dual  bool
	Dir   Direction
}

func (c MoveCtrl) Word() uint32 {
	var w uint32
	if c.Dir == Store {
		w |= moveStore
	}
	if c.Dual {
		w |= moveDual
	}
	if c.Start {
		w |= startLo
	}
	return w
}

func DecodeMoveCtrl(w uint32) MoveCtrl {
	c := MoveCtrl{Start: w&startLo != 0, Dual: w&moveDual != 0, Dir: Load}
	if w&moveStore != 0 {
		c.Dir = Store
	}
	return c
}

// DDRCmd is the command word of the DDR CPU access channel.
// Len is the transfer length in bytes, a multiple of 8.
type DDRCmd struct {
	Write bool
	Len   int
}

func (c DDRCmd) Word() uint32 {
	debug.Assertf(c.Len > 0 && c.Len%ddrWordSize == 0, "dla: DDR length %d not a multiple of 8", c.Len)
	w := ddrValid | field(uint32(c.Len/ddrWordSize-1), 24, 0)
	if c.Write {
		w |= ddrWrite
	}
	return w
}

func DecodeDDRCmd(w uint32) DDRCmd {
	return DDRCmd{
		Write: w&ddrWrite != 0,
		Len:   (int(w&ddrLenMask) + 1) * ddrWordSize,
	}
}
