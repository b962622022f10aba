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

// State selects the hardware pipeline stage about to run.
// The hardware shares one datapath between all job kinds.
type State uint32

const (
	StateIdle State = iota
	StateConv
	StatePPE
	StateLoad
	StateMove
)

// Direction of a DDR move.
type Direction int

const (
	Load  Direction = iota // DDR to on-chip buffer
	Store                  // On-chip buffer to DDR
)

// ConvJob describes a convolution.
type ConvJob struct {
	KernelSize   uint8
	KernelScale  uint8
	InLen        uint16 // Input feature map length
	OutLen       uint16 // Output feature map length
	InChannels   uint16
	OutChannels  uint16
	LeftPad      uint8
	RightPad     uint8
	PadCount     uint16
	ColSubsample uint8
	RowSubsample uint8
	LBufAddr     uint16 // 12 bits
	WBufAddr     uint16 // 12 bits
	IBufAddr     uint16 // 8 bits
	Sparsity     uint8  // 2 bits
}

// Activation is one piecewise linear segment of the activation function.
type Activation struct {
	Slope      int32
	Intercept  int32
	Breakpoint int32
}

// PostProcessJob describes a post-processing (PPE) operation.
type PostProcessJob struct {
	Activation  uint8 // Activation function selector, 4 bits
	ElementWise bool
	Bias        bool
	PassThrough bool
	Rows        uint8
	Iterations  uint16 // 12 bits
	Length      uint16 // 12 bits
	FBufSrc     uint16
	FBufDst     uint16
	ABufSrc     uint16
	ABufDst     uint16
	Dilation    uint16
	Skip        uint16
	Table       [tableSize]Activation
}

// LoadJob copies data from the global buffer into the local buffer.
type LoadJob struct {
	Length uint16
	Src    uint16 // Global buffer address
	Dst    uint16 // Local buffer address
}

// MoveJob moves data between DDR and an on-chip buffer.
// When Dual is set, the transfer uses both DRAM addresses.
type MoveJob struct {
	Length uint32 // Bytes, 24 bits
	DRAM   [2]uint32
	Dual   bool
	Mux    uint8  // 4 bits
	Index  uint8  // 4 bits
	Addr   uint32 // 24 bits
	Dir    Direction
}

// Conv submits a convolution. The control word is written last, which starts the job.
func (d *DLA) Conv(j *ConvJob) error {
	if !d.valid() || j == nil {
		return ErrBadArg
	}
	d.wr(rState, uint32(StateConv))
	d.wr(rConvKernel, KernelWord{j.KernelSize, j.KernelScale, j.ColSubsample, j.RowSubsample}.Word())
	d.wr(rConvLen, PairWord{j.OutLen, j.InLen}.Word())
	d.wr(rConvChan, PairWord{j.OutChannels, j.InChannels}.Word())
	d.wr(rConvPad, PadWord{j.PadCount, j.RightPad, j.LeftPad}.Word())
	d.wr(rConvAddr, AddrWord{j.IBufAddr, j.WBufAddr, j.LBufAddr}.Word())
	d.wr(rConvCtrl, ConvCtrl{Start: true, Sparsity: j.Sparsity}.Word())
	return nil
}

// PostProcess submits a PPE job, including its activation table.
func (d *DLA) PostProcess(j *PostProcessJob) error {
	if !d.valid() || j == nil {
		return ErrBadArg
	}
	d.wr(rState, uint32(StatePPE))
	d.wr(rPPEShape, ShapeWord{j.Rows, j.Iterations, j.Length}.Word())
	d.wr(rPPEFBuf, PairWord{j.FBufDst, j.FBufSrc}.Word())
	d.wr(rPPEABuf, PairWord{j.ABufDst, j.ABufSrc}.Word())
	d.wr(rPPEStride, PairWord{j.Skip, j.Dilation}.Word())
	for i, a := range j.Table {
		offs := uintptr(i * 4)
		d.wr(rPPESlope+offs, uint32(a.Slope))
		d.wr(rPPEIntercept+offs, uint32(a.Intercept))
		d.wr(rPPEBreak+offs, uint32(a.Breakpoint))
	}
	d.wr(rPPECtrl, PPECtrl{
		Start:       true,
		ElementWise: j.ElementWise,
		Bias:        j.Bias,
		PassThrough: j.PassThrough,
		Activation:  j.Activation,
	}.Word())
	return nil
}

// Load submits a global to local buffer load.
func (d *DLA) Load(j *LoadJob) error {
	if !d.valid() || j == nil {
		return ErrBadArg
	}
	d.wr(rState, uint32(StateLoad))
	d.wr(rLoadLen, uint32(j.Length))
	d.wr(rLoadAddr, PairWord{j.Dst, j.Src}.Word())
	d.wr(rLoadCtrl, startHi|opLoad)
	return nil
}

// Move submits a transfer between DDR and an on-chip buffer.
func (d *DLA) Move(j *MoveJob) error {
	if !d.valid() || j == nil {
		return ErrBadArg
	}
	d.wr(rState, uint32(StateMove))
	d.wr(rMoveLen, field(j.Length, 24, 0))
	d.wr(rMoveDram0, j.DRAM[0])
	if j.Dual {
		d.wr(rMoveDram1, j.DRAM[1])
	}
	d.wr(rMoveBuf, BufWord{j.Mux, j.Index, j.Addr}.Word())
	d.wr(rMoveCtrl, MoveCtrl{Start: true, Dual: j.Dual, Dir: j.Dir}.Word())
	return nil
}
