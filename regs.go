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

// Register offsets within the DLA register map.
const (
	rVersion  = 0x000
	rState    = 0x004 // Compute state selector
	rDone     = 0x008 // Accelerator done status
	rIntEnSet = 0x010 // Interrupt enable (write 1 to set)
	rIntEnClr = 0x014 // Interrupt enable (write 1 to clear)
	rIntStat  = 0x018 // Pending interrupts (write 1 to clear)

	// Convolution
	rConvKernel = 0x040
	rConvLen    = 0x044
	rConvChan   = 0x048
	rConvPad    = 0x04C
	rConvAddr   = 0x050
	rConvCtrl   = 0x054
	rConvDone   = 0x058

	// Post-processing engine
	rPPEShape  = 0x080
	rPPEFBuf   = 0x084
	rPPEABuf   = 0x088
	rPPEStride = 0x08C
	rPPECtrl   = 0x090
	rPPEDone   = 0x094

	// Local buffer load and DDR buffer moves
	rLoadLen   = 0x0C0
	rLoadAddr  = 0x0C4
	rLoadCtrl  = 0x0C8
	rMoveLen   = 0x0D0
	rMoveDram0 = 0x0D4
	rMoveDram1 = 0x0D8
	rMoveBuf   = 0x0DC
	rMoveCtrl  = 0x0E0
	rMoveDone  = 0x0E4

	// DDR CPU access channel
	rDDRCalib   = 0x100
	rDDRCPU     = 0x104 // CPU access mode
	rDDRCmd     = 0x108
	rDDRCmdAddr = 0x10C
	rDDRValid   = 0x110
	rDDRDataHi  = 0x114
	rDDRDataLo  = 0x118
	rDDRAck     = 0x11C
	rDDRCPURead = 0x120
	rDDRWptr    = 0x124

	// Activation table, one word per entry
	rPPESlope     = 0x200
	rPPEIntercept = 0x240
	rPPEBreak     = 0x280

	regSize = 0x1000
)

// Staging memory (DMEM).
const (
	DMEMSize  = 4096
	dmemMask  = DMEMSize - 1
	phaseBit  = DMEMSize // Wrap phase flag of the write pointer
	tableSize = 16       // Activation table entries
)

// Control register bits.
const (
	startHi   = 1 << 31 // Start bit for conv and load jobs
	startLo   = 1 << 30 // Start bit for ppe and move jobs
	opLoad    = 1
	ppeElem   = 1 << 4
	ppeBias   = 1 << 5
	ppePass   = 1 << 6
	moveStore = 1 << 0
	moveDual  = 1 << 1
)

// DDR command word.
const (
	ddrWrite    = 1 << 31
	ddrValid    = 1 << 30
	ddrLenMask  = 0x00FFFFFF
	ddrWordSize = 8
)

// Identification value in the version register.
const dlaVersion = 0x444C4101
