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
	"github.com/sigurn/crc8"

	"github.com/aamcrae/dla/debug"
)

var ddrCRC = crc8.MakeTable(crc8.CRC8)

// WaitCalibration blocks until the DDR controller reports that calibration
// has completed. Once complete it stays complete.
func (d *DLA) WaitCalibration() error {
	if !d.valid() {
		return ErrBadArg
	}
	return d.pollUntil("DDR calibration", func() bool {
		return d.rd(rDDRCalib) != 0
	})
}

// WriteDDR streams p into DDR at addr through the CPU access channel.
// The length of p must be a multiple of 8; each 8 byte chunk is one
// handshake with the controller.
func (d *DLA) WriteDDR(addr uint32, p []byte) error {
	if !d.valid() {
		return ErrBadArg
	}
	debug.Assert(len(p) > 0 && len(p)%ddrWordSize == 0, "dla: DDR write length not a multiple of 8")
	d.wr(rDDRCPU, 1)
	d.command(DDRCmd{Write: true, Len: len(p)}, addr)
	for i := 0; i+ddrWordSize <= len(p); i += ddrWordSize {
		v := d.Order.Uint64(p[i:])
		d.wr(rDDRDataHi, uint32(v>>32))
		d.wr(rDDRDataLo, uint32(v))
		d.wr(rDDRValid, 1)
	}
	return d.waitAck("DDR write ack", rDDRAck)
}

// ReadDDR streams len(p) bytes from DDR at addr. The controller lands the data
// in DMEM, advancing the write pointer as it goes; once all the bytes have
// arrived they are copied out of DMEM into p. The final write pointer is returned.
// The length of p must be a multiple of 8, and no larger than DMEM.
func (d *DLA) ReadDDR(addr uint32, p []byte) (Cursor, error) {
	if !d.valid() {
		return 0, ErrBadArg
	}
	debug.Assert(len(p) > 0 && len(p)%ddrWordSize == 0, "dla: DDR read length not a multiple of 8")
	debug.Assert(len(p) <= DMEMSize, "dla: DDR read larger than DMEM")
	start := d.Cursor()
	d.wr(rDDRCPU, 1)
	d.wr(rDDRCPURead, 0)
	d.command(DDRCmd{Write: false, Len: len(p)}, addr)
	cur := start
	err := d.pollUntil("DDR read data", func() bool {
		cur = d.Cursor()
		return cur.Since(start) == len(p)
	})
	if err != nil {
		return cur, err
	}
	if err := d.waitAck("DDR read ack", rDDRAck); err != nil {
		return cur, err
	}
	d.wr(rDDRCPURead, 1)
	d.readRing(int((addr*ddrWordSize)&dmemMask), p)
	return cur, nil
}

// Cursor returns the current DMEM write pointer.
func (d *DLA) Cursor() Cursor {
	return Cursor(d.rd(rDDRWptr))
}

// WriteDDRVerified writes p to DDR, then reads it back and compares
// checksums, returning ErrVerify on a mismatch.
func (d *DLA) WriteDDRVerified(addr uint32, p []byte) error {
	if err := d.WriteDDR(addr, p); err != nil {
		return err
	}
	buf := make([]byte, min(len(p), DMEMSize))
	for off := 0; off < len(p); off += len(buf) {
		chunk := p[off:min(off+len(buf), len(p))]
		rb := buf[:len(chunk)]
		if _, err := d.ReadDDR(addr+uint32(off/ddrWordSize), rb); err != nil {
			return err
		}
		want, got := crc8.Checksum(chunk, ddrCRC), crc8.Checksum(rb, ddrCRC)
		if want != got {
			d.logf("DDR verify at 0x%x+%d: crc 0x%02x, expected 0x%02x", addr, off, got, want)
			return ErrVerify
		}
	}
	return nil
}

// command latches a DDR command.
func (d *DLA) command(c DDRCmd, addr uint32) {
	d.wr(rDDRCmdAddr, addr)
	d.wr(rDDRCmd, c.Word())
	d.wr(rDDRValid, 1)
}

// readRing copies DMEM from offs into p, wrapping at the end of DMEM.
func (d *DLA) readRing(offs int, p []byte) {
	for len(p) > 0 {
		n := min(len(p), DMEMSize-offs)
		d.readWords(offs, p[:n])
		p = p[n:]
		offs = 0
	}
}
