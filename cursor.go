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

// Cursor is the DMEM write pointer maintained by the hardware during DDR reads.
// The low 12 bits are the byte offset into DMEM, and bit 12 is a phase flag that
// toggles each time the pointer wraps.
type Cursor uint32

// Offset returns the byte offset into DMEM.
func (c Cursor) Offset() int {
	return int(c & dmemMask)
}

// Phase returns the wrap phase flag.
func (c Cursor) Phase() bool {
	return c&phaseBit != 0
}

// Advance returns the cursor moved on by n bytes, toggling the phase on each wrap.
func (c Cursor) Advance(n int) Cursor {
	// Offset and phase together count modulo twice the DMEM size.
	v := (int(c&(phaseBit|dmemMask)) + n) % (2 * DMEMSize)
	if v < 0 {
		v += 2 * DMEMSize
	}
	return Cursor(v)
}

// Since returns the number of bytes written between start and c. At most one
// wrap is detectable, so the result is in the range 0 to DMEMSize.
func (c Cursor) Since(start Cursor) int {
	if c.Phase() == start.Phase() {
		return c.Offset() - start.Offset()
	}
	return DMEMSize - (start.Offset() - c.Offset())
}
