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

// access is one recorded register access.
type access struct {
	write bool
	offs  uintptr
	v     uint32
}

// mockWindow is an in-memory window that records every access.
// Hooks may override reads of, or observe writes to, individual offsets.
type mockWindow struct {
	mem     map[uintptr]uint32
	log     []access
	onRead  map[uintptr]func() uint32
	onWrite map[uintptr]func(v uint32)
}

func newMock() *mockWindow {
	return &mockWindow{
		mem:     make(map[uintptr]uint32),
		onRead:  make(map[uintptr]func() uint32),
		onWrite: make(map[uintptr]func(v uint32)),
	}
}

func (m *mockWindow) Read32(offs uintptr) uint32 {
	v := m.mem[offs]
	if f, ok := m.onRead[offs]; ok {
		v = f()
	}
	m.log = append(m.log, access{false, offs, v})
	return v
}

func (m *mockWindow) Write32(offs uintptr, v uint32) {
	m.log = append(m.log, access{true, offs, v})
	m.mem[offs] = v
	if f, ok := m.onWrite[offs]; ok {
		f(v)
	}
}

func (m *mockWindow) writes() []access {
	var w []access
	for _, a := range m.log {
		if a.write {
			w = append(w, a)
		}
	}
	return w
}

func (m *mockWindow) reads() []access {
	var r []access
	for _, a := range m.log {
		if !a.write {
			r = append(r, a)
		}
	}
	return r
}

func (m *mockWindow) count(write bool, offs uintptr) int {
	n := 0
	for _, a := range m.log {
		if a.write == write && a.offs == offs {
			n++
		}
	}
	return n
}

// setAfter makes reads of offs return 0 for n reads, then v.
func (m *mockWindow) setAfter(offs uintptr, n int, v uint32) {
	m.onRead[offs] = func() uint32 {
		if n > 0 {
			n--
			return 0
		}
		return v
	}
}

// newMockDLA returns a handle over mock register and DMEM windows,
// with polls bounded so a broken test fails rather than hangs.
func newMockDLA() (*DLA, *mockWindow, *mockWindow) {
	regs, dmem := newMock(), newMock()
	return New(regs, dmem, NewConfig().PollLimit(1000)), regs, dmem
}

// ddrSim simulates the DDR controller behind the CPU access channel.
// Written data is kept per 8 byte word address; reads land in DMEM
// at the address derived offset, 8 bytes each time the write pointer
// is polled.
type ddrSim struct {
	regs, dmem *mockWindow
	ddr        map[uint32][2]uint32 // hi, lo words
	cmd        DDRCmd
	addr       uint32
	latched    bool
	chunks     int
	wptr       Cursor
	pending    int // bytes of a read still to land
	readAddr   uint32
	corrupt    bool
}

func newDDRSim() (*DLA, *ddrSim) {
	d, regs, dmem := newMockDLA()
	s := &ddrSim{regs: regs, dmem: dmem, ddr: make(map[uint32][2]uint32)}
	regs.onWrite[rDDRValid] = s.strobe
	regs.onRead[rDDRWptr] = s.poll
	return d, s
}

func (s *ddrSim) strobe(v uint32) {
	if !s.latched {
		s.cmd = DecodeDDRCmd(s.regs.mem[rDDRCmd])
		s.addr = s.regs.mem[rDDRCmdAddr]
		s.latched = true
		s.chunks = 0
		if !s.cmd.Write {
			s.pending = s.cmd.Len
			s.readAddr = s.addr
		}
		return
	}
	a := s.addr + uint32(s.chunks)
	s.ddr[a] = [2]uint32{s.regs.mem[rDDRDataHi], s.regs.mem[rDDRDataLo]}
	s.chunks++
	if s.chunks*ddrWordSize == s.cmd.Len {
		s.latched = false
		s.regs.mem[rDDRAck] = 1
	}
}

func (s *ddrSim) poll() uint32 {
	if s.pending > 0 {
		done := s.cmd.Len - s.pending
		w := s.ddr[s.readAddr+uint32(done/ddrWordSize)]
		if s.corrupt {
			w[1] ^= 1
		}
		offs := uintptr((int(s.readAddr)*ddrWordSize + done) & dmemMask)
		// The sim stores words as a little endian driver would.
		s.dmem.mem[offs] = w[1]
		s.dmem.mem[offs+4] = w[0]
		s.pending -= ddrWordSize
		s.wptr = s.wptr.Advance(ddrWordSize)
		if s.pending == 0 {
			s.latched = false
			s.regs.mem[rDDRAck] = 1
		}
	}
	return uint32(s.wptr)
}
