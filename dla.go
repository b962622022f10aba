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
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/aamcrae/dla/debug"
)

// Device paths.
const (
	drvMapBase = "/sys/class/uio/uio%d/maps/map%d/addr"
	drvMapSize = "/sys/class/uio/uio%d/maps/map%d/size"
	drvUio     = "/dev/uio%d"
)

// Window is a memory mapped block of 32 bit words.
// Offsets are in bytes and must be 32 bit aligned.
type Window interface {
	Read32(offs uintptr) uint32
	Write32(offs uintptr, v uint32)
}

// DLA is a handle to one accelerator. The handle is used by
// a single caller; none of the methods are safe for concurrent use.
type DLA struct {
	regs      Window
	dmem      Window
	pollLimit int
	logger    *log.Logger

	mmapFile *os.File
	regMem   []byte
	dmemMem  []byte
	regBase  int
	dmemBase int

	Order binary.ByteOrder // Byte order of data copied through DMEM.
}

// Open maps the DLA register block and staging memory using the configuration provided.
func Open(c *Config) (*DLA, error) {
	if c == nil {
		c = DefaultConfig
	}
	d := newDLA(c)
	var err error
	var regSz, dmemSz int
	d.regBase, regSz, err = mapInfo(c.uio, c.regMap)
	if err != nil {
		return nil, err
	}
	d.dmemBase, dmemSz, err = mapInfo(c.uio, c.dmemMap)
	if err != nil {
		return nil, err
	}
	if regSz < regSize || dmemSz < DMEMSize {
		return nil, fmt.Errorf("DLA maps too small (regs %d, dmem %d)", regSz, dmemSz)
	}
	name := fmt.Sprintf(drvUio, c.uio)
	f, err := os.OpenFile(name, os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, err
	}
	// UIO selects the map through the offset, in units of pages.
	pg := os.Getpagesize()
	d.regMem, err = unix.Mmap(int(f.Fd()), int64(c.regMap*pg), regSz, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	d.dmemMem, err = unix.Mmap(int(f.Fd()), int64(c.dmemMap*pg), dmemSz, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Munmap(d.regMem)
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	d.mmapFile = f
	d.regs = mmioWindow(d.regMem)
	d.dmem = mmioWindow(d.dmemMem)
	if vers := d.regs.Read32(rVersion); vers != dlaVersion {
		d.Close()
		return nil, fmt.Errorf("Unknown DLA version: 0x%08x", vers)
	}
	d.logf("opened %s", d.Description())
	return d, nil
}

// New creates a DLA handle over the register and staging windows provided.
// This allows the driver to run over other transports, or against a simulation.
func New(regs, dmem Window, c *Config) *DLA {
	if c == nil {
		c = DefaultConfig
	}
	d := newDLA(c)
	d.regs = regs
	d.dmem = dmem
	return d
}

func newDLA(c *Config) *DLA {
	return &DLA{
		pollLimit: c.pollLimit,
		logger:    c.logger,
		Order:     c.order,
	}
}

// Close releases the memory maps. The accelerator is left as is.
func (d *DLA) Close() {
	if d == nil || d.mmapFile == nil {
		return
	}
	unix.Munmap(d.dmemMem)
	unix.Munmap(d.regMem)
	d.mmapFile.Close()
	d.mmapFile = nil
	d.regs = nil
	d.dmem = nil
	d.logf("closed")
}

// valid reports whether the handle can be used to access the hardware.
func (d *DLA) valid() bool {
	return d != nil && d.regs != nil && d.dmem != nil
}

// Description returns a human readable string describing the DLA
func (d *DLA) Description() string {
	var s strings.Builder
	fmt.Fprint(&s, "DLA")
	if d.mmapFile != nil {
		fmt.Fprintf(&s, " regs 0x%08x DMEM 0x%08x", d.regBase, d.dmemBase)
	}
	if d.Order == binary.LittleEndian {
		fmt.Fprint(&s, " Little endian")
	} else {
		fmt.Fprint(&s, " Big endian")
	}
	if d.pollLimit == 0 {
		fmt.Fprint(&s, ", unbounded polling")
	} else {
		fmt.Fprintf(&s, ", poll limit %d", d.pollLimit)
	}
	return s.String()
}

func (d *DLA) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf("dla: "+format, args...)
	}
}

// rd reads one 32 bit register.
func (d *DLA) rd(offs uintptr) uint32 {
	return d.regs.Read32(offs)
}

// wr writes one 32 bit register.
func (d *DLA) wr(offs uintptr, v uint32) {
	d.regs.Write32(offs, v)
}

// mmioWindow accesses a mapped device region.
type mmioWindow []byte

func (m mmioWindow) Read32(offs uintptr) uint32 {
	debug.Assert(offs&3 == 0, "dla: unaligned read")
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m[offs])))
}

func (m mmioWindow) Write32(offs uintptr, v uint32) {
	debug.Assert(offs&3 == 0, "dla: unaligned write")
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m[offs])), v)
}

// mapInfo reads the physical address and size of a UIO map.
func mapInfo(uio, m int) (base, size int, err error) {
	base, err = readDriverValue(fmt.Sprintf(drvMapBase, uio, m))
	if err != nil {
		return
	}
	size, err = readDriverValue(fmt.Sprintf(drvMapSize, uio, m))
	return
}

// readDriverValue opens and reads a string from a device file and decodes
// the string as an integer. This is used to retrieve the map
// parameters from the UIO kernel device driver.
func readDriverValue(s string) (int, error) {
	var val int
	f, err := os.Open(s)
	if err != nil {
		return -1, err
	}
	defer f.Close()
	n, err := fmt.Fscanf(f, "%v", &val)
	if err != nil {
		return -1, fmt.Errorf("%s: %v", s, err)
	}
	if n != 1 {
		return -1, fmt.Errorf("%s: no value found", s)
	}
	return val, nil
}
