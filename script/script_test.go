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

package script_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/aamcrae/dla"
	"github.com/aamcrae/dla/script"
)

// regs is a register window where every status reads as set.
type regs struct {
	writes []uint32 // offsets written, in order
	mem    map[uintptr]uint32
}

func (r *regs) Read32(offs uintptr) uint32 {
	if v, ok := r.mem[offs]; ok {
		return v
	}
	return 1
}

func (r *regs) Write32(offs uintptr, v uint32) {
	r.writes = append(r.writes, uint32(offs))
	r.mem[offs] = v
}

func newDLA() (*dla.DLA, *regs) {
	r := &regs{mem: make(map[uintptr]uint32)}
	dmem := &regs{mem: make(map[uintptr]uint32)}
	return dla.New(r, dmem, dla.NewConfig().PollLimit(50)), r
}

const sample = `
# Move weights in, then convolve.
calibrate
ddr-write 0x100 "00112233 44556677"
move -len 64 -dram0 0x100 -mux 1 -addr 0x40
wait move
load -len 256 -src 0x10 -dst 0x20
conv -ksize 3 -iflen 32 -oflen 30 -ich 16 -och 32 -wbuf 0x100 -sparsity 1
wait conv
ppe -act 1 -bias -rows 4 -table '0:0:0,256:0:0x7fffffff'
wait
`

func TestParse(t *testing.T) {
	steps, err := script.Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	cmds := []string{"calibrate", "ddr-write", "move", "wait", "load", "conv", "wait", "ppe", "wait"}
	if len(steps) != len(cmds) {
		t.Fatalf("got %d steps, expected %d", len(steps), len(cmds))
	}
	for i, s := range steps {
		if s.Cmd != cmds[i] {
			t.Errorf("step %d: got %s, expected %s", i, s.Cmd, cmds[i])
		}
	}
	if steps[0].Line != 3 {
		t.Errorf("first step on line %d", steps[0].Line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown":     "frobnicate",
		"quote":       `conv -ksize "3`,
		"bad-flag":    "conv -size 3",
		"overflow":    "conv -ksize 256",
		"stray-arg":   "load -len 4 extra",
		"wait-job":    "wait dma",
		"ddr-len":     "ddr-write 0 001122",
		"ddr-hex":     "ddr-write 0 zz",
		"read-len":    "ddr-read 0 12",
		"read-big":    "ddr-read 0 8192",
		"table":       "ppe -table 1:2",
		"table-count": "ppe -table " + strings.Repeat("0:0:0,", 16) + "0:0:0",
		"calibrate":   "calibrate now",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := script.Parse(strings.NewReader(src)); err == nil {
				t.Fatalf("%q parsed without error", src)
			}
		})
	}
}

func TestRun(t *testing.T) {
	steps, err := script.Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	d, r := newDLA()
	var out bytes.Buffer
	if err := script.Run(d, steps, &out); err != nil {
		t.Fatal(err)
	}
	ctrl := map[uint32]bool{0x054: true, 0x090: true, 0x0C8: true, 0x0E0: true}
	var started []uint32
	for _, offs := range r.writes {
		if ctrl[offs] {
			started = append(started, offs)
		}
	}
	want := []uint32{0x0E0, 0x0C8, 0x054, 0x090}
	if len(started) != len(want) {
		t.Fatalf("started %x, expected %x", started, want)
	}
	for i := range want {
		if started[i] != want[i] {
			t.Fatalf("started %x, expected %x", started, want)
		}
	}
	conv := dla.DecodeKernelWord(r.mem[0x040])
	if conv.Size != 3 {
		t.Errorf("kernel size %d", conv.Size)
	}
	if c := dla.DecodeConvCtrl(r.mem[0x054]); !c.Start || c.Sparsity != 1 {
		t.Errorf("conv control %+v", c)
	}
	if int32(r.mem[0x204]) != 256 || int32(r.mem[0x284]) != 0x7fffffff {
		t.Errorf("activation table not written")
	}
}

func TestRunError(t *testing.T) {
	steps, err := script.Parse(strings.NewReader("wait conv\nddr-read 0x10 16\n"))
	if err != nil {
		t.Fatal(err)
	}
	d, r := newDLA()
	r.mem[0x124] = 0 // write pointer never moves
	var out bytes.Buffer
	err = script.Run(d, steps, &out)
	if !errors.Is(err, dla.ErrTimeout) {
		t.Fatalf("got %v, expected ErrTimeout", err)
	}
	if !strings.HasPrefix(err.Error(), "line 2: ddr-read") {
		t.Errorf("error %q does not name the step", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}
