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

// Package script replays a schedule of DLA job submissions from a text file.
//
// Each line holds one command, tokenised with shell quoting rules. Blank lines
// and lines starting with # are ignored, e.g:
//
//   calibrate
//   ddr-write 0x100 "00112233 44556677"
//   move -len 64 -dram0 0x100 -mux 1 -addr 0x40
//   wait move
//   conv -ksize 3 -iflen 32 -oflen 30 -ich 16 -och 32 -wbuf 0x100
//   wait conv
//   ddr-read 0x100 16
package script

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"golang.org/x/exp/constraints"

	"github.com/aamcrae/dla"
)

// Step is one parsed command.
type Step struct {
	Line int
	Cmd  string
	run  func(d *dla.DLA, w io.Writer) error
}

// Run executes the step. Output from reads is written to w.
func (s *Step) Run(d *dla.DLA, w io.Writer) error {
	if err := s.run(d, w); err != nil {
		return fmt.Errorf("line %d: %s: %w", s.Line, s.Cmd, err)
	}
	return nil
}

type parser func(args []string) (func(d *dla.DLA, w io.Writer) error, error)

var commands = map[string]parser{
	"calibrate": parseCalibrate,
	"conv":      parseConv,
	"ppe":       parsePPE,
	"load":      parseLoad,
	"move":      parseMove,
	"wait":      parseWait,
	"ddr-write": parseDDRWrite,
	"ddr-read":  parseDDRRead,
}

// Parse reads a script, returning the steps in order.
func Parse(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		words, err := shellquote.Split(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p, ok := commands[words[0]]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown command %q", line, words[0])
		}
		run, err := p(words[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, words[0], err)
		}
		steps = append(steps, Step{Line: line, Cmd: words[0], run: run})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// Run executes the steps in order, stopping at the first error.
func Run(d *dla.DLA, steps []Step, w io.Writer) error {
	for i := range steps {
		if err := steps[i].Run(d, w); err != nil {
			return err
		}
	}
	return nil
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// uintFlag defines a flag holding an unsigned value of the given bit size.
// Numbers may use a 0x, 0o or 0b prefix.
func uintFlag[T constraints.Unsigned](fs *flag.FlagSet, name string, p *T, bits int) {
	fs.Func(name, fmt.Sprintf("%d bit value", bits), func(s string) error {
		v, err := strconv.ParseUint(s, 0, bits)
		if err != nil {
			return err
		}
		*p = T(v)
		return nil
	})
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	return nil
}

func parseCalibrate(args []string) (func(*dla.DLA, io.Writer) error, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("no arguments expected")
	}
	return func(d *dla.DLA, _ io.Writer) error {
		return d.WaitCalibration()
	}, nil
}

func parseConv(args []string) (func(*dla.DLA, io.Writer) error, error) {
	var j dla.ConvJob
	fs := newFlags("conv")
	uintFlag(fs, "ksize", &j.KernelSize, 8)
	uintFlag(fs, "kscale", &j.KernelScale, 8)
	uintFlag(fs, "iflen", &j.InLen, 16)
	uintFlag(fs, "oflen", &j.OutLen, 16)
	uintFlag(fs, "ich", &j.InChannels, 16)
	uintFlag(fs, "och", &j.OutChannels, 16)
	uintFlag(fs, "lpad", &j.LeftPad, 8)
	uintFlag(fs, "rpad", &j.RightPad, 8)
	uintFlag(fs, "padcnt", &j.PadCount, 16)
	uintFlag(fs, "colsub", &j.ColSubsample, 8)
	uintFlag(fs, "rowsub", &j.RowSubsample, 8)
	uintFlag(fs, "lbuf", &j.LBufAddr, 16)
	uintFlag(fs, "wbuf", &j.WBufAddr, 16)
	uintFlag(fs, "ibuf", &j.IBufAddr, 16)
	uintFlag(fs, "sparsity", &j.Sparsity, 8)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return func(d *dla.DLA, _ io.Writer) error {
		return d.Conv(&j)
	}, nil
}

func parsePPE(args []string) (func(*dla.DLA, io.Writer) error, error) {
	var j dla.PostProcessJob
	fs := newFlags("ppe")
	uintFlag(fs, "act", &j.Activation, 8)
	fs.BoolVar(&j.ElementWise, "elem", false, "element-wise operation")
	fs.BoolVar(&j.Bias, "bias", false, "bias add")
	fs.BoolVar(&j.PassThrough, "pass", false, "pass through")
	uintFlag(fs, "rows", &j.Rows, 8)
	uintFlag(fs, "iter", &j.Iterations, 16)
	uintFlag(fs, "len", &j.Length, 16)
	uintFlag(fs, "fsrc", &j.FBufSrc, 16)
	uintFlag(fs, "fdst", &j.FBufDst, 16)
	uintFlag(fs, "asrc", &j.ABufSrc, 16)
	uintFlag(fs, "adst", &j.ABufDst, 16)
	uintFlag(fs, "dilation", &j.Dilation, 16)
	uintFlag(fs, "skip", &j.Skip, 16)
	fs.Func("table", "slope:intercept:breakpoint,...", func(s string) error {
		return parseTable(s, &j.Table)
	})
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return func(d *dla.DLA, _ io.Writer) error {
		return d.PostProcess(&j)
	}, nil
}

// parseTable decodes comma separated slope:intercept:breakpoint triples.
func parseTable(s string, t *[16]dla.Activation) error {
	entries := strings.Split(s, ",")
	if len(entries) > len(t) {
		return fmt.Errorf("%d table entries, maximum is %d", len(entries), len(t))
	}
	for i, e := range entries {
		f := strings.Split(e, ":")
		if len(f) != 3 {
			return fmt.Errorf("table entry %d: %q is not slope:intercept:breakpoint", i, e)
		}
		var v [3]int32
		for k := range f {
			n, err := strconv.ParseInt(f[k], 0, 32)
			if err != nil {
				return fmt.Errorf("table entry %d: %w", i, err)
			}
			v[k] = int32(n)
		}
		t[i] = dla.Activation{Slope: v[0], Intercept: v[1], Breakpoint: v[2]}
	}
	return nil
}

func parseLoad(args []string) (func(*dla.DLA, io.Writer) error, error) {
	var j dla.LoadJob
	fs := newFlags("load")
	uintFlag(fs, "len", &j.Length, 16)
	uintFlag(fs, "src", &j.Src, 16)
	uintFlag(fs, "dst", &j.Dst, 16)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return func(d *dla.DLA, _ io.Writer) error {
		return d.Load(&j)
	}, nil
}

func parseMove(args []string) (func(*dla.DLA, io.Writer) error, error) {
	var j dla.MoveJob
	var store bool
	fs := newFlags("move")
	uintFlag(fs, "len", &j.Length, 32)
	uintFlag(fs, "dram0", &j.DRAM[0], 32)
	fs.Func("dram1", "second DRAM address", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return err
		}
		j.DRAM[1] = uint32(v)
		j.Dual = true
		return nil
	})
	uintFlag(fs, "mux", &j.Mux, 8)
	uintFlag(fs, "index", &j.Index, 8)
	uintFlag(fs, "addr", &j.Addr, 32)
	fs.BoolVar(&store, "store", false, "move from buffer to DDR")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if store {
		j.Dir = dla.Store
	}
	return func(d *dla.DLA, _ io.Writer) error {
		return d.Move(&j)
	}, nil
}

var jobs = map[string]dla.Job{
	"conv": dla.JobConv,
	"ppe":  dla.JobPPE,
	"move": dla.JobMove,
	"load": dla.JobMove,
}

func parseWait(args []string) (func(*dla.DLA, io.Writer) error, error) {
	switch len(args) {
	case 0:
		return func(d *dla.DLA, _ io.Writer) error {
			return d.WaitDone()
		}, nil
	case 1:
		j, ok := jobs[args[0]]
		if !ok {
			return nil, fmt.Errorf("unknown job %q", args[0])
		}
		return func(d *dla.DLA, _ io.Writer) error {
			return d.WaitJob(j)
		}, nil
	}
	return nil, fmt.Errorf("too many arguments")
}

func parseDDRWrite(args []string) (func(*dla.DLA, io.Writer) error, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: ddr-write ADDR HEXDATA")
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(args[1]), ""))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%8 != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of 8", len(data))
	}
	return func(d *dla.DLA, _ io.Writer) error {
		return d.WriteDDR(uint32(addr), data)
	}, nil
}

func parseDDRRead(args []string) (func(*dla.DLA, io.Writer) error, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: ddr-read ADDR LEN")
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return nil, err
	}
	if n == 0 || n%8 != 0 || n > dla.DMEMSize {
		return nil, fmt.Errorf("length %d must be a multiple of 8 up to %d", n, dla.DMEMSize)
	}
	return func(d *dla.DLA, w io.Writer) error {
		buf := make([]byte, n)
		_, err := d.ReadDDR(uint32(addr), buf)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "0x%08x: %x\n", addr, buf)
		return err
	}, nil
}
