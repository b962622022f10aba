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

// Job identifies the done register of one kind of job.
type Job int

const (
	JobConv Job = iota
	JobPPE
	JobMove // DDR moves and local buffer loads
)

var doneRegs = [...]uintptr{
	JobConv: rConvDone,
	JobPPE:  rPPEDone,
	JobMove: rMoveDone,
}

// pollUntil reads until cond is true. With no poll limit configured it
// spins forever if the hardware never responds.
func (d *DLA) pollUntil(what string, cond func() bool) error {
	for n := 0; !cond(); n++ {
		if d.pollLimit != 0 && n >= d.pollLimit {
			d.logf("%s: no response after %d polls", what, n)
			return ErrTimeout
		}
	}
	return nil
}

// waitAck spins until the status register is nonzero, then clears it.
func (d *DLA) waitAck(what string, reg uintptr) error {
	err := d.pollUntil(what, func() bool {
		return d.rd(reg) != 0
	})
	if err != nil {
		return err
	}
	d.wr(reg, 0)
	return nil
}

// WaitDone blocks until the accelerator signals completion, and acknowledges it.
func (d *DLA) WaitDone() error {
	if !d.valid() {
		return ErrBadArg
	}
	return d.waitAck("done", rDone)
}

// WaitJob blocks until the job kind signals completion, and acknowledges it.
func (d *DLA) WaitJob(j Job) error {
	if !d.valid() || j < 0 || int(j) >= len(doneRegs) {
		return ErrBadArg
	}
	return d.waitAck("job done", doneRegs[j])
}

// Ack clears the done status of a job kind without waiting.
// Acknowledging an already clear status has no effect.
func (d *DLA) Ack(j Job) error {
	if !d.valid() || j < 0 || int(j) >= len(doneRegs) {
		return ErrBadArg
	}
	d.wr(doneRegs[j], 0)
	return nil
}

// Busy returns true if the job kind has not yet signalled completion.
func (d *DLA) Busy(j Job) bool {
	if !d.valid() || j < 0 || int(j) >= len(doneRegs) {
		return false
	}
	return d.rd(doneRegs[j]) == 0
}
