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
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// IntFlag is a set of DLA interrupt sources.
type IntFlag uint32

const (
	IntDone IntFlag = 1 << iota // Accelerator done
	IntConv                     // Convolution done
	IntPPE                      // Post-processing done
	IntMove                     // DDR move or load done
	IntDDR                      // DDR CPU access acknowledged
)

// EnableInterrupts enables the interrupt sources in mask.
func (d *DLA) EnableInterrupts(mask IntFlag) error {
	if !d.valid() {
		return ErrBadArg
	}
	d.wr(rIntEnSet, uint32(mask))
	return nil
}

// DisableInterrupts disables the interrupt sources in mask.
func (d *DLA) DisableInterrupts(mask IntFlag) error {
	if !d.valid() {
		return ErrBadArg
	}
	d.wr(rIntEnClr, uint32(mask))
	return nil
}

// PendingInterrupts returns the interrupt sources that are raised.
func (d *DLA) PendingInterrupts() IntFlag {
	if !d.valid() {
		return 0
	}
	return IntFlag(d.rd(rIntStat))
}

// AckInterrupts clears the pending interrupt sources in mask.
func (d *DLA) AckInterrupts(mask IntFlag) error {
	if !d.valid() {
		return ErrBadArg
	}
	d.wr(rIntStat, uint32(mask))
	return nil
}

var errHandler = errors.New("Handler registered, cannot wait")

// Interrupt represents the UIO interrupt device of the DLA.
// The polling paths of the driver never depend on it.
type Interrupt struct {
	dev               io.ReadWriteCloser
	handlerRegistered bool
	intChan           chan int
	hStop             chan chan int
}

// OpenInterrupt opens the interrupt device /dev/uioN.
func OpenInterrupt(n int) (*Interrupt, error) {
	f, err := os.OpenFile(fmt.Sprintf(drvUio, n), os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, err
	}
	return NewInterrupt(f)
}

// NewInterrupt starts reading interrupt counts from a device that behaves
// as a UIO device: each read returns a 4 byte count, and writing a 4 byte 1
// re-enables the interrupt.
func NewInterrupt(dev io.ReadWriteCloser) (*Interrupt, error) {
	i := &Interrupt{dev: dev, intChan: make(chan int, 50)}
	if err := i.rearm(); err != nil {
		dev.Close()
		return nil, err
	}
	go i.reader()
	return i, nil
}

// Close frees the resources associated with this interrupt.
func (i *Interrupt) Close() error {
	i.ClearHandler()
	return i.dev.Close()
}

// SetHandler installs an asynch handler that is invoked when interrupts are
// read from the device. The argument to the handler is the
// running count of interrupts reported by the device.
func (i *Interrupt) SetHandler(f func(int)) {
	if i.handlerRegistered {
		i.ClearHandler()
	}
	i.handlerRegistered = true
	i.hStop = make(chan chan int)
	go i.dispatcher(f)
}

// ClearHandler removes any currently installed handler.
func (i *Interrupt) ClearHandler() {
	if i.handlerRegistered {
		// Create a channel to be used to signal when the handler has exited.
		c := make(chan int)
		i.hStop <- c
		<-c
		i.handlerRegistered = false
	}
}

// Wait blocks until an interrupt is received and returns the interrupt count.
// This cannot be used if a handler has been installed.
func (i *Interrupt) Wait() (int, error) {
	if i.handlerRegistered {
		return 0, errHandler
	}
	v, ok := <-i.intChan
	if !ok {
		return 0, io.EOF
	}
	return v, nil
}

// WaitTimeout waits for an interrupt, returning if the timeout expires e.g
//  v, ok, err := irq.WaitTimeout(time.Second)
//  if ok {
//      // Interrupt received
//  else {
//      // Timed out
//  }
func (i *Interrupt) WaitTimeout(tout time.Duration) (int, bool, error) {
	if i.handlerRegistered {
		return 0, false, errHandler
	}
	timer := time.NewTimer(tout)
	defer timer.Stop()
	select {
	case v, ok := <-i.intChan:
		if !ok {
			return 0, false, io.EOF
		}
		return v, true, nil
	case <-timer.C:
		return -1, false, nil
	}
}

// dispatcher is a shim between the device and the
// external handler that will be invoked when an interrupt is received.
func (i *Interrupt) dispatcher(f func(int)) {
	for {
		select {
		case c := <-i.hStop:
			// Send a value back to signal that the handler has terminated.
			c <- 0
			return
		case v, ok := <-i.intChan:
			if !ok {
				// Device closed, wait to be stopped.
				c := <-i.hStop
				c <- 0
				return
			}
			f(v)
		}
	}
}

// reader reads the device and sends the count to the channel,
// re-enabling the interrupt after each one.
func (i *Interrupt) reader() {
	defer close(i.intChan)
	b := make([]byte, 4)
	for {
		n, err := io.ReadFull(i.dev, b)
		if err != nil || n != 4 {
			return
		}
		v := int(int32(binary.NativeEndian.Uint32(b)))
		if i.rearm() != nil {
			return
		}
		select {
		case i.intChan <- v:
		default:
			// Channel full, drop the count.
		}
	}
}

func (i *Interrupt) rearm() error {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], 1)
	_, err := i.dev.Write(b[:])
	return err
}
