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
	"io"
	"sync"
	"testing"
	"time"
)

// uioDev behaves as a UIO device: reads return interrupt counts
// sent by the test, and writes (re-enables) are counted.
type uioDev struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu     sync.Mutex
	rearms int
}

func newUIODev() *uioDev {
	r, w := io.Pipe()
	return &uioDev{r: r, w: w}
}

func (u *uioDev) Read(p []byte) (int, error) { return u.r.Read(p) }

func (u *uioDev) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rearms++
	return len(p), nil
}

func (u *uioDev) Close() error {
	u.w.Close()
	return u.r.Close()
}

func (u *uioDev) raise(count int) {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], uint32(count))
	u.w.Write(b[:])
}

func (u *uioDev) rearmed() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rearms
}

func TestInterruptWait(t *testing.T) {
	dev := newUIODev()
	irq, err := NewInterrupt(dev)
	if err != nil {
		t.Fatal(err)
	}
	go dev.raise(7)
	v, err := irq.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("got count %d, expected 7", v)
	}
	if _, ok, err := irq.WaitTimeout(10 * time.Millisecond); ok || err != nil {
		t.Errorf("expected timeout, got %v %v", ok, err)
	}
	go dev.raise(8)
	v, ok, err := irq.WaitTimeout(time.Second)
	if !ok || err != nil || v != 8 {
		t.Errorf("got %d %v %v", v, ok, err)
	}
	if n := dev.rearmed(); n < 2 {
		t.Errorf("interrupt re-enabled %d times", n)
	}
	irq.Close()
	if _, err := irq.Wait(); err != io.EOF {
		t.Errorf("got %v after close, expected EOF", err)
	}
}

func TestInterruptHandler(t *testing.T) {
	dev := newUIODev()
	irq, err := NewInterrupt(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer irq.Close()
	got := make(chan int, 3)
	irq.SetHandler(func(v int) {
		got <- v
	})
	if _, err := irq.Wait(); err == nil {
		t.Error("Wait allowed with a handler installed")
	}
	for i := 1; i <= 3; i++ {
		dev.raise(i)
	}
	for i := 1; i <= 3; i++ {
		select {
		case v := <-got:
			if v != i {
				t.Errorf("handler got %d, expected %d", v, i)
			}
		case <-time.After(time.Second):
			t.Fatal("handler not called")
		}
	}
	irq.ClearHandler()
	go dev.raise(4)
	if v, ok, _ := irq.WaitTimeout(time.Second); !ok || v != 4 {
		t.Errorf("after clearing handler got %d %v", v, ok)
	}
}

func TestInterruptRegisters(t *testing.T) {
	d, regs, _ := newMockDLA()
	d.EnableInterrupts(IntConv | IntPPE)
	d.DisableInterrupts(IntPPE)
	regs.mem[rIntStat] = uint32(IntConv | IntDDR)
	p := d.PendingInterrupts()
	if p != IntConv|IntDDR {
		t.Errorf("pending 0x%x", p)
	}
	d.AckInterrupts(p)
	checkWrites(t, regs, []access{
		{true, rIntEnSet, uint32(IntConv | IntPPE)},
		{true, rIntEnClr, uint32(IntPPE)},
		{true, rIntStat, uint32(IntConv | IntDDR)},
	})
}
