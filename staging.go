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
	"fmt"
	"io"
)

// checkStaging validates a word aligned access to DMEM.
func checkStaging(offs, n int) error {
	if n%4 != 0 || offs%4 != 0 || offs < 0 || offs+n > DMEMSize {
		return ErrBadArg
	}
	return nil
}

// ReadStaging copies DMEM from offs into p, one 32 bit word at a time.
// Both offs and the length of p must be word aligned and lie within DMEM.
func (d *DLA) ReadStaging(offs int, p []byte) error {
	if !d.valid() {
		return ErrBadArg
	}
	if err := checkStaging(offs, len(p)); err != nil {
		return err
	}
	d.readWords(offs, p)
	return nil
}

// WriteStaging copies p into DMEM at offs, one 32 bit word at a time.
// Both offs and the length of p must be word aligned and lie within DMEM.
func (d *DLA) WriteStaging(offs int, p []byte) error {
	if !d.valid() {
		return ErrBadArg
	}
	if err := checkStaging(offs, len(p)); err != nil {
		return err
	}
	for i := 0; i < len(p); i += 4 {
		d.dmem.Write32(uintptr(offs+i), d.Order.Uint32(p[i:]))
	}
	return nil
}

func (d *DLA) readWords(offs int, p []byte) {
	for i := 0; i < len(p); i += 4 {
		d.Order.PutUint32(p[i:], d.dmem.Read32(uintptr(offs+i)))
	}
}

// Staging returns a type that can use a Reader/Writer interface to DMEM.
// Transfers must remain word aligned.
func (d *DLA) Staging() *StagingIO {
	return &StagingIO{d: d}
}

// StagingIO implements various io interfaces over DMEM.
type StagingIO struct {
	d       *DLA
	current int
}

// Write copies the byte slice into DMEM at the current offset.
func (s *StagingIO) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, int64(s.current))
	s.current += n
	return n, err
}

// WriteAt copies the byte slice into DMEM at the offset specified.
func (s *StagingIO) WriteAt(p []byte, offs int64) (int, error) {
	if offs >= DMEMSize {
		return 0, io.EOF
	}
	n := min(len(p), DMEMSize-int(offs))
	if err := s.d.WriteStaging(int(offs), p[:n]); err != nil {
		return 0, err
	}
	if n != len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek moves the offset
func (s *StagingIO) Seek(offs int64, whence int) (int64, error) {
	n := int(offs)
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		n += s.current
	case io.SeekEnd:
		n = DMEMSize + n
	default:
		return 0, fmt.Errorf("unknown whence")
	}
	if n < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	s.current = n
	return int64(s.current), nil
}

// Read copies DMEM from the current offset into the byte slice.
func (s *StagingIO) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, int64(s.current))
	s.current += n
	return n, err
}

// ReadAt copies DMEM from the offset specified into the byte slice.
func (s *StagingIO) ReadAt(p []byte, offs int64) (int, error) {
	if offs >= DMEMSize {
		return 0, io.EOF
	}
	n := min(len(p), DMEMSize-int(offs))
	if err := s.d.ReadStaging(int(offs), p[:n]); err != nil {
		return 0, err
	}
	if n != len(p) {
		return n, io.EOF
	}
	return n, nil
}
