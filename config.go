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
	"log"
)

// Config contains the options used to open the DLA.
// A configuration is initialised through config methods on this structure e.g:
//   c := NewConfig()
//   c.Device(1).PollLimit(100000)
//   d, err := dla.Open(c)
type Config struct {
	uio       int
	regMap    int
	dmemMap   int
	pollLimit int
	order     binary.ByteOrder
	logger    *log.Logger
}

// The default config.
// The default configuration uses /dev/uio0, with the register block as
// map 0 and DMEM as map 1, little endian data and unbounded polling.
var DefaultConfig *Config

func init() {
	DefaultConfig = NewConfig()
}

// NewConfig creates a Config with default settings.
func NewConfig() *Config {
	c := new(Config)
	c.Clear()
	return c
}

// Clear resets the configuration
func (c *Config) Clear() *Config {
	c.uio = 0
	c.regMap = 0
	c.dmemMap = 1
	c.pollLimit = 0
	c.order = binary.LittleEndian
	c.logger = nil
	return c
}

// Device selects the UIO device number (/dev/uioN).
func (c *Config) Device(n int) *Config {
	c.uio = n
	return c
}

// Maps selects the UIO map indices of the register block and of DMEM.
func (c *Config) Maps(regs, dmem int) *Config {
	c.regMap = regs
	c.dmemMap = dmem
	return c
}

// PollLimit bounds every status poll to n register reads; a poll that
// exceeds it returns ErrTimeout. A limit of 0 spins until the hardware
// responds, matching the hardware's timing assumptions.
func (c *Config) PollLimit(n int) *Config {
	if n < 0 {
		n = 0
	}
	c.pollLimit = n
	return c
}

// Order sets the byte order used to pack byte streams into 32 bit words.
func (c *Config) Order(o binary.ByteOrder) *Config {
	c.order = o
	return c
}

// Logger installs a logger for driver diagnostics. By default nothing is logged.
func (c *Config) Logger(l *log.Logger) *Config {
	c.logger = l
	return c
}
