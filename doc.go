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

/*

Package dla controls the DLA neural network accelerator, a peripheral attached
to the memory mapped bus of the SoC. The register block and the accelerator's
4 KiB staging memory (DMEM) are exposed to user space by a UIO kernel driver,
and are mapped into the process when the device is opened e.g:

  d, err := dla.Open(dla.DefaultConfig)
  if err != nil {
      log.Fatalf("%s", err)
  }
  defer d.Close()

Jobs (convolution, post-processing, buffer loads and DDR moves) are submitted
as descriptors. Each submission writes the job's parameter registers and then
the control register, which starts the job; the caller waits for the job with
WaitDone or WaitJob before submitting the next one:

  err = d.Conv(&dla.ConvJob{KernelSize: 3, InLen: 32, OutLen: 30, ...})
  err = d.WaitJob(dla.JobConv)

The CPU can also stream data to and from DDR directly with WriteDDR and ReadDDR.
Reads land in DMEM, which the hardware fills as a ring; the returned Cursor is
the ring's write pointer.

All waits spin on a status register. By default they spin until the hardware
responds; Config.PollLimit bounds them, which is mostly useful for testing.

Building with the debug tag enables assertions on descriptor field widths and
transfer lengths. Release builds pack the fields without checks.

*/
package dla
