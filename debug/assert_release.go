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

//go:build !debug

// Package debug provides assertions that are compiled in with the debug
// build tag, and are no-ops otherwise, e.g.
//  go test -tags debug ./...
package debug

// Enabled guards assertions that are expensive to evaluate, e.g.
//  if debug.Enabled { ... }
const Enabled = false

// Assert panics with message if b is false.
func Assert(b bool, message string) {}

// Assertf panics with the formatted message if b is false.
func Assertf(b bool, format string, args ...interface{}) {}
