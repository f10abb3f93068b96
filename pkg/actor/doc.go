// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package actor runs the actors of a restaurant. Every actor is a goroutine
// that shares nothing with the others but the semaphore set and the shared
// state store.
//
// The following diagram shows the lifecycle of a system.
//
//	,---------.          ,------.          ,-----.        ,--------.
//	|Generator|          |System|          |Actor|        |Watchdog|
//	`----+----'          `--+---'          `--+--'        `---+----'
//	     |   Spawn(id, a)   |                 |               |
//	     | ---------------->|   go Run(ctx)   |               |
//	     |                  | --------------->|               |
//	     |      Seal()      |                 |               |
//	     | ---------------->|                 |               |
//	     |                  |                 |  Done() or    |
//	     |                  |                 |  deadline     |
//	     |                  |<------------------------------- |
//	     |                  |   Terminate()   |               |
//	     |                  |  cancel(ctx)    |               |
//	     |                  | --------------->|               |
//	     |      Wait()      |  Run returns    |               |
//	     |<---------------- |<--------------- |               |
//	,----+----.          ,--+---.          ,--+--.        ,---+----.
//	|Generator|          |System|          |Actor|        |Watchdog|
//	`---------'          `------'          `-----'        `--------'
//
// Terminate is the only way to stop an actor before it finishes, it is not
// graceful and it is used only when the restaurant is believed stalled.
package actor
