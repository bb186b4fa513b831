// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mdp implements the routing core of a Majordomo Protocol (RFC 7)
// broker: per-service worker availability queues, the pending-request
// backlog, the worker liveness state machine, MDP frame handling, and the
// dispatch loop that ties them together. The package never touches a
// socket directly; it is driven through the Transport interface so it can
// run against ZeroMQ in production and an in-memory transport in tests.
package mdp

import "time"

// Protocol header frames. Comparisons use a prefix rule (see hasPrefix)
// so a minor version bump in the header does not break dispatch.
const (
	ClientHeader = "MDPC01"
	WorkerHeader = "MDPW01"

	clientPrefix = "MDPC"
	workerPrefix = "MDPW"
)

// Worker commands, RFC 7 §9.
const (
	CmdReady      = "\x01"
	CmdRequest    = "\x02"
	CmdReply      = "\x03"
	CmdHeartbeat  = "\x04"
	CmdDisconnect = "\x05"
)

// Default timing, RFC 7 §5.
const (
	DefaultHeartbeatInterval = 1000 * time.Millisecond
	DefaultHeartbeatLiveness = 5
)

func hasClientPrefix(header []byte) bool {
	return len(header) >= len(clientPrefix) && string(header[:len(clientPrefix)]) == clientPrefix
}

func hasWorkerPrefix(header []byte) bool {
	return len(header) >= len(workerPrefix) && string(header[:len(workerPrefix)]) == workerPrefix
}
