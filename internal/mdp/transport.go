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

package mdp

import "context"

// Transport is the framed-message duplex the broker treats as an
// external collaborator: the broker never binds, connects, or polls a
// socket itself, it only exchanges frame lists through this interface.
// A ZeroMQ ROUTER-backed implementation lives in internal/transport/zmq;
// an in-memory implementation used by tests lives in inmem_transport.go.
type Transport interface {
	// RecvFrames blocks until a frame list is available or ctx is done.
	// The first frame is the sender's identity, applied by the router
	// socket (or the in-memory stand-in).
	RecvFrames(ctx context.Context) (Frames, error)

	// SendFrames enqueues a frame list for delivery; it must not block
	// on network I/O, since the broker's event loop calls it inline.
	SendFrames(ctx context.Context, frames Frames) error

	// Close releases the transport. Implementations should use a zero
	// linger so pending outbound frames are discarded rather than
	// blocking shutdown on a slow peer.
	Close() error
}

// Scheduler is the "call F every N ms" facility the broker's heartbeat
// sweep needs. time.Ticker satisfies the shape this package needs
// directly; Scheduler exists only so tests can substitute a manually
// driven fake.
type Scheduler interface {
	// Tick returns a channel that receives a value every period.
	Tick() <-chan struct{}
	Stop()
}
