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

// Package zmq implements mdp.Transport over a single ZeroMQ ROUTER socket,
// the production wiring for the broker's duplex.
package zmq

import (
	"context"
	"fmt"
	"time"

	"github.com/destiny/zmq4/v25"
	"github.com/rs/zerolog"

	"majordomo/internal/mdp"
)

// RouterTransport wraps a single ROUTER socket. A ROUTER socket already
// prepends the sender's identity frame on receive and expects it as the
// first frame on send, which is exactly the shape mdp.Frames assumes
// throughout the routing core — no translation layer is needed beyond
// the zmq4.Msg <-> [][]byte conversion.
type RouterTransport struct {
	socket zmq4.Socket
	log    zerolog.Logger
}

// Options configures the ROUTER socket.
type Options struct {
	// Bind is the endpoint both clients and workers connect to, e.g.
	// "tcp://*:5555". The Majordomo pattern multiplexes client and
	// worker traffic over one socket, distinguished by protocol header,
	// not by separate bind addresses.
	Bind string
	// HWM is the ZMQ high-water-mark option applied to the socket.
	// Zero leaves the library default in place.
	HWM int
	Log zerolog.Logger
}

// New creates and binds a ROUTER-socket transport.
func New(ctx context.Context, opts Options) (*RouterTransport, error) {
	socket := zmq4.NewRouter(ctx)

	if err := socket.SetLinger(0); err != nil {
		opts.Log.Warn().Err(err).Msg("failed to set zero linger, pending sends may block shutdown")
	}

	if opts.HWM > 0 {
		if err := socket.SetOption(zmq4.OptionHWM, opts.HWM); err != nil {
			opts.Log.Warn().Err(err).Msg("failed to set ROUTER high water mark, continuing without it")
		}
	}

	if err := socket.Listen(opts.Bind); err != nil {
		return nil, fmt.Errorf("bind ROUTER socket %s: %w", opts.Bind, err)
	}

	return &RouterTransport{socket: socket, log: opts.Log}, nil
}

// RecvFrames implements mdp.Transport.
func (t *RouterTransport) RecvFrames(ctx context.Context) (mdp.Frames, error) {
	msg, err := t.socket.Recv()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTemporary(err) {
			// A ROUTER socket surfaces transient EAGAIN-style errors
			// under load; the core's read loop treats any error as
			// worth logging and retrying rather than fatal.
			time.Sleep(10 * time.Millisecond)
			return nil, errTemporary
		}
		return nil, fmt.Errorf("recv from ROUTER socket: %w", err)
	}
	return mdp.Frames(msg.Frames), nil
}

// SendFrames implements mdp.Transport. frames[0] must be the destination
// identity the ROUTER socket most recently saw that peer present.
func (t *RouterTransport) SendFrames(ctx context.Context, frames mdp.Frames) error {
	if len(frames) == 0 {
		return fmt.Errorf("send to ROUTER socket: empty frame list")
	}
	msg := zmq4.NewMsgFrom([][]byte(frames)...)
	if err := t.socket.Send(msg); err != nil {
		return fmt.Errorf("send to ROUTER socket: %w", err)
	}
	return nil
}

// Close releases the socket.
func (t *RouterTransport) Close() error {
	return t.socket.Close()
}

var errTemporary = fmt.Errorf("temporary ROUTER recv error, retrying")

// isTemporary mirrors the broker's own tolerant treatment of transient
// recv errors (EAGAIN and the like) rather than tearing down the loop.
func isTemporary(err error) bool {
	type temporary interface {
		Temporary() bool
	}
	te, ok := err.(temporary)
	return ok && te.Temporary()
}

var _ mdp.Transport = (*RouterTransport)(nil)
