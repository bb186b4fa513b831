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

// Package mdpworker is a reference Majordomo worker, used by the demo
// "worker" command and by callers wiring a backend service behind the
// broker. It is not part of the routing core (internal/mdp): a worker
// speaks the protocol as a DEALER-socket client of the broker, it does
// not implement any of the broker's routing logic.
package mdpworker

import (
	"context"
	"fmt"
	"time"

	"github.com/destiny/zmq4/v25"
	"github.com/rs/zerolog"
)

const (
	workerHeader  = "MDPW01"
	cmdReady      = "\x01"
	cmdRequest    = "\x02"
	cmdReply      = "\x03"
	cmdHeartbeat  = "\x04"
	cmdDisconnect = "\x05"
)

// Handler processes one request body and returns the reply body. It is
// called synchronously from Worker.Run's single loop: a worker has at
// most one outstanding request at a time.
type Handler func(request [][]byte) ([][]byte, error)

// Options configures a Worker.
type Options struct {
	Broker            string
	Service           string
	HeartbeatInterval time.Duration
	HeartbeatLiveness int
	ReconnectInterval time.Duration
	Log               zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 1000 * time.Millisecond
	}
	if o.HeartbeatLiveness <= 0 {
		o.HeartbeatLiveness = 5
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = 5 * time.Second
	}
	return o
}

// Worker is a single DEALER-socket Majordomo worker connection.
type Worker struct {
	opts    Options
	handler Handler
	log     zerolog.Logger
	socket  zmq4.Socket
}

// New constructs a Worker. Call Run to connect and begin serving.
func New(service string, broker string, handler Handler, opts Options) *Worker {
	opts.Service = service
	opts.Broker = broker
	opts = opts.withDefaults()
	return &Worker{opts: opts, handler: handler, log: opts.Log}
}

// Run connects to the broker and serves requests until ctx is cancelled,
// reconnecting on socket errors.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn().Err(err).Dur("retry_in", w.opts.ReconnectInterval).Msg("worker disconnected, reconnecting")
			select {
			case <-time.After(w.opts.ReconnectInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) error {
	socket := zmq4.NewDealer(ctx)
	if err := socket.SetOption(zmq4.OptionHWM, 1000); err != nil {
		w.log.Warn().Err(err).Msg("failed to set DEALER high water mark, continuing without it")
	}
	if err := socket.Dial(w.opts.Broker); err != nil {
		return fmt.Errorf("dial broker %s: %w", w.opts.Broker, err)
	}
	defer socket.Close()
	w.socket = socket

	if err := w.sendReady(); err != nil {
		return fmt.Errorf("send READY: %w", err)
	}

	liveness := w.opts.HeartbeatLiveness
	hbTicker := time.NewTicker(w.opts.HeartbeatInterval)
	defer hbTicker.Stop()

	frameCh := make(chan zmq4.Msg, 16)
	errCh := make(chan error, 1)
	go func() {
		for {
			msg, err := socket.Recv()
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
			select {
			case frameCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = w.sendDisconnect()
			return ctx.Err()

		case err := <-errCh:
			return err

		case <-hbTicker.C:
			liveness--
			if liveness <= 0 {
				return fmt.Errorf("broker heartbeat liveness exhausted")
			}
			if err := w.sendHeartbeat(); err != nil {
				return fmt.Errorf("send HEARTBEAT: %w", err)
			}

		case msg := <-frameCh:
			liveness = w.opts.HeartbeatLiveness
			if err := w.handleFrame(msg); err != nil {
				w.log.Warn().Err(err).Msg("failed to handle broker frame")
			}
		}
	}
}

func (w *Worker) handleFrame(msg zmq4.Msg) error {
	frames := msg.Frames
	// DEALER sockets strip their own identity, so a broker frame here is
	// [empty, MDPW01, command, ...], matching buildWorkerFrame's layout
	// with frames[0] already consumed by the socket.
	if len(frames) < 3 {
		return fmt.Errorf("short frame from broker: %d parts", len(frames))
	}
	if string(frames[1]) != workerHeader {
		return fmt.Errorf("unexpected protocol header %q", frames[1])
	}
	command := string(frames[2])
	switch command {
	case cmdRequest:
		return w.handleRequest(frames[3:])
	case cmdHeartbeat:
		return nil
	case cmdDisconnect:
		return fmt.Errorf("broker requested disconnect")
	default:
		return fmt.Errorf("unknown command from broker: %q", command)
	}
}

func (w *Worker) handleRequest(envelope [][]byte) error {
	clientRP, body := splitEnvelope(envelope)
	reply, err := w.handler(body)
	if err != nil {
		return fmt.Errorf("handler error: %w", err)
	}
	return w.sendReply(clientRP, reply)
}

// splitEnvelope mirrors internal/mdp's splitAddress for the client return
// path carried inside a worker REQUEST payload.
func splitEnvelope(frames [][]byte) (returnPath, body [][]byte) {
	for i, f := range frames {
		if len(f) == 0 {
			return frames[:i], frames[i+1:]
		}
	}
	return frames, nil
}

func (w *Worker) sendReady() error {
	return w.send(cmdReady, [][]byte{[]byte(w.opts.Service)})
}

func (w *Worker) sendHeartbeat() error {
	return w.send(cmdHeartbeat, nil)
}

func (w *Worker) sendDisconnect() error {
	return w.send(cmdDisconnect, nil)
}

func (w *Worker) sendReply(clientRP [][]byte, body [][]byte) error {
	payload := append([][]byte{}, clientRP...)
	payload = append(payload, []byte{})
	payload = append(payload, body...)
	return w.send(cmdReply, payload)
}

func (w *Worker) send(command string, payload [][]byte) error {
	frames := [][]byte{[]byte(""), []byte(workerHeader), []byte(command)}
	frames = append(frames, payload...)
	return w.socket.Send(zmq4.NewMsgFrom(frames...))
}
