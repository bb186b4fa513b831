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

import (
	"context"
	"time"
)

// workerRecord is the per-worker liveness and binding state. It is
// owned exclusively by the broker's single event-loop goroutine; nothing
// else may mutate it.
type workerRecord struct {
	wid         string
	service     string
	liveness    int
	lastHBTime  time.Time
	maxLiveness int
}

func newWorkerRecord(wid, service string, maxLiveness int) *workerRecord {
	return &workerRecord{
		wid:         wid,
		service:     service,
		liveness:    maxLiveness,
		lastHBTime:  time.Now(),
		maxLiveness: maxLiveness,
	}
}

// tickIn decrements liveness by one. The broker calls it for every
// worker on each heartbeat sweep; touch restores the maximum whenever a
// frame arrives from the worker.
func (w *workerRecord) tickIn() {
	if w.liveness > 0 {
		w.liveness--
	}
}

// touch resets liveness to the maximum. ANY inbound frame from this
// worker — not only HEARTBEAT — refreshes liveness, so a busy worker
// mid-REQUEST is never mistaken for dead.
func (w *workerRecord) touch(now time.Time) {
	w.liveness = w.maxLiveness
	w.lastHBTime = now
}

// alive reports whether the worker is still considered live.
func (w *workerRecord) alive() bool {
	return w.liveness > 0
}

// sendHeartbeat emits the fully-framed HEARTBEAT form
// [wid, "", "MDPW01", HEARTBEAT], matching REQUEST/REPLY framing rather
// than a bare single-byte command.
func (w *workerRecord) sendHeartbeat(ctx context.Context, t Transport) error {
	return t.SendFrames(ctx, buildWorkerFrame(w.wid, CmdHeartbeat))
}
