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

// pendingRequest is a queued client request, remembered in full so
// re-dispatch is a plain re-entry into onClient.
type pendingRequest struct {
	protocol   string
	returnPath Frames
	// msg is the full message as received from the client: msg[0] is the
	// service name, msg[1:] is the request body.
	msg Frames
}

// serviceEntry is the per-service availability queue and pending backlog.
// Owned exclusively by the broker's single event-loop goroutine.
type serviceEntry struct {
	name      string
	available []string // FIFO of WIDs, duplicate-free
	pending   []*pendingRequest
}

func newServiceEntry(name string) *serviceEntry {
	return &serviceEntry{name: name}
}

// put appends wid to the available queue if not already present. A WID
// appears in `available` for at most one service, at most once, so
// duplicate puts are idempotent.
func (s *serviceEntry) put(wid string) {
	if s.contains(wid) {
		return
	}
	s.available = append(s.available, wid)
}

// get pops the oldest available WID, or "" if none is available.
func (s *serviceEntry) get() string {
	if len(s.available) == 0 {
		return ""
	}
	wid := s.available[0]
	s.available = s.available[1:]
	return wid
}

// remove deletes wid from the available queue if present. Idempotent.
func (s *serviceEntry) remove(wid string) {
	for i, w := range s.available {
		if w == wid {
			s.available = append(s.available[:i], s.available[i+1:]...)
			return
		}
	}
}

func (s *serviceEntry) contains(wid string) bool {
	for _, w := range s.available {
		if w == wid {
			return true
		}
	}
	return false
}

func (s *serviceEntry) len() int {
	return len(s.available)
}

func (s *serviceEntry) enqueuePending(req *pendingRequest) {
	s.pending = append(s.pending, req)
}

// dequeuePending pops the oldest pending request, or nil if none queued.
func (s *serviceEntry) dequeuePending() *pendingRequest {
	if len(s.pending) == 0 {
		return nil
	}
	req := s.pending[0]
	s.pending = s.pending[1:]
	return req
}
