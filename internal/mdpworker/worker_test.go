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

package mdpworker

import "testing"

func TestSplitEnvelopeSingleFrameReturnPath(t *testing.T) {
	envelope := [][]byte{[]byte("client-1"), {}, []byte("BODY")}
	rp, body := splitEnvelope(envelope)

	if len(rp) != 1 || string(rp[0]) != "client-1" {
		t.Fatalf("unexpected return path: %v", rp)
	}
	if len(body) != 1 || string(body[0]) != "BODY" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSplitEnvelopeNoDelimiter(t *testing.T) {
	envelope := [][]byte{[]byte("a"), []byte("b")}
	rp, body := splitEnvelope(envelope)

	if len(rp) != 2 {
		t.Fatalf("expected whole input treated as return path, got %v", rp)
	}
	if body != nil {
		t.Fatalf("expected nil body, got %v", body)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()

	if opts.HeartbeatInterval <= 0 {
		t.Error("expected a positive default heartbeat interval")
	}
	if opts.HeartbeatLiveness <= 0 {
		t.Error("expected a positive default heartbeat liveness")
	}
	if opts.ReconnectInterval <= 0 {
		t.Error("expected a positive default reconnect interval")
	}
}
