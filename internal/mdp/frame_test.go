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
	"bytes"
	"testing"
)

func framesEqual(a, b Frames) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestSplitAddress(t *testing.T) {
	t.Run("SingleIdentity", func(t *testing.T) {
		in := Frames{[]byte("client-1"), {}, []byte("MDPC01"), []byte("echo")}
		rp, rest := splitAddress(in)
		if !framesEqual(rp, Frames{[]byte("client-1")}) {
			t.Errorf("unexpected return path: %v", rp)
		}
		if !framesEqual(rest, Frames{[]byte("MDPC01"), []byte("echo")}) {
			t.Errorf("unexpected remainder: %v", rest)
		}
	})

	t.Run("MultiFrameIdentity", func(t *testing.T) {
		in := Frames{[]byte("router-hop"), []byte("client-1"), {}, []byte("body")}
		rp, rest := splitAddress(in)
		if len(rp) != 2 {
			t.Errorf("expected 2-frame return path, got %d", len(rp))
		}
		if !framesEqual(rest, Frames{[]byte("body")}) {
			t.Errorf("unexpected remainder: %v", rest)
		}
	})

	t.Run("NoDelimiter", func(t *testing.T) {
		in := Frames{[]byte("a"), []byte("b")}
		rp, rest := splitAddress(in)
		if !framesEqual(rp, in) {
			t.Errorf("expected whole input as return path, got %v", rp)
		}
		if len(rest) != 0 {
			t.Errorf("expected empty remainder, got %v", rest)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		rp, rest := splitAddress(Frames{})
		if len(rp) != 0 || len(rest) != 0 {
			t.Errorf("expected empty return path and remainder, got %v / %v", rp, rest)
		}
	})
}

func TestBuildWorkerFrame(t *testing.T) {
	got := buildWorkerFrame("w1", CmdHeartbeat)
	want := Frames{[]byte("w1"), {}, []byte(WorkerHeader), []byte(CmdHeartbeat)}
	if !framesEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildWorkerFrameWithPayload(t *testing.T) {
	payload := Frames{[]byte("client-1"), {}, []byte("BODY")}
	got := buildWorkerFrame("w1", CmdRequest, payload)
	want := Frames{[]byte("w1"), {}, []byte(WorkerHeader), []byte(CmdRequest), []byte("client-1"), {}, []byte("BODY")}
	if !framesEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildClientFrame(t *testing.T) {
	rp := Frames{[]byte("client-1")}
	body := Frames{[]byte("REPLY"), []byte("payload")}
	got := buildClientFrame(rp, "echo", body)
	want := Frames{[]byte("client-1"), {}, []byte(ClientHeader), []byte("echo"), []byte("REPLY"), []byte("payload")}
	if !framesEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProtocolPrefixMatching(t *testing.T) {
	if !hasClientPrefix([]byte("MDPC01")) {
		t.Error("MDPC01 should match client prefix")
	}
	if !hasClientPrefix([]byte("MDPC02")) {
		t.Error("a minor version bump should still match client prefix")
	}
	if !hasWorkerPrefix([]byte("MDPW01")) {
		t.Error("MDPW01 should match worker prefix")
	}
	if hasClientPrefix([]byte("MDPW01")) {
		t.Error("worker header should not match client prefix")
	}
	if hasWorkerPrefix([]byte("garbage")) {
		t.Error("unrelated header should not match worker prefix")
	}
}
