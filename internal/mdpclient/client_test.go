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

package mdpclient

import "testing"

func TestParseReplyHappyPath(t *testing.T) {
	frames := [][]byte{{}, []byte(clientHeader), []byte("echo"), []byte("RESULT")}
	body, err := parseReply("echo", frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 1 || string(body[0]) != "RESULT" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestParseReplyWrongService(t *testing.T) {
	frames := [][]byte{{}, []byte(clientHeader), []byte("other"), []byte("RESULT")}
	if _, err := parseReply("echo", frames); err == nil {
		t.Fatal("expected an error for mismatched service name")
	}
}

func TestParseReplyBadHeader(t *testing.T) {
	frames := [][]byte{{}, []byte("MDPW01"), []byte("echo")}
	if _, err := parseReply("echo", frames); err == nil {
		t.Fatal("expected an error for a non-client protocol header")
	}
}

func TestParseReplyTooShort(t *testing.T) {
	if _, err := parseReply("echo", [][]byte{{}}); err == nil {
		t.Fatal("expected an error for a too-short reply")
	}
}
