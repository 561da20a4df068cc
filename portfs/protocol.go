// Copyright 2026 The ZenFS Authors.
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

package portfs

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zenfs-go/core/zerrors"
)

const wireMagic = "Z"
const wireVersion = "1"

// request is the envelope a client sends to invoke a remote FileSystem
// method.
type request struct {
	ZenFS  bool              `json:"_zenfs"`
	ID     string            `json:"id"`
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
	Stack  string            `json:"stack,omitempty"`
}

// rpcError is the wire shape of a failed RPC response.
type rpcError struct {
	Code    uint32 `json:"code"`
	Errno   int    `json:"errno"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// response is the envelope a server sends back.
type response struct {
	ZenFS bool            `json:"_zenfs"`
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value,omitempty"`
	Error *rpcError       `json:"error,omitempty"`
}

// byteArg is a []byte argument or result, wire-encoded as a "$"-prefixed
// base64 string.
type byteArg []byte

func (b byteArg) MarshalJSON() ([]byte, error) {
	return json.Marshal("$" + base64.StdEncoding.EncodeToString(b))
}

func (b *byteArg) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, "$")
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// encodeFrame wraps a request/response envelope in the "Z"+version+JSON
// wire format.
func encodeFrame(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(wireMagic+wireVersion), body...), nil
}

// decodeFrame strips and validates the magic/version prefix, returning
// the JSON body. A version mismatch fails EPROTONOSUPPORT.
func decodeFrame(frame []byte) ([]byte, error) {
	prefix := wireMagic + wireVersion
	if len(frame) < len(wireMagic) || string(frame[:len(wireMagic)]) != wireMagic {
		return nil, zerrors.New(zerrors.EPROTONOSUPPORT, "portfs", "missing ZenFS frame magic")
	}
	if !strings.HasPrefix(string(frame), prefix) {
		return nil, zerrors.New(zerrors.EPROTONOSUPPORT, "portfs", fmt.Sprintf("unsupported wire version in frame %q", string(frame[:minInt(len(frame), 4)])))
	}
	return frame[len(prefix):], nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
