// Package command implements the wire codec for inbound commands (§6):
// a single line-delimited JSON object per command, decoded into the
// enum/target/options triple the Component tree dispatches. It replaces
// the teacher's JSON-RPC 2.0 envelope (method/params/id) with the
// spec's flatter CommandEnvelope, keeping the same "one line in, one
// line out" shape.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"icc.tech/hil-supervisor/internal/component"
)

// Envelope is the wire shape of one inbound command line (§3
// "CommandEnvelope": `{operation:int, target:string, options:object|null}`).
type Envelope struct {
	Operation int                    `json:"operation"`
	Target    string                 `json:"target"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

// Response is the wire shape of one reply line. It marshals to a bare
// JSON array (§3: `["ACK"]`, `["INVALID JSON"]`, `["INVALID CMD"]`), not
// an object, so Detail — when present — rides as a second array element
// rather than a named field.
type Response struct {
	Status string
	Detail string
}

func (r Response) MarshalJSON() ([]byte, error) {
	if r.Detail == "" {
		return json.Marshal([1]string{r.Status})
	}
	return json.Marshal([2]string{r.Status, r.Detail})
}

// UnmarshalJSON is the inverse of MarshalJSON, used by hilctl to parse a
// reply line back into a Response.
func (r *Response) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) > 0 {
		r.Status = arr[0]
	}
	if len(arr) > 1 {
		r.Detail = arr[1]
	}
	return nil
}

const (
	StatusACK         = "ACK"
	StatusInvalidJSON = "INVALID JSON"
	StatusInvalidCmd  = "INVALID CMD"
)

// Decode parses one line of input into an Envelope. A syntactically
// invalid line (malformed JSON) is reported distinctly from a
// syntactically valid but semantically unrecognized command (§6: the
// ingress distinguishes "INVALID JSON" from "INVALID CMD").
func Decode(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid json: %w", err)
	}
	return env, nil
}

// ToCommand converts a decoded Envelope into the core's component.Command,
// rejecting enum values the ingress never dispatches (unknown operations,
// and the reserved WAIT_ON_VAR/FORCE_LOAD/VERSION_CHECK values, §9).
func (e Envelope) ToCommand() (component.Command, error) {
	op := component.Operation(e.Operation)
	if !component.KnownOperations[op] || !op.Dispatchable() {
		return component.Command{}, fmt.Errorf("invalid cmd: %d", e.Operation)
	}
	if e.Target == "" {
		return component.Command{}, fmt.Errorf("invalid cmd: missing target")
	}
	return component.Command{Operation: op, Target: e.Target, Options: e.Options}, nil
}

// DecodeOptions decodes an Envelope's freeform Options map into a typed
// struct (e.g. a PWR_SUPPLY_CMD's verb/value pair), using the same
// generic decoding approach the teacher's config layer uses for
// driver-specific connection parameters.
func DecodeOptions(options map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(options)
}
