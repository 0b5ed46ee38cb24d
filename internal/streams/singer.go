// Package streams implements the Singer-style output surface: stream
// catalog, schema discovery, bookmark state, and the per-stream sync
// dispatch that turns data API responses into SCHEMA/RECORD/STATE message
// lines.
package streams

import (
	"encoding/json"
	"io"
	"sync"
)

// Singer message types.
const (
	messageSchema = "SCHEMA"
	messageRecord = "RECORD"
	messageState  = "STATE"
)

// Emitter writes Singer messages as JSON lines. It is safe for concurrent
// use; each message is written atomically.
type Emitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEmitter creates an emitter writing to w, normally stdout. Log output
// must go elsewhere; the message stream is the tap's data plane.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{enc: json.NewEncoder(w)}
}

// schemaMessage frames a SCHEMA line.
type schemaMessage struct {
	Type          string          `json:"type"`
	Stream        string          `json:"stream"`
	Schema        json.RawMessage `json:"schema"`
	KeyProperties []string        `json:"key_properties"`
}

// recordMessage frames a RECORD line.
type recordMessage struct {
	Type   string                 `json:"type"`
	Stream string                 `json:"stream"`
	Record map[string]interface{} `json:"record"`
}

// stateMessage frames a STATE line.
type stateMessage struct {
	Type  string `json:"type"`
	Value *State `json:"value"`
}

// Schema emits a SCHEMA message for a stream.
func (e *Emitter) Schema(stream string, schema json.RawMessage, keyProperties []string) error {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return e.write(schemaMessage{
		Type:          messageSchema,
		Stream:        stream,
		Schema:        schema,
		KeyProperties: keyProperties,
	})
}

// Record emits a RECORD message for a stream.
func (e *Emitter) Record(stream string, record map[string]interface{}) error {
	return e.write(recordMessage{
		Type:   messageRecord,
		Stream: stream,
		Record: record,
	})
}

// State emits a STATE message.
func (e *Emitter) State(state *State) error {
	return e.write(stateMessage{
		Type:  messageState,
		Value: state,
	})
}

func (e *Emitter) write(msg interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(msg)
}
