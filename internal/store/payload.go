package store

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/baseliner/internal/issue"
)

// Current schema version - increment when the payload format changes.
const payloadSchemaVersion uint16 = 1

// payload is the msgpack blob stored per cached result.
type payload struct {
	Schema uint16
	Issues []issue.Issue
}

func encodePayload(issues []issue.Issue) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(&payload{Schema: payloadSchemaVersion, Issues: issues}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodePayload returns ok=false for blobs written by another schema version
// or that fail to decode; callers treat both as a cache miss.
func decodePayload(blob []byte) ([]issue.Issue, bool) {
	var p payload
	dec := msgpack.NewDecoder(bytes.NewReader(blob))
	if err := dec.Decode(&p); err != nil {
		return nil, false
	}
	if p.Schema != payloadSchemaVersion {
		return nil, false
	}
	return p.Issues, true
}
