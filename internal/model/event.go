package model

import "encoding/json"

// Event is a committed pool event with its typed payload.
type Event struct {
	Seq       uint64      `json:"seq"`
	Pool      string      `json:"pool"`
	Name      string      `json:"name"`
	Timestamp int64       `json:"timestamp"`
	Actor     string      `json:"actor"`
	Decoded   interface{} `json:"decoded"`
}

// EventRecord is the JSON form of Event used when reading logs back.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Pool      string          `json:"pool"`
	Name      string          `json:"name"`
	Timestamp int64           `json:"timestamp"`
	Actor     string          `json:"actor"`
	Decoded   json.RawMessage `json:"decoded"`
}

// Record converts an Event into its serialized record form.
func (e Event) Record() (EventRecord, error) {
	payload, err := json.Marshal(e.Decoded)
	if err != nil {
		return EventRecord{}, err
	}
	return EventRecord{
		Seq:       e.Seq,
		Pool:      e.Pool,
		Name:      e.Name,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Decoded:   payload,
	}, nil
}
