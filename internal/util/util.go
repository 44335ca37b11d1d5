package util

import (
	"encoding/json"
	"time"

	"fanmonitor-go/errcode"
)

// ResetTimer stops, drains and re-arms t.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// DecodeJSON decodes a bus payload into dst. Config payloads arrive as
// json.RawMessage; tests often publish typed structs or maps instead.
func DecodeJSON[T any](src any, dst *T) error {
	var err error
	switch v := src.(type) {
	case nil:
		return errcode.InvalidParams
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	case json.RawMessage:
		err = json.Unmarshal(v, dst)
	case []byte:
		err = json.Unmarshal(v, dst)
	case string:
		err = json.Unmarshal([]byte(v), dst)
	default:
		b, merr := json.Marshal(v)
		if merr != nil {
			return &errcode.E{C: errcode.InvalidParams, Op: "decode", Err: merr}
		}
		err = json.Unmarshal(b, dst)
	}
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "decode", Err: err}
	}
	return nil
}
