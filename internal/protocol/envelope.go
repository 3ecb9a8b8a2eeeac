// Package protocol defines the envelopes exchanged between an opener and a picker context.
//
// Two variants share one channel:
//
//	generic:  {"action": "mediamanager", "msg": "connected"|"insert-file"|"closed", ...payload}
//	keyed:    {"key": "<model>", ...payload}
//
// Payload fields are flattened into the top-level object. Decode is the single guard at
// the channel boundary; nothing downstream touches raw JSON.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Protocol tags
const (
	// ActionMediaManager is the generic variant's action value.
	ActionMediaManager = "mediamanager"

	// ModelVideoManager is the keyed variant's default message-key tag.
	ModelVideoManager = "videomanager"
)

// Envelope field names on the wire.
const (
	FieldAction = "action"
	FieldKey    = "key"
	FieldMsg    = "msg"
)

// Kind is the message kind of a generic envelope.
type Kind string

// Inbound kinds are sent by the picker, outbound kinds by the opener.
const (
	KindConnected  Kind = "connected"
	KindInsertFile Kind = "insert-file"
	KindClosed     Kind = "closed"

	KindFocus Kind = "focus"
	KindClose Kind = "close"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindConnected, KindInsertFile, KindClosed, KindFocus, KindClose:
		return true
	}
	return false
}

var (
	// ErrMalformed indicates the frame is not valid JSON.
	ErrMalformed = errors.New("malformed envelope")

	// ErrNotObject indicates valid JSON that is not an object.
	ErrNotObject = errors.New("envelope is not a JSON object")

	// ErrNoTag indicates an object carrying neither an action nor a key.
	ErrNoTag = errors.New("envelope has no action or key")
)

// ErrFieldType indicates an envelope field with the wrong JSON type.
type ErrFieldType struct {
	Field string
	Type  string
}

func (e *ErrFieldType) Error() string {
	return fmt.Sprintf("envelope field %q must be a string, got %s", e.Field, e.Type)
}

// ErrDuplicateField indicates a tag field that appears more than once in one envelope.
type ErrDuplicateField struct {
	Field string
}

func (e *ErrDuplicateField) Error() string {
	return fmt.Sprintf("envelope field %q appears more than once", e.Field)
}

// ErrUnknownKind indicates a generic envelope with an unrecognized msg.
type ErrUnknownKind struct {
	Kind string
}

func (e *ErrUnknownKind) Error() string {
	return "unknown_kind:" + e.Kind
}

// Envelope is a decoded message. Action and Key are the protocol tags; at least one
// is set on anything returned by Decode.
type Envelope struct {
	Action  string
	Key     string
	Msg     Kind
	Payload map[string]any
}

// NewMessage builds a generic envelope.
func NewMessage(action string, kind Kind, payload map[string]any) Envelope {
	return Envelope{Action: action, Msg: kind, Payload: payload}
}

// NewKeyed builds a keyed envelope.
func NewKeyed(key string, payload map[string]any) Envelope {
	return Envelope{Key: key, Payload: payload}
}

// Matches reports whether the envelope belongs to the generic protocol tagged action.
func (e Envelope) Matches(action string) bool {
	return action != "" && e.Action == action
}

// MatchesKey reports whether the envelope belongs to the keyed protocol tagged key.
func (e Envelope) MatchesKey(key string) bool {
	return key != "" && e.Key == key
}

// Decode validates and decodes one frame.
func Decode(data []byte) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return Envelope{}, ErrMalformed
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Envelope{}, ErrNotObject
	}

	// Tags come from the top-level members only. A repeated tag is rejected.
	var action, key, msg gjson.Result
	var dup string
	root.ForEach(func(k, v gjson.Result) bool {
		var dst *gjson.Result
		switch k.String() {
		case FieldAction:
			dst = &action
		case FieldKey:
			dst = &key
		case FieldMsg:
			dst = &msg
		default:
			return true
		}
		if dst.Exists() {
			dup = k.String()
			return false
		}
		*dst = v
		return true
	})
	if dup != "" {
		return Envelope{}, &ErrDuplicateField{Field: dup}
	}
	if !action.Exists() && !key.Exists() {
		return Envelope{}, ErrNoTag
	}

	var env Envelope
	for _, f := range []struct {
		name string
		res  gjson.Result
		dst  *string
	}{
		{FieldAction, action, &env.Action},
		{FieldKey, key, &env.Key},
	} {
		if !f.res.Exists() {
			continue
		}
		if f.res.Type != gjson.String {
			return Envelope{}, &ErrFieldType{Field: f.name, Type: f.res.Type.String()}
		}
		*f.dst = f.res.String()
	}

	if msg.Exists() {
		if msg.Type != gjson.String {
			return Envelope{}, &ErrFieldType{Field: FieldMsg, Type: msg.Type.String()}
		}
		env.Msg = Kind(msg.String())
		// Keyed envelopes may carry their own msg field; only generic kinds are checked.
		if env.Action != "" && env.Key == "" && !env.Msg.Valid() {
			return Envelope{}, &ErrUnknownKind{Kind: msg.String()}
		}
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	delete(fields, FieldAction)
	delete(fields, FieldKey)
	delete(fields, FieldMsg)
	env.Payload = fields

	return env, nil
}

// MarshalJSON flattens the payload into the envelope object. Envelope fields win
// over payload fields of the same name.
func (e Envelope) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		m[k] = v
	}
	if e.Action != "" {
		m[FieldAction] = e.Action
	}
	if e.Key != "" {
		m[FieldKey] = e.Key
	}
	if e.Msg != "" {
		m[FieldMsg] = string(e.Msg)
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes through Decode so the same validation applies everywhere.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	env, err := Decode(data)
	if err != nil {
		return err
	}
	*e = env
	return nil
}
