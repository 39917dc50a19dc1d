package composer

import (
	"bytes"
	"encoding/json"
	"io"
	"slices"

	"go.trai.ch/zerr"
)

type member struct {
	key   string
	value json.RawMessage
}

// object is a JSON object that remembers the order of its keys.
// Values are kept as raw bytes so untouched entries round-trip unchanged.
type object struct {
	members []member
}

func parseObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, zerr.New("expected a JSON object")
	}

	obj := &object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, zerr.New("expected an object key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		obj.set(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, zerr.New("unexpected data after the top-level object")
	}
	return obj, nil
}

func (o *object) get(key string) (json.RawMessage, bool) {
	for _, m := range o.members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// set replaces the value of key in place, or appends key when it is new.
func (o *object) set(key string, value json.RawMessage) {
	for i := range o.members {
		if o.members[i].key == key {
			o.members[i].value = value
			return
		}
	}
	o.members = append(o.members, member{key: key, value: value})
}

func (o *object) delete(key string) bool {
	n := len(o.members)
	o.members = slices.DeleteFunc(o.members, func(m member) bool { return m.key == key })
	return len(o.members) != n
}

// child returns the object stored under key. A missing key yields an empty object.
func (o *object) child(key string) (*object, error) {
	raw, ok := o.get(key)
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return &object{}, nil
	}
	child, err := parseObject(raw)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid object"), "key", key)
	}
	return child, nil
}

// putChild stores child under key. An empty child is not added when key is absent.
func (o *object) putChild(key string, child *object) error {
	if _, ok := o.get(key); !ok && len(child.members) == 0 {
		return nil
	}
	raw, err := child.MarshalJSON()
	if err != nil {
		return err
	}
	o.set(key, raw)
	return nil
}

// MarshalJSON renders the members in order without escaping <, > and &.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encode(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode marshals v the way composer writes JSON: no HTML escaping.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// render formats the object with four-space indentation and a trailing newline.
func render(o *object) ([]byte, error) {
	compact, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// autoloadTargets decodes a PSR-4 value, which composer allows as a string or a list of strings.
func autoloadTargets(raw json.RawMessage) ([]string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, true
	}
	return nil, false
}
