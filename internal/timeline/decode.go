package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// Decode reads a JSON render request. Malformed input is reported as an
// invalid timeline configuration.
func Decode(r io.Reader) (*VideoRequest, error) {
	var req VideoRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, failure.New(failure.ErrInvalidTimeline, failure.StageValidate, "request", err)
	}
	return &req, nil
}

// Seconds is a time value in seconds. JSON accepts a number or a timestamp
// string (SS.mmm, MM:SS, HH:MM:SS).
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := util.ParseTimestamp(str)
		if err != nil {
			return err
		}
		*s = Seconds(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("time value must be a number or timestamp string: %w", err)
	}
	*s = Seconds(v)
	return nil
}

// Effect is one named effect with its parameter
type Effect struct {
	Name  string
	Value float64
}

// Effects is an ordered effect list, encoded as a JSON object whose key
// order is the application order. Null values are dropped on decode.
type Effects []Effect

func (e *Effects) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("effects must be an object")
	}

	var out Effects
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)

		var value *float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("effect %q: %w", name, err)
		}
		if value == nil {
			continue
		}
		out = append(out, Effect{Name: name, Value: *value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*e = out
	return nil
}

func (e Effects) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, eff := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(eff.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(eff.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Timeline is the ordered entry list. Each JSON element is dispatched on
// its "type" field; a missing type means "image".
type Timeline []Entry

func (tl *Timeline) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(Timeline, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("timeline[%d]: %w", i, err)
		}

		switch head.Type {
		case "", KindImage:
			var entry ImageEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("timeline[%d]: %w", i, err)
			}
			out = append(out, entry)
		case KindSplit:
			var entry SplitEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("timeline[%d]: %w", i, err)
			}
			out = append(out, entry)
		default:
			return fmt.Errorf("timeline[%d]: unknown entry type %q", i, head.Type)
		}
	}

	*tl = out
	return nil
}

func (e ImageEntry) MarshalJSON() ([]byte, error) {
	type plain ImageEntry
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{KindImage, plain(e)})
}

func (e SplitEntry) MarshalJSON() ([]byte, error) {
	type plain SplitEntry
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{KindSplit, plain(e)})
}

func (t *Transition) UnmarshalJSON(data []byte) error {
	type plain Transition
	p := plain(DefaultTransition())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Transition(p)
	return nil
}

func (o *TextOverlay) UnmarshalJSON(data []byte) error {
	type plain TextOverlay
	p := plain{
		Position: PositionCenter,
		FontSize: DefaultFontSize,
		Color:    DefaultColor,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = TextOverlay(p)
	return nil
}
