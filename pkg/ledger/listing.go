package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Listing is a sequence of entries that serializes as a JSON object of
// name → hours, keeping listing order on both encode and decode.
type Listing []Entry

func (l Listing) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(e.Hours))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	entries := Listing{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}
		var hours int
		if err := dec.Decode(&hours); err != nil {
			return fmt.Errorf("hours for %q: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Hours: hours})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = entries
	return nil
}
