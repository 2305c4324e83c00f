package symptoms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is one symptom name and its slot in the feature vector.
type Entry struct {
	Name     string
	Position int
}

// Index maps symptom names to feature positions.
type Index struct {
	names  []string
	lookup map[string]int
}

// NewIndex validates entries and builds the lower-cased lookup. Positions
// must cover 0..len(entries)-1 exactly once, and no two names may collide
// after normalisation.
func NewIndex(entries []Entry) (*Index, error) {
	idx := &Index{
		names:  make([]string, 0, len(entries)),
		lookup: make(map[string]int, len(entries)),
	}
	seen := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.Position < 0 || e.Position >= len(entries) {
			return nil, fmt.Errorf("%w: %q has position %d outside [0, %d)", ErrInvalidIndex, e.Name, e.Position, len(entries))
		}
		if other, ok := seen[e.Position]; ok {
			return nil, fmt.Errorf("%w: %q and %q share position %d", ErrInvalidIndex, other, e.Name, e.Position)
		}
		key := Normalize(e.Name)
		if _, ok := idx.lookup[key]; ok {
			return nil, fmt.Errorf("%w: duplicate symptom %q", ErrInvalidIndex, e.Name)
		}
		seen[e.Position] = e.Name
		idx.lookup[key] = e.Position
		idx.names = append(idx.names, e.Name)
	}
	return idx, nil
}

// Normalize trims surrounding whitespace and lower-cases s.
func Normalize(s string) string {
	// Casers carry state and are not safe to share between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Len is the feature vector length.
func (idx *Index) Len() int { return len(idx.names) }

// Names returns the known symptom names in artifact order.
func (idx *Index) Names() []string {
	return append([]string(nil), idx.names...)
}

// Position looks up a symptom name case-insensitively.
func (idx *Index) Position(name string) (int, bool) {
	pos, ok := idx.lookup[Normalize(name)]
	return pos, ok
}

// Encode splits a comma-separated symptom list and sets the slot of every
// token. Any unknown token rejects the whole input; the empty string is a
// single empty token and fails the same way.
func (idx *Index) Encode(input string) (FeatureVector, error) {
	vector := make(FeatureVector, idx.Len())
	for _, raw := range strings.Split(input, ",") {
		token := Normalize(raw)
		pos, ok := idx.lookup[token]
		if !ok {
			return nil, &UnrecognizedSymptomError{Symptom: token}
		}
		vector[pos] = 1
	}
	return vector, nil
}

// UnmarshalJSON decodes a {"name": position, ...} object, keeping the
// object's key order for Names.
func (idx *Index) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidIndex)
	}
	var entries []Entry
	keys := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		// a repeated key is a broken export, not an override
		if keys[name] {
			return fmt.Errorf("%w: key %q appears twice", ErrInvalidIndex, name)
		}
		keys[name] = true
		var pos int
		if err := dec.Decode(&pos); err != nil {
			return fmt.Errorf("%w: position of %q: %v", ErrInvalidIndex, name, err)
		}
		entries = append(entries, Entry{Name: name, Position: pos})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	built, err := NewIndex(entries)
	if err != nil {
		return err
	}
	*idx = *built
	return nil
}

func (idx *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range idx.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", idx.lookup[Normalize(name)])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
