package eol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Int is an id the api sends as either a JSON number or a numeric string.
type Int int

func (i *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		err := json.Unmarshal(b, &s)
		if err != nil {
			return err
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("not an integer id: %q", b)
	}
	*i = Int(n)
	return nil
}

// IDIndex maps a dimension key to ids. An empty index may arrive as a JSON
// array instead of an object, a non-empty array is keyed by position.
type IDIndex map[string][]Int

func (x *IDIndex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list [][]Int
		err := json.Unmarshal(b, &list)
		if err != nil {
			return err
		}
		out := make(IDIndex, len(list))
		for i, ids := range list {
			out[strconv.Itoa(i)] = ids
		}
		*x = out
		return nil
	}
	var m map[string][]Int
	err := json.Unmarshal(b, &m)
	if err != nil {
		return err
	}
	*x = m
	return nil
}

func ints(in []Int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

// Text is a display value that may arrive as a string, a number or null,
// scores like "-" and 612 share a column.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		err := json.Unmarshal(b, &s)
		if err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string {
	return string(t)
}
