package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// CategoryAmount is one entry of an ordered category mapping.
type CategoryAmount struct {
	Key    string
	Amount int64
}

// Categories is a JSON object of category -> amount that remembers the key
// order of the source document. Chart colours are assigned by position, so
// the order has to survive decoding.
type Categories []CategoryAmount

// Get returns the amount stored under key.
func (c Categories) Get(key string) (int64, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Amount, true
		}
	}
	return 0, false
}

// Sum adds up every amount.
func (c Categories) Sum() int64 {
	var total int64
	for _, e := range c {
		total += e.Amount
	}
	return total
}

// UnmarshalJSON decodes an object while keeping key order. A repeated key
// keeps its first position and takes the last value.
func (c *Categories) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("categories: expected object, got %v", tok)
	}

	out := Categories{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("categories: expected key, got %v", tok)
		}

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("categories: value of %q: %w", key, err)
		}
		amount, err := numberToAmount(n)
		if err != nil {
			return fmt.Errorf("categories: value of %q: %w", key, err)
		}

		if i, dup := index[key]; dup {
			out[i].Amount = amount
			continue
		}
		index[key] = len(out)
		out = append(out, CategoryAmount{Key: key, Amount: amount})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// MarshalJSON encodes the categories as an object in stored order.
func (c Categories) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", e.Amount)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// numberToAmount accepts integers and float notation such as 7.243e14.
func numberToAmount(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("amount %s out of range", n)
	}
	return int64(math.Round(f)), nil
}
