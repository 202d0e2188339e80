// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrNotObject is returned when the payload is valid JSON but not an object
var ErrNotObject = errors.New("payload is not a JSON object")

// Field is a single key/value pair of a Report. Value is a string, json.Number,
// bool, nil or, for nested objects and arrays, their compact JSON text as a
// json.RawMessage.
type Field struct {
	Key   string
	Value interface{}
}

// Report is the structured view of a payload. Fields are in document order.
type Report struct {
	Fields []Field
}

// Get returns the value for the given key
func (r *Report) Get(key string) (interface{}, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Taken returns the value of the "taken" key. ok is false if the key is absent
// or not a boolean.
func (r *Report) Taken() (taken bool, ok bool) {
	v, found := r.Get("taken")
	if !found {
		return false, false
	}
	taken, ok = v.(bool)
	return
}

// DecodeText decodes the payload as UTF-8 text. Invalid sequences are
// replaced with the Unicode replacement character.
func DecodeText(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	return strings.ToValidUTF8(string(payload), string(utf8.RuneError))
}

// ParseReport parses text as a JSON object. A key that appears more than once
// keeps its first position and its last value.
func ParseReport(text string) (*Report, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '{' {
		if err := expectEOF(dec); err != nil {
			return nil, err
		}
		return nil, ErrNotObject
	}

	report := new(Report)
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, isString := tok.(string)
		if !isString {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		value, err := scalar(raw)
		if err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			report.Fields[i].Value = value
			continue
		}
		index[key] = len(report.Fields)
		report.Fields = append(report.Fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return report, nil
}

func scalar(raw json.RawMessage) (interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return nil, err
		}
		return json.RawMessage(compact.Bytes()), nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return errors.New("unexpected data after JSON value")
		}
		return err
	}
	return nil
}
