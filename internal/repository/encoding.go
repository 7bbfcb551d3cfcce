package repository

import (
	"bytes"
	"encoding/json"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
)

// EncodeRecord marshals r to JSON without its key attribute.
// Persistent backends keep the key in the row or storage key instead.
func EncodeRecord(r domain.Record, key string) ([]byte, error) {
	body := make(domain.Record, len(r))
	for k, v := range r {
		if k != key {
			body[k] = v
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal record")
	}
	return data, nil
}

// DecodeRecord unmarshals data and puts id back under key.
// Numbers decode as json.Number so integers keep their precision.
func DecodeRecord(data []byte, key string, id int64) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	r := domain.Record{}
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal record")
	}
	if r == nil {
		r = domain.Record{}
	}
	r[key] = id
	return r, nil
}
