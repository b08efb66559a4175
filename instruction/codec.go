package instruction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MarshalItems encodes a set of items to the JSON representation stored in
// the instruction log.
//
// It returns an error if any of the items is invalid, or if there are no
// items at all.
func MarshalItems(items []Item) ([]byte, error) {
	if len(items) == 0 {
		return nil, errors.New("can not marshal an empty set of items")
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal items: %w", err)
	}

	return data, nil
}

// UnmarshalItems decodes a set of items from their JSON representation, as
// produced by MarshalItems().
func UnmarshalItems(data []byte) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("unable to unmarshal items: %w", err)
	}

	if len(items) == 0 {
		return nil, errors.New("item payload is empty")
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	return items, nil
}
