package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Prototype-1/UserDirectory/internal/model"
)

// The has-one embeds come back as an object from Postgres and as an array
// from the REST API (the foreign keys are not unique), so they are held raw
// and resolved by decodeOne.
type customerRow struct {
	model.Customer
	Contact json.RawMessage `json:"contact"`
	Avatar  json.RawMessage `json:"Avatar"`
}

type freelancerRow struct {
	model.Freelancer
	Contact json.RawMessage `json:"contact"`
	Avatar  json.RawMessage `json:"Avatar"`
}

func decodeCustomer(doc []byte) (model.Customer, error) {
	var row customerRow
	if err := json.Unmarshal(doc, &row); err != nil {
		return model.Customer{}, fmt.Errorf("decode customer: %w", err)
	}
	return row.record()
}

func decodeFreelancer(doc []byte) (model.Freelancer, error) {
	var row freelancerRow
	if err := json.Unmarshal(doc, &row); err != nil {
		return model.Freelancer{}, fmt.Errorf("decode freelancer: %w", err)
	}
	return row.record()
}

func (r customerRow) record() (model.Customer, error) {
	c := r.Customer
	var err error
	if c.Contact, err = decodeOne[model.Contact](r.Contact); err != nil {
		return c, fmt.Errorf("decode contact of customer %s: %w", c.ID, err)
	}
	if c.Avatar, err = decodeOne[model.Avatar](r.Avatar); err != nil {
		return c, fmt.Errorf("decode avatar of customer %s: %w", c.ID, err)
	}
	return c, nil
}

func (r freelancerRow) record() (model.Freelancer, error) {
	f := r.Freelancer
	var err error
	if f.Contact, err = decodeOne[model.Contact](r.Contact); err != nil {
		return f, fmt.Errorf("decode contact of freelancer %s: %w", f.ID, err)
	}
	if f.Avatar, err = decodeOne[model.Avatar](r.Avatar); err != nil {
		return f, fmt.Errorf("decode avatar of freelancer %s: %w", f.ID, err)
	}
	return f, nil
}

func decodeOne[T any](raw json.RawMessage) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		return &items[0], nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
