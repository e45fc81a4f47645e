package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
)

// ErrUnknownShape is returned when a response body holds no listing array
// in any of the accepted envelopes.
var ErrUnknownShape = errors.New("source: unrecognised response shape")

// Batch is one decoded response page.
type Batch struct {
	Vehicles []domain.RawVehicle
	// Malformed counts array elements that were not listing objects.
	Malformed int
	// TotalPages is the server's page count, or 0 when it sent none.
	TotalPages int
	// HasMore is the server's continuation hint, if it sent one.
	HasMore *bool
}

// envelope covers every object shape the listing endpoints use.
type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Vehicles   json.RawMessage    `json:"vehicles"`
	TotalPages *domain.FlexNumber `json:"totalPages"`
	HasMore    *bool              `json:"hasMore"`
	Pagination *struct {
		TotalPages *domain.FlexNumber `json:"totalPages"`
		HasMore    *bool              `json:"hasMore"`
	} `json:"pagination"`
}

// DecodeVehicles decodes a listing response. Accepted shapes are a bare
// array, {"data": [...]}, {"vehicles": [...]} and {"data": {"vehicles":
// [...]}}. Elements are decoded one at a time so a single bad element
// does not lose the page.
func DecodeVehicles(body []byte) (Batch, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Batch{}, fmt.Errorf("%w: empty body", ErrUnknownShape)
	}
	switch body[0] {
	case '[':
		return decodeArray(body)
	case '{':
		return decodeEnvelope(body, 0)
	}
	return Batch{}, fmt.Errorf("%w: body starts with %q", ErrUnknownShape, body[0])
}

func decodeEnvelope(body []byte, depth int) (Batch, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Batch{}, fmt.Errorf("source: decode: %w", err)
	}

	var (
		b   Batch
		err error
	)
	switch {
	case isArray(env.Data):
		b, err = decodeArray(env.Data)
	case isArray(env.Vehicles):
		b, err = decodeArray(env.Vehicles)
	case isObject(env.Data) && depth == 0:
		b, err = decodeEnvelope(env.Data, depth+1)
	default:
		return Batch{}, ErrUnknownShape
	}
	if err != nil {
		return Batch{}, err
	}

	if b.TotalPages == 0 {
		b.TotalPages = pages(env.TotalPages)
	}
	if b.HasMore == nil {
		b.HasMore = env.HasMore
	}
	if p := env.Pagination; p != nil {
		if b.TotalPages == 0 {
			b.TotalPages = pages(p.TotalPages)
		}
		if b.HasMore == nil {
			b.HasMore = p.HasMore
		}
	}
	return b, nil
}

func decodeArray(body []byte) (Batch, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return Batch{}, fmt.Errorf("source: decode: %w", err)
	}
	b := Batch{Vehicles: make([]domain.RawVehicle, 0, len(elems))}
	for _, e := range elems {
		if !isObject(e) {
			b.Malformed++
			continue
		}
		var v domain.RawVehicle
		if err := json.Unmarshal(e, &v); err != nil {
			b.Malformed++
			continue
		}
		b.Vehicles = append(b.Vehicles, v)
	}
	return b, nil
}

func pages(n *domain.FlexNumber) int {
	if n == nil || !n.Valid || n.Value < 1 {
		return 0
	}
	return int(n.Value)
}

func isArray(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}

func isObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
