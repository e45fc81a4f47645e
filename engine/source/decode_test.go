package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVehiclesShapes(t *testing.T) {
	const listing = `{"id":"v1","brand":"Toyota","model":"Corolla","year":2019,"price":"14,500"}`
	for name, body := range map[string]string{
		"bare array":     `[` + listing + `]`,
		"data array":     `{"data":[` + listing + `]}`,
		"vehicles array": `{"vehicles":[` + listing + `],"success":true}`,
		"nested data":    `{"data":{"vehicles":[` + listing + `]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			b, err := DecodeVehicles([]byte(body))
			require.NoError(t, err)
			require.Len(t, b.Vehicles, 1)
			v := b.Vehicles[0]
			assert.Equal(t, "v1", string(v.ID))
			assert.Equal(t, 14500.0, v.Price.Value)
			assert.Zero(t, b.Malformed)
		})
	}
}

func TestDecodeVehiclesPaginationHints(t *testing.T) {
	b, err := DecodeVehicles([]byte(`{"data":[],"totalPages":4}`))
	require.NoError(t, err)
	assert.Equal(t, 4, b.TotalPages)
	assert.Nil(t, b.HasMore)

	b, err = DecodeVehicles([]byte(`{"vehicles":[],"pagination":{"totalPages":"2","hasMore":true}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, b.TotalPages)
	require.NotNil(t, b.HasMore)
	assert.True(t, *b.HasMore)

	b, err = DecodeVehicles([]byte(`{"data":{"vehicles":[],"hasMore":false}}`))
	require.NoError(t, err)
	require.NotNil(t, b.HasMore)
	assert.False(t, *b.HasMore)
}

func TestDecodeVehiclesSkipsMalformedElements(t *testing.T) {
	b, err := DecodeVehicles([]byte(`[{"id":"a","brand":"Kia"}, 42, "x", null, {"id":"b","features":[1]}, {"id":"c"}]`))
	require.NoError(t, err)
	assert.Len(t, b.Vehicles, 2)
	assert.Equal(t, 4, b.Malformed)
}

func TestDecodeVehiclesUnknownShape(t *testing.T) {
	for _, body := range []string{``, `"hello"`, `{"items":[]}`, `{"data":{"data":{"vehicles":[]}}}`} {
		_, err := DecodeVehicles([]byte(body))
		assert.ErrorIs(t, err, ErrUnknownShape, body)
	}
	_, err := DecodeVehicles([]byte(`[{`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownShape)
}
