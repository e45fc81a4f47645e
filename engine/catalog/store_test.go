package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawSnapshot = `[
  {"id": "a1", "make": "chevy", "model": "Tahoe", "price": "$54,000", "year": "2022", "mileage": 12000},
  {"_id": "a2", "brand": "Kia", "model": "Soul", "price": 14000, "year": 2019, "seller": {"name": "Metro Kia"}},
  {"id": "a3", "brand": "Kia", "model": "Rio", "year": 2018},
  {"id": "a1", "brand": "Ford", "model": "Focus", "price": 9000, "year": 2015},
  {"id": "a4", "brand": "Ford", "model": "Model T", "price": 900, "year": 1890},
  {"id": "a5", "brand": "Mazda", "model": "3", "price": -1, "year": 2020}
]`

func TestLoadRawDropsMalformedAndDuplicates(t *testing.T) {
	var raws []domain.RawVehicle
	require.NoError(t, json.Unmarshal([]byte(rawSnapshot), &raws))

	var logs bytes.Buffer
	store, rep := LoadRaw(raws, testNow, slog.New(slog.NewJSONHandler(&logs, nil)))

	assert.Equal(t, 2, rep.Loaded)
	assert.Equal(t, 4, rep.DroppedCount())
	assert.Equal(t, []string{"a1", "a2"}, ids(store.Records()))

	a1, ok := store.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "Chevrolet", a1.Brand)
	assert.Equal(t, 54000.0, a1.Price)

	a2, _ := store.Get("a2")
	assert.Equal(t, "Metro Kia", a2.SellerName)

	reasons := map[int]error{}
	for _, d := range rep.Dropped {
		reasons[d.Index] = d.Err
		assert.NotEmpty(t, d.Reason)
	}
	assert.ErrorIs(t, reasons[2], domain.ErrMissingField)
	assert.ErrorIs(t, reasons[3], domain.ErrDuplicateID)
	assert.ErrorIs(t, reasons[4], domain.ErrYearOutOfRange)
	assert.ErrorIs(t, reasons[5], domain.ErrNegativeValue)

	assert.Contains(t, logs.String(), `"msg":"catalog: dropped listing"`)
	assert.Contains(t, logs.String(), `"field":"price"`)
}

func TestStoresHaveDistinctIDs(t *testing.T) {
	a := EmptyStore()
	b, _ := NewStore(nil, testNow, quietLogger())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Zero(t, b.Len())
	assert.Equal(t, testNow, b.LoadedAt())
}

func TestNewStoreValidates(t *testing.T) {
	s, rep := NewStore([]domain.Vehicle{
		listing("ok", "Kia", "Rio", 1, 2020),
		listing("", "Kia", "Rio", 1, 2020),
		listing("bad", "Kia", "Rio", 1, 2020, func(v *domain.Vehicle) { v.Mileage = domain.Float64(-4) }),
	}, testNow, quietLogger())

	assert.Equal(t, 1, s.Len())
	require.Len(t, rep.Dropped, 2)
	var ve *domain.ValidationError
	require.True(t, errors.As(rep.Dropped[1].Err, &ve))
	assert.Equal(t, "mileage", ve.Field)
}
