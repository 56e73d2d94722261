package coerce

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabedit/internal/model"
)

func TestEmptyIsNullForEveryType(t *testing.T) {
	for _, ct := range model.ColumnTypes {
		v, err := Coerce("", ct)
		require.NoError(t, err, ct)
		assert.Nil(t, v, ct)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		typ model.ColumnType
		v   any
	}{
		{model.TypeInt, int64(0)},
		{model.TypeInt, int64(-42)},
		{model.TypeInt, int64(math.MaxInt64)},
		{model.TypeFloat, 3.25},
		{model.TypeFloat, 0.1},
		{model.TypeFloat, -1e300},
		{model.TypeFloat, math.Inf(1)},
		{model.TypeBool, true},
		{model.TypeBool, false},
		{model.TypeTimestamp, time.Date(2024, 2, 29, 13, 4, 5, 123456789, time.UTC)},
		{model.TypeTimestamp, time.Date(1999, 12, 31, 23, 59, 59, 0, time.FixedZone("", -5*3600))},
		{model.TypeText, "hello world"},
		{model.TypeText, "  padded  "},
	}
	for _, tc := range cases {
		got, err := Coerce(Format(tc.v), tc.typ)
		require.NoError(t, err, "%v", tc.v)
		assert.True(t, model.ValuesEqual(tc.v, got), "round trip %v -> %v", tc.v, got)
	}
}

func TestBoolTokens(t *testing.T) {
	for _, tok := range []string{"1", "TRUE", "t", "Yes", "y", "ON"} {
		v, err := Coerce(tok, model.TypeBool)
		require.NoError(t, err)
		assert.Equal(t, true, v, tok)
	}
	for _, tok := range []string{"0", "False", "F", "no", "N", "off"} {
		v, err := Coerce(tok, model.TypeBool)
		require.NoError(t, err)
		assert.Equal(t, false, v, tok)
	}
	_, err := Coerce("maybe", model.TypeBool)
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, model.TypeBool, ce.Type)
}

func TestMalformedNumbers(t *testing.T) {
	_, err := Coerce("12x", model.TypeInt)
	assert.Error(t, err)
	_, err = Coerce("1.5", model.TypeInt)
	assert.Error(t, err)
	_, err = Coerce("abc", model.TypeFloat)
	assert.Error(t, err)

	v, err := Coerce(" 7 ", model.TypeInt)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestTimestampLayouts(t *testing.T) {
	v, err := Coerce("2024-01-02", model.TypeTimestamp)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), v)

	_, err = Coerce("yesterday", model.TypeTimestamp)
	assert.Error(t, err)
}

func TestTextIsIdentity(t *testing.T) {
	v, err := Coerce(" keep ", model.TypeText)
	require.NoError(t, err)
	assert.Equal(t, " keep ", v)
}

func TestConvert(t *testing.T) {
	v, err := Convert(int64(3), model.TypeFloat)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = Convert(int64(1), model.TypeBool)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Convert(2.5, model.TypeText)
	require.NoError(t, err)
	assert.Equal(t, "2.5", v)

	_, err = Convert("abc", model.TypeInt)
	assert.Error(t, err)
}
