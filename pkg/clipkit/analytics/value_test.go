package analytics_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
)

func TestValue_Accessors(t *testing.T) {
	s := analytics.String("qr")
	str, ok := s.AsString()
	assert.True(t, ok)
	assert.Equal(t, "qr", str)
	_, ok = s.AsNumber()
	assert.False(t, ok)

	n := analytics.Int(7)
	f, ok := n.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)
	assert.Equal(t, analytics.KindNumber, n.Kind())

	b := analytics.Bool(true)
	v, ok := b.AsBool()
	assert.True(t, ok)
	assert.True(t, v)
	assert.Equal(t, "bool", b.Kind().String())

	assert.Equal(t, analytics.KindString, analytics.Value{}.Kind())
}

func TestValue_StringFormatting(t *testing.T) {
	assert.Equal(t, "qr", analytics.String("qr").String())
	assert.Equal(t, "10.5", analytics.Number(10.5).String())
	assert.Equal(t, "3", analytics.Int(3).String())
	assert.Equal(t, "false", analytics.Bool(false).String())
}

func TestProperties_JSON(t *testing.T) {
	props := analytics.Properties{
		"ref":   analytics.String("qr"),
		"table": analytics.Int(7),
		"vip":   analytics.Bool(true),
		"total": analytics.Number(12.5),
	}

	data, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ref":"qr","table":7,"vip":true,"total":12.5}`, string(data))

	var back analytics.Properties
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, props, back)
}

func TestValue_UnmarshalRejectsObjects(t *testing.T) {
	var v analytics.Value
	err := json.Unmarshal([]byte(`{"nested":true}`), &v)
	assert.ErrorIs(t, err, analytics.ErrUnsupportedValue)
}

func TestValue_MarshalNonFinite(t *testing.T) {
	_, err := json.Marshal(analytics.Number(math.Inf(1)))
	assert.Error(t, err)
}

func TestFromAny(t *testing.T) {
	props, err := analytics.FromAny(map[string]any{
		"s":   "x",
		"i":   42,
		"u8":  uint8(3),
		"f32": float32(1.5),
		"b":   true,
		"v":   analytics.String("already"),
	})
	require.NoError(t, err)

	assert.Equal(t, analytics.String("x"), props["s"])
	assert.Equal(t, analytics.Int(42), props["i"])
	assert.Equal(t, analytics.Number(3), props["u8"])
	assert.Equal(t, analytics.Number(1.5), props["f32"])
	assert.Equal(t, analytics.Bool(true), props["b"])
	assert.Equal(t, analytics.String("already"), props["v"])
}

func TestFromAny_Unsupported(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "slice", value: []string{"a"}},
		{name: "map", value: map[string]any{"a": 1}},
		{name: "nil", value: nil},
		{name: "struct", value: struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analytics.FromAny(map[string]any{"k": tt.value})
			assert.ErrorIs(t, err, analytics.ErrUnsupportedValue)
		})
	}
}

func TestProperties_Clone(t *testing.T) {
	var nilProps analytics.Properties
	assert.Nil(t, nilProps.Clone())

	orig := analytics.Properties{"a": analytics.Int(1)}
	clone := orig.Clone()
	clone["b"] = analytics.Int(2)
	assert.Len(t, orig, 1)
}
