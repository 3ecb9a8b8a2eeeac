package querystring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScalars(t *testing.T) {
	v := Decode("?opener_origin=http://localhost:8000&width=1000&name=a1")

	assert.Equal(t, []string{"opener_origin", "width", "name"}, v.Keys())
	assert.Equal(t, "http://localhost:8000", v.String("opener_origin"))

	width, ok := v.Get("width")
	require.True(t, ok)
	n, isInt := width.Scalar().Int()
	assert.True(t, isInt, "digit-only values decode as integers")
	assert.Equal(t, 1000, n)

	name, _ := v.Get("name")
	assert.False(t, name.Scalar().IsInt())
	assert.Equal(t, "a1", name.Scalar().String())
}

func TestDecodeCoercion(t *testing.T) {
	tests := []struct {
		raw     string
		wantInt bool
	}{
		{"0", true},
		{"42", true},
		{"007", true},
		{"-1", false},
		{"1.5", false},
		{"12a", false},
		{"", false},
		{"99999999999999999999999999", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := Decode("?k=" + tt.raw)
			val, ok := v.Get("k")
			require.True(t, ok)
			assert.Equal(t, tt.wantInt, val.Scalar().IsInt())
			if !tt.wantInt {
				assert.Equal(t, tt.raw, val.Scalar().String())
			}
		})
	}
}

func TestDecodeRepeatedKeys(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Scalar
	}{
		{"twice", "?id=1&id=2", []Scalar{Int(1), Int(2)}},
		{"three times mixed", "?id=a&x=0&id=2&id=c", []Scalar{Str("a"), Int(2), Str("c")}},
		{"five times", "id=5&id=4&id=3&id=2&id=1", []Scalar{Int(5), Int(4), Int(3), Int(2), Int(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := Decode(tt.query).Get("id")
			require.True(t, ok)
			assert.True(t, val.IsSeq())
			assert.Equal(t, len(tt.want), val.Len())
			assert.Equal(t, tt.want, val.Items())
		})
	}
}

func TestDecodeMalformedSegments(t *testing.T) {
	v := Decode("?flag&a=1&&b=x=y")

	flag, ok := v.Get("flag")
	require.True(t, ok)
	assert.True(t, flag.Scalar().IsUndefined(), "segment without '=' is undefined")

	empty, ok := v.Get("")
	require.True(t, ok, "empty segment yields an empty key")
	assert.True(t, empty.Scalar().IsUndefined())

	assert.Equal(t, "x=y", v.String("b"), "only the first '=' splits")
}

func TestDecodeEmpty(t *testing.T) {
	v := Decode("")
	assert.Equal(t, 1, v.Len())
	assert.True(t, v.Has(""))
}

func TestDecodeDoesNotUnescape(t *testing.T) {
	v := Decode("?q=a%20b&r=c+d")
	assert.Equal(t, "a%20b", v.String("q"))
	assert.Equal(t, "c+d", v.String("r"))
}

func TestEncode(t *testing.T) {
	p := New()
	p.SetString("site", "http://example.com/")
	p.SetString("key", "s3cret")
	p.Set("ids", Seq(Int(1), Str("two"), Int(3)))
	p.Set("flag", Single(Undefined()))

	assert.Equal(t, "?site=http://example.com/&key=s3cret&ids=1&ids=two&ids=3&flag", Encode(p))
	assert.Equal(t, "?", Encode(New()))
}

func TestRoundTripScalars(t *testing.T) {
	tests := []*Values{
		func() *Values {
			p := New()
			p.SetString("opener_origin", "http://localhost:8000")
			return p
		}(),
		func() *Values {
			p := New()
			p.SetString("site", "https://cms.example.org/")
			p.SetString("key", "abc")
			p.SetString("model", "videomanager")
			p.Set("width", Single(Int(1000)))
			return p
		}(),
	}

	for _, p := range tests {
		t.Run(Encode(p), func(t *testing.T) {
			assert.True(t, p.Equal(Decode(Encode(p))))
		})
	}
}

func TestRoundTripIsNotExactForDigitStrings(t *testing.T) {
	p := New()
	p.SetString("zip", "02139")

	got := Decode(Encode(p))
	assert.False(t, p.Equal(got), "digit-only strings come back as integers")

	zip, _ := got.Get("zip")
	n, ok := zip.Scalar().Int()
	assert.True(t, ok)
	assert.Equal(t, 2139, n)
}

func TestRepeatedKeysRoundTrip(t *testing.T) {
	p := Decode("?tag=a&tag=b&tag=c")
	assert.Equal(t, "?tag=a&tag=b&tag=c", Encode(p))
}

func TestAppendTo(t *testing.T) {
	p := New()
	p.SetString("opener_origin", "http://localhost:8000")

	assert.Equal(t, "https://media.example.com/?opener_origin=http://localhost:8000",
		AppendTo("https://media.example.com/", p))
	assert.Equal(t, "https://media.example.com/?lang=en&opener_origin=http://localhost:8000",
		AppendTo("https://media.example.com/?lang=en", p))
	assert.Equal(t, "https://media.example.com/", AppendTo("https://media.example.com/", New()))
}
