package tagcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := [][]string{
		{},
		{"go"},
		{"go", "分布式", "搜索"},
		{"dup", "dup", "dup"},
		{"b", "a", "c"}, // 顺序必须保持
		{"with,comma", `with"quote`, "with]bracket"},
	}

	for _, tags := range cases {
		encoded := Encode(tags)
		decoded := Decode(encoded)
		assert.Equal(t, tags, decoded, "round trip for %v", tags)
	}
}

func TestEncode_EmptyIsCanonical(t *testing.T) {
	assert.Equal(t, "[]", Encode(nil))
	assert.Equal(t, "[]", Encode([]string{}))
}

func TestDecode_MalformedNeverFails(t *testing.T) {
	var reported []string
	SetDiagnostic(func(raw string, err error) {
		reported = append(reported, raw)
		assert.Error(t, err)
	})
	defer SetDiagnostic(nil)

	malformed := []string{
		"not json",
		"{\"a\":1}",
		"[1,2,3]",
		"[\"unterminated",
		"\x00\xff",
	}
	for _, input := range malformed {
		got := Decode(input)
		assert.NotNil(t, got)
		assert.Empty(t, got, "malformed input %q must decode to empty list", input)
	}
	assert.Len(t, reported, len(malformed))
}

func TestDecode_EmptyAndNull(t *testing.T) {
	assert.Empty(t, Decode(""))
	assert.Empty(t, Decode("[]"))
	assert.Empty(t, Decode("null"))
	// 空输入不算畸形，不应触发诊断。
	called := false
	SetDiagnostic(func(string, error) { called = true })
	defer SetDiagnostic(nil)
	Decode("")
	Decode("[]")
	assert.False(t, called)
}
