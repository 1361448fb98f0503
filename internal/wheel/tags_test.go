package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectDefault(t *testing.T) {
	got := Select("")
	assert.Equal(t, "cp37-cp37m,cp38-cp38,cp39-cp39,cp310-cp310", got)
}

func TestSelectOverrideVerbatim(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{name: "single tag", override: "cp310-cp310"},
		{name: "multiple tags", override: "cp38-cp38,cp39-cp39"},
		{name: "whitespace preserved", override: "cp38-cp38, cp39-cp39"},
		{name: "unknown tag passed through", override: "cp311-cp311"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.override, Select(tt.override))
		})
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []string
	}{
		{name: "default list", list: DefaultVersions, want: []string{"cp37-cp37m", "cp38-cp38", "cp39-cp39", "cp310-cp310"}},
		{name: "surrounding whitespace", list: " cp38-cp38 , cp39-cp39 ", want: []string{"cp38-cp38", "cp39-cp39"}},
		{name: "empty elements dropped", list: "cp38-cp38,,cp39-cp39,", want: []string{"cp38-cp38", "cp39-cp39"}},
		{name: "empty list", list: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTags(tt.list))
		})
	}
}

func TestValidTag(t *testing.T) {
	valid := []string{"cp37-cp37m", "cp38-cp38", "cp310-cp310", "pp39-pypy39_pp73"}
	for _, tag := range valid {
		assert.True(t, ValidTag(tag), "expected %q to be valid", tag)
	}

	invalid := []string{"", "cp38", "cp38-", "-cp38", "CP38-CP38", "3.8"}
	for _, tag := range invalid {
		assert.False(t, ValidTag(tag), "expected %q to be invalid", tag)
	}
}
