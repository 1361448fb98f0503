package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     Info
	}{
		{
			name:     "manylinux wheel",
			filename: "ray-2.0.0.dev0-cp38-cp38-manylinux2014_x86_64.whl",
			want: Info{
				Distribution: "ray",
				Version:      "2.0.0.dev0",
				PythonTag:    "cp38",
				ABITag:       "cp38",
				PlatformTag:  "manylinux2014_x86_64",
			},
		},
		{
			name:     "wheel with build tag",
			filename: "ray-1.13.0-1-cp37-cp37m-manylinux2014_x86_64.whl",
			want: Info{
				Distribution: "ray",
				Version:      "1.13.0",
				BuildTag:     "1",
				PythonTag:    "cp37",
				ABITag:       "cp37m",
				PlatformTag:  "manylinux2014_x86_64",
			},
		},
		{
			name:     "pure python wheel",
			filename: "ray_cpp-2.0.0-py3-none-any.whl",
			want: Info{
				Distribution: "ray_cpp",
				Version:      "2.0.0",
				PythonTag:    "py3",
				ABITag:       "none",
				PlatformTag:  "any",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	invalid := []string{
		"ray-2.0.0.tar.gz",
		"ray.whl",
		"ray-2.0.0-cp38.whl",
		"ray-2.0.0-1-extra-cp38-cp38-manylinux2014_x86_64.whl",
		"ray--cp38-cp38-manylinux2014_x86_64.whl",
	}

	for _, filename := range invalid {
		_, err := Parse(filename)
		assert.Error(t, err, "expected %q to be rejected", filename)
	}
}

func TestMatchesPlatform(t *testing.T) {
	tests := []struct {
		filename string
		suffix   string
		want     bool
	}{
		{"ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl", "x86_64.whl", true},
		{"ray-2.0.0-cp39-cp39-manylinux2014_x86_64.whl", "x86_64.whl", true},
		{"ray-2.0.0-cp38-cp38-manylinux2014_aarch64.whl", "x86_64.whl", false},
		{"ray-2.0.0.tar.gz", "x86_64.whl", false},
		{"report.json", "x86_64.whl", false},
		{"ray-2.0.0-cp38-cp38-manylinux2014_x86_64.whl", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesPlatform(tt.filename, tt.suffix), "%s vs %s", tt.filename, tt.suffix)
	}
}
