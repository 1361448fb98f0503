// Package wheel provides interpreter-tag selection and wheel filename
// handling for the packaging pipeline. It is pure string manipulation with no
// knowledge of the build toolchain itself.
package wheel

import (
	"regexp"
	"strings"
)

// DefaultVersions is the interpreter tag list built when no override is
// supplied, matching the interpreters shipped in the manylinux2014 build
// image.
const DefaultVersions = "cp37-cp37m,cp38-cp38,cp39-cp39,cp310-cp310"

// tagPattern matches a CPython interpreter-abi tag pair such as cp38-cp38 or
// cp37-cp37m.
var tagPattern = regexp.MustCompile(`^[a-z]{2}[0-9]{2,3}-[a-z0-9_]+$`)

// Select returns the interpreter tag list to build for. A non-empty override
// is returned verbatim, without normalisation, so that externally supplied
// lists reach the build tool byte for byte. When override is empty the
// default list is used.
func Select(override string) string {
	if override != "" {
		return override
	}
	return DefaultVersions
}

// SplitTags splits a comma-separated tag list into individual tags, trimming
// surrounding whitespace and dropping empty elements.
func SplitTags(list string) []string {
	parts := strings.Split(list, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ValidTag reports whether tag looks like an interpreter-abi tag pair.
// Selection never rejects a tag, since the override is a verbatim contract,
// but callers may use this to warn about likely typos.
func ValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}
