// Package logtail reads tool logs in bounded chunks so callers can poll a
// growing file without ever pulling an unbounded amount of data at once.
package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Chunk size limits. A chunk holds at most MaxChunkLines lines or
// MaxChunkBytes bytes, whichever fills first.
const (
	MaxChunkLines = 10
	MaxChunkBytes = 20000
)

// Chunk is one bounded read of a log file.
type Chunk struct {
	// Lines holds the data read, newline terminators included. When the
	// byte budget cuts a line short, the final entry is the truncated head
	// and the remainder surfaces in the next chunk.
	Lines []string `json:"lines"`

	// Offset is the position the next read should start from.
	Offset int64 `json:"offset"`

	// EOF reports that the file held no data past this chunk at read time.
	// A still-running tool may append more later.
	EOF bool `json:"eof"`
}

// Read returns the next chunk of the file at path, starting from offset.
func Read(path string, offset int64) (*Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logtail: failed to open log: %w", err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("logtail: failed to seek to %d: %w", offset, err)
		}
	}

	r := bufio.NewReader(f)
	chunk := &Chunk{Offset: offset}
	byteCount := 0

	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if byteCount+len(line) > MaxChunkBytes {
				keep := MaxChunkBytes - byteCount
				chunk.Lines = append(chunk.Lines, line[:keep])
				chunk.Offset += int64(keep)
				return chunk, nil
			}
			chunk.Lines = append(chunk.Lines, line)
			byteCount += len(line)
			chunk.Offset += int64(len(line))
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				chunk.EOF = true
				return chunk, nil
			}
			return nil, fmt.Errorf("logtail: failed to read log: %w", err)
		}

		if len(chunk.Lines) >= MaxChunkLines || byteCount >= MaxChunkBytes {
			return chunk, nil
		}
	}
}
