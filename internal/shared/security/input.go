package security

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxInputBytes bounds content read from files or stdin for a single tool invocation.
const MaxInputBytes int64 = 5 << 20

// ErrInputTooLarge is returned when an input source exceeds MaxInputBytes.
var ErrInputTooLarge = errors.New("input exceeds size limit")

// ReadLimited reads at most limit bytes from r and fails if more are available.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxInputBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, limit)
	}
	return data, nil
}

// ReadInputFile reads a user-supplied input file, refusing directories and oversized files.
func ReadInputFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("input path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path) // #nosec G304 -- path is an explicit operator argument.
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLimited(f, MaxInputBytes)
}
