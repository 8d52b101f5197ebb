package ripper

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// messageTail incrementally reads the side-channel message file makemkvcon
// appends to during a rip. Reads resume from the last consumed offset, so the
// rip loop can poll cheaply instead of holding a blocking read open.
type messageTail struct {
	path   string
	offset int64
}

func newMessageTail(path string) *messageTail {
	return &messageTail{path: path}
}

// Drain returns the complete lines appended since the previous call. A
// missing file is not an error (the tool may not have created it yet), and a
// trailing partial line stays unconsumed until its newline lands.
func (t *messageTail) Drain() ([]string, error) {
	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		return nil, nil
	}
	t.offset += int64(cut + 1)

	raw := strings.Split(string(data[:cut]), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	return lines, nil
}
