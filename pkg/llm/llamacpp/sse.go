package llamacpp

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// errStreamDone stops readSSE at the [DONE] sentinel without reporting failure.
var errStreamDone = errors.New("stream done")

// readSSE calls onData once per event with the event's joined data lines.
func readSSE(r io.Reader, onData func(data string) error) error {
	br := bufio.NewReader(r)
	var dataLines []string

	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		data := strings.Join(dataLines, "\n")
		dataLines = nil
		return onData(data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if ferr := flush(); ferr != nil {
				if errors.Is(ferr, errStreamDone) {
					return nil
				}
				return ferr
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}

		if eof {
			if ferr := flush(); ferr != nil && !errors.Is(ferr, errStreamDone) {
				return ferr
			}
			return nil
		}
	}
}
