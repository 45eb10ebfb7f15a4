package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/testgenius/testgenius/internal/logging"
)

// Decoder reassembles discrete event records out of a raw SSE byte stream.
// Chunk boundaries falling mid-record are a transport artifact the decoder
// absorbs: a partial trailing record is buffered until the rest arrives.
// A record that fails to parse is skipped; decoding continues with the next
// one so a single malformed record cannot corrupt the session.
type Decoder struct {
	scanner   *bufio.Scanner
	dataLines []string
	done      bool
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// Case payloads for a whole category can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next decoded event. It returns io.EOF after the done
// record has been emitted or the underlying stream ends; both resolve the
// stream exactly once and no record is ever emitted twice.
func (d *Decoder) Next() (*Event, error) {
	if d.done {
		return nil, io.EOF
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// A blank line terminates the pending record.
		if line == "" {
			if len(d.dataLines) == 0 {
				continue
			}
			data := strings.Join(d.dataLines, "\n")
			d.dataLines = nil

			event, err := UnmarshalEvent([]byte(data))
			if err != nil {
				logging.Warn("skipping malformed stream record", "error", err)
				continue
			}
			if event.Type == EventTypeDone {
				d.done = true
			}
			return event, nil
		}

		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			d.dataLines = append(d.dataLines, strings.TrimPrefix(rest, " "))
		}
		// Other SSE fields (event:, id:, retry:) are ignored.
	}

	d.done = true
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading stream: %w", err)
	}
	return nil, io.EOF
}

// All drains the stream and returns every decoded event. Used by callers
// that do not need incremental delivery.
func (d *Decoder) All() ([]*Event, error) {
	var events []*Event
	for {
		event, err := d.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}
