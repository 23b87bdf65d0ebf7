package transport

import (
	"bufio"
	"io"
	"strings"
)

// SSEDecoder decodes Server-Sent Events and yields concatenated "data:" payloads
type SSEDecoder struct {
	r   *bufio.Reader
	buf []string
}

// NewSSEDecoder creates a decoder reading from r
func NewSSEDecoder(r io.Reader) *SSEDecoder {
	return &SSEDecoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// NextData returns the next event's data lines joined by "\n".
// It returns io.EOF when the underlying reader ends.
func (d *SSEDecoder) NextData() (string, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(d.buf) > 0 {
				return d.flush(), nil
			}
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		}

		// comments (":keep-alive") and event/id/retry fields carry nothing the parsers need
		if strings.HasPrefix(line, "data:") {
			d.buf = append(d.buf, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}

		if err == io.EOF {
			if len(d.buf) > 0 {
				return d.flush(), nil
			}
			return "", io.EOF
		}
	}
}

func (d *SSEDecoder) flush() string {
	out := strings.Join(d.buf, "\n")
	d.buf = d.buf[:0]
	return out
}
