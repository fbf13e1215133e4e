package channel

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// maxFrameSize bounds a single message body.
const maxFrameSize = 16 * 1024 * 1024

// Conn frames messages with Content-Length headers, the same framing the
// Language Server Protocol uses:
//
//	Content-Length: 42\r\n
//	\r\n
//	{"id":1,...}
//
// Writes are serialized; reads must come from a single goroutine.
type Conn struct {
	reader *bufio.Reader

	mu     sync.Mutex
	writer io.Writer
}

// NewConn creates a framed connection.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
	}
}

// WriteMessage writes one framed message.
func (c *Conn) WriteMessage(data []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := io.WriteString(c.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := c.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message. It returns io.EOF when the stream
// ends cleanly between messages.
func (c *Conn) ReadMessage() ([]byte, error) {
	contentLength := -1
	sawHeader := false
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && (sawHeader || line != "") {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if !sawHeader {
				// Tolerate blank lines between frames.
				continue
			}
			break
		}
		sawHeader = true

		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad Content-Length %q", ErrMalformed, value)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, ErrMissingLength
	}
	if contentLength > maxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrMalformed, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
