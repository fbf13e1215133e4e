package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Serve runs the worker side of the protocol: it reads framed requests from
// r, handles them in order and writes framed responses to w. It returns nil
// when r reaches EOF. Cancellation is observed between messages.
//
// A request that cannot be decoded but carries an id gets an error
// response; anything else undecodable is skipped.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h Handler) error {
	conn := NewConn(r, w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		var resp Response
		req, err := DecodeRequest(data)
		if err != nil {
			id, line, ok := peekID(data)
			if !ok {
				continue
			}
			resp = ErrorResponse(id, line, err.Error())
		} else {
			resp = h(req)
		}

		out, err := EncodeResponse(resp)
		if err != nil {
			return fmt.Errorf("encode response %d: %w", resp.ID, err)
		}
		if err := conn.WriteMessage(out); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}
