package channel

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/dshills/cadence/internal/syllable"
)

// MessageType identifies a protocol message.
type MessageType string

// Message types.
const (
	TypeProcessLine MessageType = "process-line"
	TypeLineResult  MessageType = "line-result"
	TypeError       MessageType = "error"
)

// Request asks the background unit to analyze one line.
type Request struct {
	ID         int64       `json:"id"`
	Type       MessageType `json:"type"`
	Text       string      `json:"text"`
	LineNumber int         `json:"lineNumber"`
}

// Response carries either a LineResult or an error message.
type Response struct {
	ID         int64                `json:"id"`
	Type       MessageType          `json:"type"`
	LineNumber int                  `json:"lineNumber"`
	Data       *syllable.LineResult `json:"data,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// NewRequest builds a process-line request.
func NewRequest(id int64, lineNumber int, text string) Request {
	return Request{ID: id, Type: TypeProcessLine, Text: text, LineNumber: lineNumber}
}

// ResultResponse builds a success response.
func ResultResponse(id int64, result syllable.LineResult) Response {
	return Response{ID: id, Type: TypeLineResult, LineNumber: result.LineNumber, Data: &result}
}

// ErrorResponse builds a failure response.
func ErrorResponse(id int64, lineNumber int, msg string) Response {
	return Response{ID: id, Type: TypeError, LineNumber: lineNumber, Error: msg}
}

// Handler turns a request into a response.
type Handler func(Request) Response

// AnalyzerHandler returns the standard handler backed by an Analyzer.
func AnalyzerHandler(a *syllable.Analyzer) Handler {
	return func(req Request) Response {
		if req.Type != TypeProcessLine {
			return ErrorResponse(req.ID, req.LineNumber, fmt.Sprintf("%v: %q", ErrUnknownType, req.Type))
		}
		return ResultResponse(req.ID, a.Analyze(req.LineNumber, req.Text))
	}
}

// EncodeRequest serializes a request.
func EncodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest parses a request.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Type != TypeProcessLine {
		return req, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	return req, nil
}

// EncodeResponse serializes a response.
func EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse parses a response. The type field is checked before the
// body is decoded so unknown messages are rejected without allocating a
// LineResult.
func DecodeResponse(data []byte) (Response, error) {
	if !gjson.ValidBytes(data) {
		return Response{}, ErrMalformed
	}
	switch MessageType(gjson.GetBytes(data, "type").String()) {
	case TypeLineResult, TypeError:
	default:
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownType, gjson.GetBytes(data, "type").Raw)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if resp.Type == TypeLineResult && resp.Data == nil {
		return Response{}, fmt.Errorf("%w: line-result without data", ErrMalformed)
	}
	return resp, nil
}

// peekID extracts the id of a message that failed to decode, so an error
// response can still be correlated.
func peekID(data []byte) (int64, int, bool) {
	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return 0, 0, false
	}
	return id.Int(), int(gjson.GetBytes(data, "lineNumber").Int()), true
}
