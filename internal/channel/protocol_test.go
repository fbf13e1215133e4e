package channel

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/cadence/internal/syllable"
)

func TestRequest_RoundTrip(t *testing.T) {
	req := NewRequest(42, 3, "hello world")
	data, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"process-line"`) ||
		!strings.Contains(string(data), `"lineNumber":3`) {
		t.Errorf("EncodeRequest() = %s", data)
	}

	got, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if got != req {
		t.Errorf("DecodeRequest() = %+v, want %+v", got, req)
	}
}

func TestDecodeRequest_Errors(t *testing.T) {
	if _, err := DecodeRequest([]byte(`{"id":1,"type":"shutdown"}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type error = %v, want ErrUnknownType", err)
	}
	if _, err := DecodeRequest([]byte(`{"id":`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("truncated error = %v, want ErrMalformed", err)
	}
}

func TestResponse_RoundTrip(t *testing.T) {
	result := syllable.NewAnalyzer(nil).Analyze(5, "hello there")
	resp := ResultResponse(9, result)

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}
	got, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if got.ID != 9 || got.Type != TypeLineResult || got.LineNumber != 5 {
		t.Errorf("DecodeResponse() header = %+v", got)
	}
	if got.Data == nil || !reflect.DeepEqual(*got.Data, result) {
		t.Errorf("Data = %+v, want %+v", got.Data, result)
	}
}

func TestDecodeResponse_Error(t *testing.T) {
	got, err := DecodeResponse([]byte(`{"id":2,"type":"error","lineNumber":1,"error":"boom"}`))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if got.Error != "boom" || got.Data != nil {
		t.Errorf("DecodeResponse() = %+v", got)
	}
}

func TestDecodeResponse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `not{}`, ErrMalformed},
		{"unknown type", `{"id":1,"type":"progress"}`, ErrUnknownType},
		{"missing type", `{"id":1}`, ErrUnknownType},
		{"result without data", `{"id":1,"type":"line-result","lineNumber":0}`, ErrMalformed},
		{"wrong field type", `{"id":"x","type":"error"}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeResponse([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("DecodeResponse(%s) error = %v, want %v", tt.data, err, tt.want)
			}
		})
	}
}

func TestAnalyzerHandler(t *testing.T) {
	h := AnalyzerHandler(syllable.NewAnalyzer(nil))

	resp := h(NewRequest(1, 4, "table"))
	if resp.Type != TypeLineResult || resp.ID != 1 || resp.LineNumber != 4 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Data.TotalSyllables != 2 {
		t.Errorf("TotalSyllables = %d, want 2", resp.Data.TotalSyllables)
	}

	resp = h(Request{ID: 2, Type: "bogus", LineNumber: 1})
	if resp.Type != TypeError || resp.ID != 2 || !strings.Contains(resp.Error, ErrUnknownType.Error()) {
		t.Errorf("unknown type response = %+v", resp)
	}
}

func TestPeekID(t *testing.T) {
	id, line, ok := peekID([]byte(`{"id":17,"lineNumber":3,"type":"nope"}`))
	if !ok || id != 17 || line != 3 {
		t.Errorf("peekID() = %d, %d, %v", id, line, ok)
	}
	if _, _, ok := peekID([]byte(`{"type":"nope"}`)); ok {
		t.Error("peekID() without id reported ok")
	}
}
