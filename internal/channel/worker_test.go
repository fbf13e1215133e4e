package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/cadence/internal/syllable"
)

const testTimeout = 5 * time.Second

func recvResponse(t *testing.T, ch Channel) Response {
	t.Helper()
	select {
	case resp, ok := <-ch.Responses():
		if !ok {
			t.Fatal("Responses closed")
		}
		return resp
	case err := <-ch.Failed():
		t.Fatalf("channel failed: %v", err)
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for response")
	}
	return Response{}
}

func recvFailure(t *testing.T, ch Channel) error {
	t.Helper()
	select {
	case err := <-ch.Failed():
		return err
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for failure")
	}
	return nil
}

func TestWorker_ProcessesInOrder(t *testing.T) {
	w := NewWorker(nil)
	defer w.Close()

	lines := []string{"hello", "beautiful day", "", "# note"}
	for i, text := range lines {
		if err := w.Send(NewRequest(int64(i+1), i, text)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	a := syllable.NewAnalyzer(nil)
	for i, text := range lines {
		resp := recvResponse(t, w)
		if resp.ID != int64(i+1) || resp.Type != TypeLineResult {
			t.Fatalf("response %d = %+v", i, resp)
		}
		if want := a.Analyze(i, text); resp.Data.TotalSyllables != want.TotalSyllables {
			t.Errorf("line %d TotalSyllables = %d, want %d", i, resp.Data.TotalSyllables, want.TotalSyllables)
		}
	}
}

func TestWorker_PanicIsFatal(t *testing.T) {
	w := NewWorker(nil, WithHandler(func(req Request) Response {
		if req.Text == "crash" {
			panic("boom")
		}
		return ErrorResponse(req.ID, req.LineNumber, "ok")
	}))
	defer w.Close()

	w.Send(NewRequest(1, 0, "fine"))
	w.Send(NewRequest(2, 1, "crash"))
	w.Send(NewRequest(3, 2, "never"))

	select {
	case resp := <-w.Responses():
		if resp.ID != 1 {
			t.Fatalf("first response = %+v", resp)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for first response")
	}
	err := recvFailure(t, w)
	if !errors.Is(err, ErrCrashed) {
		t.Errorf("failure = %v, want ErrCrashed", err)
	}

	// Responses closes after the failure and nothing else is delivered.
	select {
	case resp, ok := <-w.Responses():
		if ok {
			t.Errorf("unexpected response after crash: %+v", resp)
		}
	case <-time.After(testTimeout):
		t.Fatal("Responses not closed after crash")
	}

	if err := w.Send(NewRequest(4, 0, "again")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after crash = %v, want ErrClosed", err)
	}
}

func TestWorker_CloseIsNotAFailure(t *testing.T) {
	w := NewWorker(nil)
	w.Send(NewRequest(1, 0, "hello"))

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	select {
	case err := <-w.Failed():
		t.Errorf("Failed fired on Close: %v", err)
	default:
	}
	if err := w.Send(NewRequest(2, 0, "x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}
}

func TestWorker_SendDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	w := NewWorker(nil, WithHandler(func(req Request) Response {
		<-release
		return ErrorResponse(req.ID, req.LineNumber, "")
	}))
	defer w.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			w.Send(NewRequest(int64(i), i, "x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Send blocked behind a busy handler")
	}
	close(release)
}

func TestWorkerFactory(t *testing.T) {
	f := WorkerFactory(nil)
	ch, err := f(context.Background())
	if err != nil {
		t.Fatalf("factory error = %v", err)
	}
	defer ch.Close()

	ch.Send(NewRequest(1, 0, "table"))
	if resp := recvResponse(t, ch); resp.Data == nil || resp.Data.TotalSyllables != 2 {
		t.Errorf("response = %+v", resp)
	}
}
