package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"elix-client/internal/models"
)

func TestDecoderNext(t *testing.T) {
	body := strings.Join([]string{
		`data: {"type":"section","section":"Explanation"}`,
		``,
		`: keepalive comment, no prefix`,
		`data: {"type":"content","section":"Explanation","text":"Foo"}`,
		`data: this is not json`,
		`data: {"type":"done"}`,
		``,
	}, "\n")

	dec := NewDecoder(strings.NewReader(body))

	var records []models.StreamRecord
	for {
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Unexpected decode error: %v", err)
		}
		records = append(records, rec)
	}

	// The malformed line and the unprefixed lines are skipped.
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].Type != models.RecordSection || records[0].Section != "Explanation" {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[1].Text != "Foo" {
		t.Errorf("Expected content text 'Foo', got %q", records[1].Text)
	}
	if records[2].Type != models.RecordDone {
		t.Errorf("Expected done record, got %+v", records[2])
	}
}

func TestDecoderEmptyStream(t *testing.T) {
	dec := NewDecoder(strings.NewReader(""))
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF on empty stream, got %v", err)
	}
}

// chunkedReader delivers the payload a few bytes at a time so records
// span read boundaries, as they do on a real network stream.
type chunkedReader struct {
	data []byte
	pos  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := 7
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func TestDecoderAcrossChunkBoundaries(t *testing.T) {
	body := "data: {\"type\":\"content\",\"section\":\"Example\",\"text\":\"split across chunks\"}\n\ndata: {\"type\":\"done\"}\n"
	dec := NewDecoder(&chunkedReader{data: []byte(body)})

	rec, err := dec.Next()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.Text != "split across chunks" {
		t.Errorf("Expected reassembled text, got %q", rec.Text)
	}

	rec, err = dec.Next()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.Type != models.RecordDone {
		t.Errorf("Expected done record, got %+v", rec)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestDecodeTransportError(t *testing.T) {
	err := Decode(context.Background(), failingReader{}, func(models.StreamRecord) error {
		t.Fatal("Callback should not run for a failed transport")
		return nil
	})
	if err == nil {
		t.Fatal("Expected transport error")
	}
}

func TestDecodeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	body := strings.Repeat("data: {\"type\":\"content\",\"section\":\"Explanation\",\"text\":\"x\"}\n", 10)
	applied := 0
	err := Decode(ctx, strings.NewReader(body), func(models.StreamRecord) error {
		applied++
		cancel()
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if applied != 1 {
		t.Errorf("Expected exactly 1 record applied before cancellation, got %d", applied)
	}
}

func TestDecodeCallbackError(t *testing.T) {
	sentinel := errors.New("stop")
	err := Decode(context.Background(), strings.NewReader("data: {\"type\":\"done\"}\n"), func(models.StreamRecord) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected callback error to propagate, got %v", err)
	}
}
