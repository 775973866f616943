package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"

	"elix-client/internal/models"
)

const dataPrefix = "data: "

// Decoder parses a streamed explanation response body into discrete
// records. Lines without the "data: " prefix are ignored; a line whose
// payload fails to parse is logged and skipped without aborting the
// stream. A Decoder is not restartable.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// Section payloads can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next decoded record. It returns io.EOF when the
// transport signals completion, or the transport error that ended the
// stream.
func (d *Decoder) Next() (models.StreamRecord, error) {
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		var rec models.StreamRecord
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &rec); err != nil {
			log.Printf("Skipping malformed stream record: %v", err)
			continue
		}
		return rec, nil
	}

	if err := d.scanner.Err(); err != nil {
		return models.StreamRecord{}, err
	}
	return models.StreamRecord{}, io.EOF
}

// Decode drives the decoder over r, invoking fn for each record. It stops
// on transport error, when fn returns an error, or once ctx is canceled;
// cancellation is checked between records so an abandoned stream stops
// writing instead of running to completion.
func Decode(ctx context.Context, r io.Reader, fn func(models.StreamRecord) error) error {
	dec := NewDecoder(r)
	for {
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
