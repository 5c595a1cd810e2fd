package alert

import (
	"context"
	"fmt"
	"io"
)

// SourcePipe identifies alerts read from a single input stream.
const SourcePipe = "pipe"

// maxPipeBytes bounds a single alert document read from the pipe.
const maxPipeBytes = 4 << 20

// PipeSource reads one JSON alert from a reader, typically stdin handed over
// by a Wazuh active response or integratord.
type PipeSource struct {
	r io.Reader
}

// NewPipeSource returns a Source reading a single alert from r.
func NewPipeSource(r io.Reader) *PipeSource {
	return &PipeSource{r: r}
}

// Alerts reads r to EOF and returns exactly one alert.
func (p *PipeSource) Alerts(_ context.Context) ([]*Alert, error) {
	data, err := io.ReadAll(io.LimitReader(p.r, maxPipeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %w", ErrInvalid, err)
	}
	if len(data) > maxPipeBytes {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", ErrInvalid, maxPipeBytes)
	}

	rec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return []*Alert{New(SourcePipe, rec)}, nil
}
