package candle

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// FileSource reads a candle series from a CSV file with the columns
// openTime,open,high,low,close,volume. It is the concrete, in-scope
// candle.Source the CLI ships with; a database- or exchange-backed Source
// is a collaborator's concern (spec.md §6).
type FileSource struct {
	inner *SliceSource
}

// NewFileSource parses r as CSV and validates the resulting series.
func NewFileSource(r io.Reader) (*FileSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	var series []Candle
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("candle: reading csv: %w", err)
		}
		c, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		series = append(series, c)
	}
	if len(series) == 0 {
		return nil, errors.New("candle: empty candle set")
	}
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}
	return &FileSource{inner: NewSliceSource(series)}, nil
}

func parseRow(row []string) (Candle, error) {
	openTime, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("candle: invalid openTime %q: %w", row[0], err)
	}
	open, err := decimal.NewFromString(row[1])
	if err != nil {
		return Candle{}, fmt.Errorf("candle: invalid open %q: %w", row[1], err)
	}
	high, err := decimal.NewFromString(row[2])
	if err != nil {
		return Candle{}, fmt.Errorf("candle: invalid high %q: %w", row[2], err)
	}
	low, err := decimal.NewFromString(row[3])
	if err != nil {
		return Candle{}, fmt.Errorf("candle: invalid low %q: %w", row[3], err)
	}
	closePrice, err := decimal.NewFromString(row[4])
	if err != nil {
		return Candle{}, fmt.Errorf("candle: invalid close %q: %w", row[4], err)
	}
	volume, err := decimal.NewFromString(row[5])
	if err != nil {
		return Candle{}, fmt.Errorf("candle: invalid volume %q: %w", row[5], err)
	}
	return Candle{
		OpenTime: openTime,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}

func (f *FileSource) Fetch(ctx context.Context, startTime, endTime int64) ([]Candle, error) {
	return f.inner.Fetch(ctx, startTime, endTime)
}

func (f *FileSource) Latest(ctx context.Context) (Candle, error) {
	return f.inner.Latest(ctx)
}
