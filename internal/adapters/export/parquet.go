// Package export writes the derived table as a Parquet file.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/okian/covidtrend/internal/domain/model"
)

const (
	// parallelism of the parquet column encoders
	writerParallelism = 1
	secondsPerDay     = 24 * 60 * 60
)

// Row is the Parquet layout of one derived observation. Date is stored as
// days since the Unix epoch; missing offsets are null.
type Row struct {
	Country                string  `parquet:"name=country,type=BYTE_ARRAY,convertedtype=UTF8,encoding=PLAIN_DICTIONARY"`
	Date                   int32   `parquet:"name=date,type=INT32,convertedtype=DATE"`
	Deaths                 int64   `parquet:"name=deaths,type=INT64"`
	DailyDelta             int64   `parquet:"name=daily_delta,type=INT64"`
	WeeklySum              int64   `parquet:"name=weekly_sum,type=INT64"`
	DailyRate              float64 `parquet:"name=daily_rate,type=DOUBLE"`
	DaySinceDeathThreshold *int32  `parquet:"name=day_since_death_threshold,type=INT32,repetitiontype=OPTIONAL"`
	DaySinceRateThreshold  *int32  `parquet:"name=day_since_rate_threshold,type=INT32,repetitiontype=OPTIONAL"`
}

// ToRow converts a derived observation to its Parquet layout.
func ToRow(o model.DerivedObservation) Row {
	return Row{
		Country:                o.Country,
		Date:                   int32(o.Date.UTC().Unix() / secondsPerDay),
		Deaths:                 int64(o.Deaths),
		DailyDelta:             int64(o.DailyDelta),
		WeeklySum:              int64(o.WeeklySum),
		DailyRate:              o.DailyRate,
		DaySinceDeathThreshold: int32Ptr(o.DaySinceDeathThreshold),
		DaySinceRateThreshold:  int32Ptr(o.DaySinceRateThreshold),
	}
}

func int32Ptr(p *int) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}

// ParseCompression maps a codec name to its Parquet codec. The empty name
// selects SNAPPY.
func ParseCompression(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrCompression, name)
	}
}

// Encode serializes rows into an in-memory Parquet file.
func Encode(rows []model.DerivedObservation, codec parquet.CompressionCodec) ([]byte, error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(Row), writerParallelism)
	if err != nil {
		return nil, fmt.Errorf("%w: create writer: %v", ErrExport, err)
	}
	pw.CompressionType = codec

	var errs *multierror.Error
	for _, o := range rows {
		if werr := pw.Write(ToRow(o)); werr != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s %s: %w", o.Country, o.Date.Format("2006-01-02"), werr))
			break
		}
	}

	// WriteStop panics on some malformed schemas
	func() {
		defer func() {
			if r := recover(); r != nil {
				errs = multierror.Append(errs, fmt.Errorf("write stop panicked: %v", r))
			}
		}()
		if serr := pw.WriteStop(); serr != nil {
			errs = multierror.Append(errs, fmt.Errorf("write stop: %w", serr))
		}
	}()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}
	return buf.Bytes(), nil
}

// WriteParquet encodes rows and replaces path with the result.
func WriteParquet(ctx context.Context, path string, rows []model.DerivedObservation, compression string) error {
	codec, err := ParseCompression(compression)
	if err != nil {
		return err
	}
	data, err := Encode(rows, codec)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return writeFile(path, data)
}

// fileMode matches the page written next to the export.
const fileMode = 0o644

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrExport, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrExport, err)
	}

	var errs *multierror.Error
	if _, err := tmp.Write(data); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := tmp.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs.ErrorOrNil() == nil {
		if err := os.Chmod(tmp.Name(), fileMode); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs.ErrorOrNil() == nil {
		if err := os.Rename(tmp.Name(), path); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs.ErrorOrNil() != nil {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			errs = multierror.Append(errs, err)
		}
		return fmt.Errorf("%w: %v", ErrExport, errs)
	}
	return nil
}
