package workouts

import (
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type workoutParquetRow struct {
	ID       int64   `parquet:"name=id, type=INT64"`
	Date     string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Distance float64 `parquet:"name=distance_km, type=DOUBLE"`
	Duration int32   `parquet:"name=duration_min, type=INT32"`
	Pace     string  `parquet:"name=pace, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// MarshalParquet encodes workouts as a snappy compressed parquet file.
func MarshalParquet(workouts []Workout) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(workoutParquetRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, w := range workouts {
		row := workoutParquetRow{
			ID:       int64(w.ID),
			Date:     w.Date.String(),
			Distance: w.Distance,
			Duration: int32(w.Duration),
			Pace:     w.Pace,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}
