package forecast

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// ContentType is the content type of every forecast object.
const ContentType = "text/csv"

// EncodeCSV renders a record as a header row followed by one data row.
func EncodeCSV(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rec.Names()); err != nil {
		return nil, err
	}
	if err := w.Write(rec.Strings()); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectWriter stores records as CSV objects.
type ObjectWriter struct {
	store  storage.Executor
	bucket string
}

// NewObjectWriter creates an ObjectWriter. An empty bucket uses the storage
// connection's default bucket.
func NewObjectWriter(store storage.Executor, bucket string) *ObjectWriter {
	return &ObjectWriter{store: store, bucket: bucket}
}

// Write uploads rec under ObjectName(fetchID, rec.Grain) and returns the name.
// An existing object of the same name is replaced.
func (w *ObjectWriter) Write(ctx context.Context, fetchID int64, rec Record) (string, error) {
	name := ObjectName(fetchID, rec.Grain)
	body, err := EncodeCSV(rec)
	if err != nil {
		return "", exception.Newf(moduleName, exception.KindStorage, "failed to encode %s record", rec.Grain, err)
	}
	if err := w.store.Upload(ctx, w.bucket, name, bytes.NewReader(body), ContentType); err != nil {
		return "", exception.New(moduleName, exception.KindStorage, fmt.Sprintf("failed to upload object '%s'", name), err)
	}
	logger.Debugf("Wrote object %s (%d bytes)", name, len(body))
	return name, nil
}
