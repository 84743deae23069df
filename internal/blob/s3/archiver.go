package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ReportArchiver is a report sink that uploads every cycle report as one
// JSON object under cycles/YYYY/MM/DD/<id>.json.
type ReportArchiver struct {
	w domain.BlobWriter
}

// NewReportArchiver creates a ReportArchiver writing through w.
func NewReportArchiver(w domain.BlobWriter) *ReportArchiver {
	return &ReportArchiver{w: w}
}

// Name implements domain.ReportSink.
func (a *ReportArchiver) Name() string { return "s3" }

// Record implements domain.ReportSink.
func (a *ReportArchiver) Record(ctx context.Context, r *domain.CycleReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("s3blob: marshal report %s: %w", r.ID, err)
	}
	if err := a.w.Put(ctx, ArchivePath(r), bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive report %s: %w", r.ID, err)
	}
	return nil
}

// ArchivePath returns the object key for r, partitioned by UTC start date.
func ArchivePath(r *domain.CycleReport) string {
	return fmt.Sprintf("cycles/%s/%s.json", r.StartedAt.UTC().Format("2006/01/02"), r.ID)
}

var _ domain.ReportSink = (*ReportArchiver)(nil)
