// Package sheets appends one row per cycle report to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultRange is the A1 range rows are appended after.
const DefaultRange = "A2:G2"

// Config configures an Appender.
type Config struct {
	SpreadsheetID string
	Range         string

	// CredentialsFile and CredentialsJSON hold a service account key. When
	// both are set the file wins.
	CredentialsFile string
	CredentialsJSON string
	AppName         string

	// RollingWindow deletes the oldest data row after every append so the
	// sheet keeps a fixed number of rows.
	RollingWindow bool
	SheetID       int64

	Location *time.Location
}

// Appender is a report sink writing each cycle as one spreadsheet row.
type Appender struct {
	svc *gsheets.Service
	cfg Config
}

// New creates an Appender. Extra client options are appended after the
// credential options derived from cfg.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Appender, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required: %w", domain.ErrConfig)
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	base := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsFile != "":
		base = append(base, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.CredentialsJSON != "":
		base = append(base, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	if cfg.AppName != "" {
		base = append(base, option.WithUserAgent(cfg.AppName))
	}

	svc, err := gsheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Appender{svc: svc, cfg: cfg}, nil
}

// Name implements domain.ReportSink.
func (a *Appender) Name() string { return "sheets" }

// Record implements domain.ReportSink.
func (a *Appender) Record(ctx context.Context, r *domain.CycleReport) error {
	vr := &gsheets.ValueRange{Values: [][]any{r.Row(a.cfg.Location)}}
	_, err := a.svc.Spreadsheets.Values.Append(a.cfg.SpreadsheetID, a.cfg.Range, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append row: %w: %w", domain.ErrNetwork, err)
	}

	if !a.cfg.RollingWindow {
		return nil
	}
	return a.dropOldest(ctx)
}

// dropOldest deletes the first data row below the header.
func (a *Appender) dropOldest(ctx context.Context) error {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:         a.cfg.SheetID,
					Dimension:       "ROWS",
					StartIndex:      1,
					EndIndex:        2,
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := a.svc.Spreadsheets.BatchUpdate(a.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: delete oldest row: %w: %w", domain.ErrNetwork, err)
	}
	return nil
}

var _ domain.ReportSink = (*Appender)(nil)
