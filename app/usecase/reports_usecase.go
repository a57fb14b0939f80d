package usecase

import (
	"context"
	"log/slog"

	"publish-service/app/domain"
	"publish-service/app/port"
)

// ReportsUsecase answers publish report queries and administrative deletes.
type ReportsUsecase struct {
	reports port.ReportStore
	logger  *slog.Logger
}

func NewReportsUsecase(reports port.ReportStore, logger *slog.Logger) *ReportsUsecase {
	return &ReportsUsecase{reports: reports, logger: logger}
}

// Query lists report rows matching the recognized filters, newest first.
func (u *ReportsUsecase) Query(ctx context.Context, filters domain.ReportFilters, limit int) ([]domain.ReportRecord, error) {
	records, err := u.reports.QueryWithFilters(ctx, filters, limit)
	if err != nil {
		u.logger.Error("report query failed", "error", err)
		return nil, err
	}
	return records, nil
}

// Delete removes one report row by id.
func (u *ReportsUsecase) Delete(ctx context.Context, id int64) error {
	return u.reports.Delete(ctx, id)
}
