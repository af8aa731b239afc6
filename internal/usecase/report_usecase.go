package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"estore/internal/event"
	"estore/internal/logger"
	repo "estore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 集計結果の置き場所（S3やローカル）
type ReportStore interface {
	Put(ctx context.Context, key string, contentType string, body []byte) (string, error)
}

type ReportUsecase struct {
	details repo.OrderDetailRepository
	outbox  repo.OutboxRepository
	store   ReportStore
}

func NewReportUsecase(details repo.OrderDetailRepository, outbox repo.OutboxRepository, store ReportStore) *ReportUsecase {
	return &ReportUsecase{details: details, outbox: outbox, store: store}
}

type SalesReportRow struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type SalesReport struct {
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Rows         []SalesReportRow `json:"rows"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
	// アップロードできたときだけ入る
	Location string `json:"location,omitempty"`
}

// start <= order_date <= end の明細を商品名ごとに集計。売上の降順
func (u *ReportUsecase) GenerateReport(ctx context.Context, start, end time.Time) (SalesReport, error) {
	if start.IsZero() || end.IsZero() {
		return SalesReport{}, NewHTTPError(http.StatusBadRequest, "start and end required")
	}
	if start.After(end) {
		return SalesReport{}, NewHTTPError(http.StatusBadRequest, "start must be <= end")
	}

	lines, err := u.details.ListSalesLines(ctx, start, end)
	if err != nil {
		return SalesReport{}, dbError("report.generate", err)
	}

	report := SalesReport{
		Start:        start,
		End:          end,
		Rows:         aggregateSales(lines),
		TotalRevenue: decimal.Zero,
	}
	for _, r := range report.Rows {
		report.TotalRevenue = report.TotalRevenue.Add(r.TotalRevenue)
	}

	// ここから先は失敗しても返す
	if len(report.Rows) > 0 && u.store != nil {
		if loc, err := u.upload(ctx, report); err != nil {
			logger.Warn("report upload failed", zap.Error(err))
		} else {
			report.Location = loc
		}
	}
	if u.outbox != nil {
		if err := enqueue(ctx, u.outbox, event.TopicSalesReportGenerated, report); err != nil {
			logger.Warn("report event enqueue failed", zap.Error(err))
		}
	}

	return report, nil
}

func aggregateSales(lines []repo.SalesLine) []SalesReportRow {
	byName := make(map[string]*SalesReportRow)
	for _, l := range lines {
		row, ok := byName[l.ProductName]
		if !ok {
			row = &SalesReportRow{ProductName: l.ProductName, TotalRevenue: decimal.Zero}
			byName[l.ProductName] = row
		}
		row.TotalQuantity += l.Quantity
		row.TotalRevenue = row.TotalRevenue.Add(l.Revenue())
	}

	rows := make([]SalesReportRow, 0, len(byName))
	for _, r := range byName {
		r.TotalRevenue = r.TotalRevenue.Round(2)
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].TotalRevenue.Cmp(rows[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return rows[i].ProductName < rows[j].ProductName
	})
	return rows
}

func (u *ReportUsecase) upload(ctx context.Context, report SalesReport) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("sales-reports/%s_%s.json",
		report.Start.Format("20060102"), report.End.Format("20060102"))
	return u.store.Put(ctx, key, "application/json", body)
}
