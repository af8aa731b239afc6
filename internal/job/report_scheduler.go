package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estore/internal/infra/mailer"
	"estore/internal/logger"
	"estore/internal/usecase"

	"go.uber.org/zap"
)

type ReportGenerator interface {
	GenerateReport(ctx context.Context, start, end time.Time) (usecase.SalesReport, error)
}

// 毎日決まった時刻に前日分の売上レポートを作ってメールする
type ReportScheduler struct {
	reports ReportGenerator
	mail    mailer.Sender
	to      string
	hour    int
	minute  int
	now     func() time.Time
}

func NewReportScheduler(reports ReportGenerator, mail mailer.Sender, to string, hour, minute int) *ReportScheduler {
	return &ReportScheduler{
		reports: reports,
		mail:    mail,
		to:      to,
		hour:    hour,
		minute:  minute,
		now:     time.Now,
	}
}

// now以降で最初のhour:minute
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// [昨日0時, 今日0時]
func reportWindow(now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -1), today
}

func (s *ReportScheduler) RunOnce(ctx context.Context) error {
	start, end := reportWindow(s.now())

	report, err := s.reports.GenerateReport(ctx, start, end)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := s.mail.Send(ctx, mailer.Message{
		To:      s.to,
		Subject: fmt.Sprintf("Daily sales report %s", start.Format("2006-01-02")),
		Text:    renderText(report),
	}); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func renderText(r usecase.SalesReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sales from %s to %s\n\n", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	if len(r.Rows) == 0 {
		b.WriteString("No sales.\n")
	}
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "%s\t%d\t%s\n", row.ProductName, row.TotalQuantity, row.TotalRevenue.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal revenue: %s\n", r.TotalRevenue.StringFixed(2))
	if r.Location != "" {
		fmt.Fprintf(&b, "Report: %s\n", r.Location)
	}
	return b.String()
}

// 止める関数を返す。失敗はログのみ
func (s *ReportScheduler) Start(ctx context.Context) func(context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			wait := time.Until(nextRun(s.now(), s.hour, s.minute))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if err := s.RunOnce(ctx); err != nil {
					logger.Error("daily report failed", zap.Error(err))
				} else {
					logger.Info("daily report sent", zap.String("to", s.to))
				}
			}
		}
	}()

	return func(stopCtx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
}
