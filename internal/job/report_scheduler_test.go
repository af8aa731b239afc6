package job

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"estore/internal/infra/mailer"
	"estore/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReports struct {
	mock.Mock
}

func (m *mockReports) GenerateReport(ctx context.Context, start, end time.Time) (usecase.SalesReport, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(usecase.SalesReport), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before", time.Date(2024, 3, 1, 7, 59, 0, 0, loc), time.Date(2024, 3, 1, 8, 0, 0, 0, loc)},
		{"exactly", time.Date(2024, 3, 1, 8, 0, 0, 0, loc), time.Date(2024, 3, 2, 8, 0, 0, 0, loc)},
		{"after", time.Date(2024, 3, 1, 9, 0, 0, 0, loc), time.Date(2024, 3, 2, 8, 0, 0, 0, loc)},
		{"month end", time.Date(2024, 2, 29, 23, 0, 0, 0, loc), time.Date(2024, 3, 1, 8, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRun(tt.now, 8, 0))
		})
	}
}

func TestReportWindow(t *testing.T) {
	start, end := reportWindow(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestRunOnce_GeneratesYesterdayAndMails(t *testing.T) {
	reports := new(mockReports)
	sender := new(mockSender)
	s := NewReportScheduler(reports, sender, "admin@example.com", 8, 0)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }

	start := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	reports.On("GenerateReport", mock.Anything, start, end).Return(usecase.SalesReport{
		Start: start,
		End:   end,
		Rows: []usecase.SalesReportRow{
			{ProductName: "Widget", TotalQuantity: 5, TotalRevenue: decimal.NewFromInt(48)},
		},
		TotalRevenue: decimal.NewFromInt(48),
	}, nil).Once()

	sender.On("Send", mock.Anything, mock.MatchedBy(func(m mailer.Message) bool {
		return m.To == "admin@example.com" &&
			m.Subject == "Daily sales report 2024-02-29" &&
			strings.Contains(m.Text, "Widget\t5\t48.00") &&
			strings.Contains(m.Text, "Total revenue: 48.00")
	})).Return(nil).Once()

	require.NoError(t, s.RunOnce(context.Background()))
	reports.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestRunOnce_ReportErrorSkipsMail(t *testing.T) {
	reports := new(mockReports)
	sender := new(mockSender)
	s := NewReportScheduler(reports, sender, "admin@example.com", 8, 0)

	reports.On("GenerateReport", mock.Anything, mock.Anything, mock.Anything).
		Return(usecase.SalesReport{}, errors.New("db down")).Once()

	err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestStart_StopReturns(t *testing.T) {
	s := NewReportScheduler(new(mockReports), new(mockSender), "admin@example.com", 8, 0)
	stop := s.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, stop(ctx))
}
