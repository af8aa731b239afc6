package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"estore/internal/config"
	"estore/internal/handler"
	infraRepo "estore/internal/infra/repository"
	"estore/internal/logger"
	"estore/internal/middleware"
	repo "estore/internal/repository"
	"estore/internal/usecase"
	"estore/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Usecases はHTTPとCLIの両方から使う業務ロジック一式
type Usecases struct {
	Auth       *usecase.AuthUsecase
	Members    *usecase.MemberUsecase
	Categories *usecase.CategoryUsecase
	Products   *usecase.ProductUsecase
	Cart       *usecase.CartUsecase
	Orders     *usecase.OrderUsecase
	Status     *usecase.OrderStatusUsecase
	Tracking   *usecase.TrackingUsecase
	Reports    *usecase.ReportUsecase

	// Tx外の読み取り用
	Repos repo.TxRepos
}

// 外部連携。nilなら使わない
type Integrations struct {
	ProductCache usecase.ProductCache
	ReportStore  usecase.ReportStore
}

func BuildUsecases(cfg config.Config, gdb *gorm.DB, in Integrations) Usecases {
	//Repository（GORM実装）生成
	repos := infraRepo.NewRepos(gdb)
	tx := infraRepo.NewTxManagerGorm(gdb)

	v := validator.New(cfg.Member.RequireGmail)

	members := usecase.NewMemberUsecase(tx, repos.Members(), v)
	products := usecase.NewProductUsecase(tx, repos.Products(), repos.Inventory(), in.ProductCache)
	cart := usecase.NewCartUsecase(tx, repos.Carts(), repos.CartItems())

	return Usecases{
		Auth:       usecase.NewAuthUsecase(cfg.JWT, repos.Members(), members),
		Members:    members,
		Categories: usecase.NewCategoryUsecase(tx, repos.Categories(), repos.Products()),
		Products:   products,
		Cart:       cart,
		Orders: usecase.NewOrderUsecase(tx, repos, products, cart, usecase.OrderOptions{
			AtomicStockReservation: cfg.Order.AtomicStockReservation,
		}),
		Status:   usecase.NewOrderStatusUsecase(tx, cfg.Order.StrictTransitions),
		Tracking: usecase.NewTrackingUsecase(repos.Tracking()),
		Reports:  usecase.NewReportUsecase(repos.OrderDetails(), repos.Outbox(), in.ReportStore),
		Repos:    repos,
	}
}

// NewEcho はルーティング済みのechoを返す。events が nil なら /events は登録しない
func NewEcho(cfg config.Config, uc Usecases, events handler.EventSource) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New(cfg.Member.RequireGmail)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	RegisterRoutes(e, cfg, uc, events)
	return e
}

// Start は ctx が終わるまでサーブし、終わったら graceful に止める
func Start(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}
