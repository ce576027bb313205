package main

import (
	"log"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/notify"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/vnpay"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is for local development; in deployment the environment is set
	// by the platform and the file is absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.GoEnv == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	gormDB, err := db.Connect()
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.Order{},
		&model.OrderItem{},
		&model.Voucher{},
		&model.PaymentRecord{},
		&model.ReturnRequest{},
		&model.ReturnRequestItem{},
		&model.StockReconciliation{},
	); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	voucherRepo := infraRepo.NewVoucherGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	returnRepo := infraRepo.NewReturnRequestGormRepository(gormDB)
	reconRepo := infraRepo.NewStockReconciliationGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	gateway := vnpay.NewClient(vnpay.Config{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		URL:        cfg.VNPayURL,
		ReturnURL:  cfg.VNPayReturnURL,
	})
	notifier := notify.NewLogNotifier(logger)

	orderUC := usecase.NewOrderUsecase(
		txManager, orderRepo, orderItemRepo, productRepo, voucherRepo, returnRepo,
		reconRepo, notifier, logger,
	)
	paymentUC := usecase.NewPaymentUsecase(
		txManager, orderRepo, paymentRepo, gateway, cfg.FrontendURL, notifier, logger,
	)
	voucherUC := usecase.NewVoucherUsecase(voucherRepo)
	returnUC := usecase.NewReturnRequestUsecase(
		txManager, returnRepo, orderRepo, orderItemRepo, orderUC,
		notifier, logger, cfg.ReturnWindowHours,
	)

	e := server.New(cfg, logger, server.Handlers{
		Orders:   handler.NewOrderHandler(orderUC, paymentUC),
		Payments: handler.NewPaymentHandler(paymentUC),
		Vouchers: handler.NewVoucherHandler(voucherUC),
		Returns:  handler.NewReturnRequestHandler(returnUC),
	})

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	logger.Info("server starting", zap.String("addr", addr))
	if err := server.Start(e, addr); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
