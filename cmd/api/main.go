package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "sme-lending-backend/internal/adapter/http"
	mw "sme-lending-backend/internal/adapter/middleware"
	"sme-lending-backend/internal/adapter/repository/mysql"
	"sme-lending-backend/internal/config"
	"sme-lending-backend/internal/infrastructure/cache"
	"sme-lending-backend/internal/infrastructure/db"
	"sme-lending-backend/internal/notify"
	"sme-lending-backend/internal/usecase/audittrail"
	"sme-lending-backend/internal/usecase/docgate"
	"sme-lending-backend/internal/usecase/pipeline"
	productUC "sme-lending-backend/internal/usecase/product"
	"sme-lending-backend/internal/usecase/signing"
	"sme-lending-backend/internal/usecase/versioning"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}
	store := cache.NewRedisStore(rdb)

	uow := mysql.NewGormUoW(gdb)
	appRepo := mysql.NewApplicationRepository(gdb)
	versionRepo := mysql.NewVersionRepository(gdb)
	auditRepo := mysql.NewAuditRepository(gdb)

	var dispatcher notify.Dispatcher = notify.LogDispatcher{}

	cacheTTL := time.Duration(cfg.CacheTTLSecs) * time.Second
	pipelineUC := pipeline.NewUsecase(uow, appRepo, versionRepo, store, dispatcher, cacheTTL)
	versioningUC := versioning.NewUsecase(uow, store)
	docgateUC := docgate.NewUsecase(uow)
	productsUC := productUC.NewUsecase(uow)
	signingUC := signing.NewUsecase(uow, store)
	trailUC := audittrail.NewUsecase(appRepo, auditRepo)

	h := httpadp.NewHandler()
	appHandler := httpadp.NewApplicationHandler(pipelineUC, trailUC)
	versionHandler := httpadp.NewVersionHandler(versioningUC)
	docHandler := httpadp.NewDocumentHandler(docgateUC)
	productHandler := httpadp.NewProductHandler(productsUC)
	signingHandler := httpadp.NewSigningHandler(signingUC)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	e.GET("/health", h.Health)

	idemTTL := time.Duration(cfg.IdempTTLSecs) * time.Second
	v1 := e.Group("/v1", mw.AuthMiddleware(cfg.JWTSecret), mw.IdempotencyMiddleware(rdb, idemTTL))

	v1.POST("/applications", appHandler.Create)
	v1.GET("/applications/:application_id", appHandler.Get)
	v1.POST("/applications/:application_id/transition", appHandler.Transition)
	v1.GET("/applications/:application_id/audit", appHandler.Audit)

	v1.GET("/applications/:application_id/versions", versionHandler.List)
	v1.POST("/applications/:application_id/versions", versionHandler.CreateCounterOffer)
	v1.POST("/applications/:application_id/versions/:version_id/activate", versionHandler.Activate)
	v1.GET("/applications/:application_id/schedule", versionHandler.Schedule)

	v1.POST("/applications/:application_id/documents/verify", docHandler.Verify)
	v1.POST("/documents", docHandler.Upsert)

	v1.POST("/applications/:application_id/contract", signingHandler.UploadContract)
	v1.POST("/applications/:application_id/contract/send", signingHandler.SendForSigning)
	v1.POST("/applications/:application_id/contract/void", signingHandler.Void)
	v1.POST("/applications/:application_id/contract/expire", signingHandler.Expire)
	v1.POST("/applications/:application_id/signatories/:signatory_id/sign", signingHandler.Sign)

	v1.POST("/products", productHandler.Create)
	v1.GET("/products/:product_id", productHandler.Get)
	v1.POST("/products/:product_id/status", productHandler.TransitionStatus)
	v1.PATCH("/products/:product_id", productHandler.Edit)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
