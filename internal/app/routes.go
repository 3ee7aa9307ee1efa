package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/modules/ai"
	"github.com/studylog/core/internal/modules/auth"
	"github.com/studylog/core/internal/modules/material"
	"github.com/studylog/core/internal/modules/ocr"
	"github.com/studylog/core/internal/modules/quiz"
	"github.com/studylog/core/internal/modules/report"
	"github.com/studylog/core/internal/modules/slide"
	"github.com/studylog/core/internal/modules/study"
	"github.com/studylog/core/internal/pkg/objstore"
	"github.com/studylog/core/internal/pkg/response"
)

func (a *App) registerRoutes() error {
	r := a.router
	db := a.db
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "studylog-core",
		"version": "1.0.0",
	}

	// Rate limiting and idempotence need Redis; without it they are skipped.
	if a.rc != nil {
		r.Use(middleware.RateLimit(a.rc.Raw()))
		r.Use(middleware.Idempotence(a.rc.Raw()))
	}

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth())

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})
	api.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			response.InternalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	aiSvc := ai.NewService(db, &a.cfg.AI.Provider, a.logger)

	ocrEngine, err := ocr.New(a.cfg.OCR, a.logger)
	if err != nil {
		return err
	}

	uploader, err := objstore.NewUploader(a.cfg.Storage.S3)
	if err != nil {
		return err
	}

	studySvc := study.NewService(db)
	materialSvc := material.NewService(db, a.cfg, uploader, aiSvc, a.logger)
	slideSvc := slide.NewService(db, a.cfg, ocrEngine, aiSvc, studySvc, a.rc, a.logger)
	quizSvc := quiz.NewService(db, aiSvc)
	reportSvc := report.NewService(db, aiSvc, a.logger)

	tokenTTL := time.Duration(a.cfg.JWT.TTLHours) * time.Hour
	auth.NewHandler(auth.NewService(db, tokenTTL)).RegisterRoutes(api, authMW)
	material.NewHandler(materialSvc).RegisterRoutes(api, authMW)
	slide.NewHandler(slideSvc).RegisterRoutes(api, authMW)
	study.NewHandler(studySvc).RegisterRoutes(api, authMW)
	quiz.NewHandler(quizSvc).RegisterRoutes(api, authMW)
	report.NewHandler(reportSvc).RegisterRoutes(api, authMW)

	return nil
}
