package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secure-health-server/config"
	_ "secure-health-server/docs"
	"secure-health-server/internal/handler"
	"secure-health-server/internal/notifier"
	"secure-health-server/internal/otp"
	"secure-health-server/internal/pdf"
	"secure-health-server/internal/repository"
	"secure-health-server/internal/security"
	"secure-health-server/internal/service"
	"secure-health-server/internal/util"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Secure-health-server
// @version 1.0
// @description REST API медицинского портала: файлы пациентов, карты и одноразовые коды доступа

// @host localhost:8080

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	srv, router := config.SetupServer(cfg.ServerAddr)

	ttl := time.Duration(cfg.TTL.S3AndRedis) * time.Second

	userRepo := repository.NewUserRepository(db)
	jwtRepo := repository.NewJWTRepository(db)
	fileRepo := repository.NewPatientFileRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, ttl)

	s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
	if err != nil {
		log.Fatalf("Ошибка создания S3 сервиса: %v", err)
	}

	mailer, err := notifier.NewSMTPMailer(&cfg.SMTP)
	if err != nil {
		log.Fatalf("Ошибка создания SMTP шлюза: %v", err)
	}

	generator := otp.NewGenerator(otp.NewCryptoSource())
	renderer := pdf.NewRenderer()
	uploader := util.NewS3Uploader()

	jwtService := security.NewJWTService(&cfg.JWT)
	userService := service.NewUserService(userRepo, mailer, generator)
	authService := service.NewAuthenticationService(jwtRepo, cfg, jwtService, userRepo, mailer, generator)
	fileService := service.NewPatientFileService(fileRepo, cacheRepo, s3Service, ttl)
	patientService := service.NewPatientService(patientRepo, grantRepo, cacheRepo, userRepo, s3Service, renderer, uploader, mailer, generator, ttl)
	accessService := service.NewAccessService(fileRepo, patientRepo, grantRepo, cacheRepo, userRepo, s3Service, mailer, generator, ttl)

	authHandler := handler.NewAuthenticationHandler(authService, jwtService, []byte(cfg.JWT.SecretKey))
	userHandler := handler.NewUserHandler(userService)
	fileHandler := handler.NewPatientFileHandler(fileService, accessService)
	patientHandler := handler.NewPatientHandler(patientService, accessService)

	router.Use(config.DBMiddleware(db))
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupAuthRoutes(router, authHandler, jwtService, jwtRepo, cfg)
	setupUserRoutes(router, userHandler, jwtService, jwtRepo, cfg)
	setupPatientFileRoutes(router, fileHandler, jwtService, jwtRepo, cfg)
	setupPatientRoutes(router, patientHandler, jwtService, jwtRepo, cfg)

	runServer(ctx, srv)
}

func setupAuthRoutes(r chi.Router, h *handler.AuthenticationHandler, jwtService *security.JWTService, jwtRepo *repository.JWTRepository, cfg *config.AppConfig) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware([]byte(cfg.JWT.SecretKey), jwtRepo, jwtService, cfg.Admin.AdminToken))
			r.Get("/me", h.GetCurrentUsersUUID)
			r.Head("/me", h.GetCurrentUsersUUIDHead)
			r.Post("/refresh", h.RefreshToken)
		})
		r.Group(func(r chi.Router) {
			r.Post("/", h.Login)
			r.Post("/request-otp", h.RequestOTP)
			r.Delete("/{token}", h.Logout)
		})
	})
}

func setupUserRoutes(r chi.Router, h *handler.UserHandler, jwtService *security.JWTService, jwtRepo *repository.JWTRepository, cfg *config.AppConfig) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.RegisterUser)

		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware([]byte(cfg.JWT.SecretKey), jwtRepo, jwtService, cfg.Admin.AdminToken))

			r.Get("/users", h.ListUsers)
			r.Head("/users", h.ListUsers)
			r.Get("/users/counts", h.RoleCounts)

			r.Route("/users/{uuid}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Head("/", h.GetUser)
				r.Delete("/", h.DeleteUser)
			})
		})
	})
}

func setupPatientFileRoutes(r chi.Router, h *handler.PatientFileHandler, jwtService *security.JWTService, jwtRepo *repository.JWTRepository, cfg *config.AppConfig) {
	r.Route("/api/files", func(r chi.Router) {
		r.Use(security.JWTMiddleware([]byte(cfg.JWT.SecretKey), jwtRepo, jwtService, cfg.Admin.AdminToken))
		r.Get("/", h.ListFiles)
		r.Post("/", h.CreateFile)

		r.Route("/{file_uuid}", func(r chi.Router) {
			r.Get("/", h.GetFile)
			r.Post("/share", h.ShareFile)
			r.Delete("/", h.DeleteFile)
		})
	})

	// доступ по коду из письма, без Bearer-токена
	r.Post("/api/public/files/{file_uuid}/access", h.AccessFile)
}

func setupPatientRoutes(r chi.Router, h *handler.PatientHandler, jwtService *security.JWTService, jwtRepo *repository.JWTRepository, cfg *config.AppConfig) {
	r.Route("/api/patients", func(r chi.Router) {
		r.Use(security.JWTMiddleware([]byte(cfg.JWT.SecretKey), jwtRepo, jwtService, cfg.Admin.AdminToken))
		r.Get("/", h.ListPatients)
		r.Post("/", h.CreatePatient)

		r.Route("/{patient_uuid}", func(r chi.Router) {
			r.Get("/", h.GetPatient)
			r.Post("/share", h.SharePatient)
			r.Delete("/", h.DeletePatient)
		})
	})

	// доступ по коду из письма, без Bearer-токена
	r.Post("/api/public/patients/{patient_uuid}/access", h.AccessPatient)
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
