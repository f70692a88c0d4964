package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/tavaresmirako/petservice/internal/config"
	"github.com/tavaresmirako/petservice/internal/handlers"
	"github.com/tavaresmirako/petservice/internal/middleware"
	"github.com/tavaresmirako/petservice/internal/realtime"
	"github.com/tavaresmirako/petservice/internal/repository"
	"github.com/tavaresmirako/petservice/internal/services"
	sessionws "github.com/tavaresmirako/petservice/internal/websocket"
)

func RegisterRoutes(
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	broker *realtime.Broker,
	log zerolog.Logger,
) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	providerRepo := repository.NewProviderRepository(db)
	petRepo := repository.NewPetRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	hub := sessionws.NewHub(log)
	go hub.Run()

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, providerRepo, cfg.JWTSecret)
	profileService := services.NewProfileService(profileRepo)
	profileHandler := handlers.NewProfileHandler(profileService)
	providerHandler := handlers.NewProviderHandler(providerRepo, profileRepo)
	petHandler := handlers.NewPetHandler(petRepo)
	requestService := services.NewRequestService(requestRepo, userRepo, petRepo)
	requestHandler := handlers.NewRequestHandler(requestService, hub)
	reviewService := services.NewReviewService(db, requestRepo, reviewRepo)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	chatService := services.NewChatService(db, requestRepo, messageRepo)
	chatHandler := handlers.NewChatHandler(chatService, hub, realtime.SessionDeps{
		Broker:   broker,
		Requests: requestRepo,
		Messages: messageRepo,
		Profiles: profileRepo,
		Log:      log,
	}, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	profiles := authProtected.Group("/profiles")
	profiles.Get("/me", profileHandler.GetOwn)
	profiles.Put("/me", profileHandler.Update)
	profiles.Get("/:id", profileHandler.GetDisplay)

	providers := authProtected.Group("/providers")
	providers.Put("/profile", providerHandler.Update)
	providers.Post("/services", providerHandler.CreateService)
	providers.Delete("/services/:id", providerHandler.DeleteService)
	providers.Get("/:id", providerHandler.Get)
	providers.Get("/:id/services", providerHandler.ListServices)
	providers.Get("/:id/reviews", reviewHandler.ListByProvider)

	pets := authProtected.Group("/pets")
	pets.Post("", petHandler.Create)
	pets.Get("", petHandler.List)
	pets.Get("/:id", petHandler.Get)
	pets.Put("/:id", petHandler.Update)
	pets.Delete("/:id", petHandler.Delete)

	requests := authProtected.Group("/requests")
	requests.Post("", requestHandler.Create)
	requests.Get("", requestHandler.List)
	requests.Get("/:id", requestHandler.Get)
	requests.Put("/:id/status", requestHandler.UpdateStatus)
	requests.Delete("/:id", requestHandler.Delete)
	requests.Get("/:id/messages", chatHandler.GetMessages)
	requests.Post("/:id/messages", chatHandler.SendMessage)
	requests.Post("/:id/review", reviewHandler.Create)

	messages := authProtected.Group("/messages")
	messages.Delete("/:id", chatHandler.DeleteMessage)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
