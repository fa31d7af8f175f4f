package main

import (
	"log"
	"os"

	_ "paintpos/api/swagger" // swagger docs
	"paintpos/internal/database"
	"paintpos/internal/handler"
	"paintpos/internal/middleware"
	"paintpos/internal/repository"
	"paintpos/internal/service"
	"paintpos/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Paint Store POS API
// @version         1.0
// @description     Point-of-sale and inventory API for a paint store: sales, products, raw materials, statistics.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "paintpos"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	userService := service.NewUserService(userRepo)
	inventoryService := service.NewInventoryService(productRepo, auditRepo, txManager)
	saleService := service.NewSaleService(saleRepo, productRepo, customerRepo, auditRepo, txManager, wsHub)
	materialService := service.NewMaterialService(materialRepo, auditRepo, txManager, wsHub)
	customerService := service.NewCustomerService(customerRepo, auditRepo)
	statisticsService := service.NewStatisticsService(statsRepo)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	saleHandler := handler.NewSaleHandler(saleService)
	materialHandler := handler.NewMaterialHandler(materialService)
	customerHandler := handler.NewCustomerHandler(customerService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	saleHandler.RegisterRoutes(router.Group(""))
	materialHandler.RegisterRoutes(router.Group(""))
	customerHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
