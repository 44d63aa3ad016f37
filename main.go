package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"degree-service/internal/db"
	"degree-service/internal/event"
	"degree-service/internal/handlers"
	"degree-service/internal/repository"
	"degree-service/internal/service"
	"degree-service/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(mongoURI)

	// Redis cache for degree tree reads (optional)
	var cache *redis.Client
	if redisURI := os.Getenv("REDIS_URI"); redisURI != "" {
		opts, err := redis.ParseURL(redisURI)
		if err != nil {
			log.Fatalf("Invalid REDIS_URI: %v", err)
		}
		cache = redis.NewClient(opts)
	} else {
		log.Println("Redis not configured, degree tree cache disabled")
	}

	// RabbitMQ event publisher (optional)
	rabbitURL := os.Getenv("RABBITMQ_URI")
	eventExchange := os.Getenv("RABBITMQ_EXCHANGE")
	var publisher *event.EventPublisher
	if rabbitURL != "" && eventExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(rabbitURL, eventExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, learning events will not be published")
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	database := db.Client.Database("degree_service")

	// Content tree oracle
	degreeRepo := repository.NewDegreeRepository(database)
	degreeService := service.NewDegreeService(degreeRepo, cache)
	degreeHandler := handlers.NewDegreeHandler(degreeService)

	// Progress mirrors
	progressRepo := repository.NewProgressRepository(database)
	if err := progressRepo.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Failed to create progress indexes: %v", err)
	}
	progressService := service.NewProgressService(progressRepo, degreeService)
	progressHandler := handlers.NewProgressHandler(progressService)

	// Score sheets
	sheetRepo := repository.NewScoreSheetRepository(database)
	if err := sheetRepo.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Failed to create score sheet indexes: %v", err)
	}
	scoringService := service.NewScoringService(sheetRepo, degreeService)

	// Attachments
	fileStore, err := storage.NewGridFSStore(database)
	if err != nil {
		log.Fatalf("Failed to open attachment bucket: %v", err)
	}
	fileHandler := handlers.NewFileHandler(fileStore)
	sheetHandler := handlers.NewScoreSheetHandler(scoringService, fileStore)

	// Public routes - degree catalog and attachments
	publicDegree := r.Group("/public/learning/degree")
	{
		publicDegree.GET("/", func(c *gin.Context) {
			degreeHandler.ListDegrees(c)
			if publisher != nil {
				publisher.Publish("learning.degree.list", nil)
			}
		})
		publicDegree.GET("/:id", func(c *gin.Context) {
			degreeHandler.GetDegree(c)
			if publisher != nil {
				publisher.Publish("learning.degree.get", gin.H{"id": c.Param("id")})
			}
		})
	}
	r.GET("/public/learning/files/:id", fileHandler.Download)

	setupProtectedRoutes(r, progressHandler, sheetHandler, fileHandler, publisher)

	port := os.Getenv("PORT")
	if port == "" {
		port = "6680"
	}
	r.Run(":" + port)
}

func setupProtectedRoutes(
	r *gin.Engine,
	progressHandler *handlers.ProgressHandler,
	sheetHandler *handlers.ScoreSheetHandler,
	fileHandler *handlers.FileHandler,
	publisher *event.EventPublisher,
) {
	protected := r.Group("/protected/learning")

	// Gateway injects X-User-ID; everything below requires it.
	protected.Use(func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	})

	// === PROGRESS TRACKING ===

	protected.POST("/progress/:degreeId/lessons/:lessonId/complete", func(c *gin.Context) {
		progressHandler.CompleteLesson(c)
		if publisher != nil {
			publisher.Publish("learning.lesson.completed", gin.H{
				"user_id":   c.GetHeader("X-User-ID"),
				"degree_id": c.Param("degreeId"),
				"lesson_id": c.Param("lessonId"),
				"timestamp": time.Now(),
			})
		}
	})

	protected.GET("/progress/:degreeId", func(c *gin.Context) {
		progressHandler.GetProgress(c)
		if publisher != nil {
			publisher.Publish("learning.progress.viewed", gin.H{
				"user_id":   c.GetHeader("X-User-ID"),
				"degree_id": c.Param("degreeId"),
				"timestamp": time.Now(),
			})
		}
	})

	// === TEST ATTEMPTS AND GRADING ===

	protected.POST("/scoresheet/:degreeId/attempts", func(c *gin.Context) {
		sheetHandler.SubmitAttempt(c)
		if publisher != nil {
			publisher.Publish("learning.attempt.submitted", gin.H{
				"user_id":   c.GetHeader("X-User-ID"),
				"degree_id": c.Param("degreeId"),
				"timestamp": time.Now(),
			})
		}
	})

	protected.GET("/scoresheet/:degreeId", func(c *gin.Context) {
		sheetHandler.GetScoreSheet(c)
	})

	protected.GET("/scoresheet/:degreeId/all", func(c *gin.Context) {
		sheetHandler.ListDegreeScoreSheets(c)
	})

	protected.PUT("/scoresheet/:userId/:degreeId/marks", func(c *gin.Context) {
		sheetHandler.UpdateMarks(c)
		if publisher != nil {
			publisher.Publish("learning.marks.updated", gin.H{
				"grader_id": c.GetHeader("X-User-ID"),
				"user_id":   c.Param("userId"),
				"degree_id": c.Param("degreeId"),
				"timestamp": time.Now(),
			})
		}
	})

	// === ATTACHMENTS ===

	protected.POST("/files", fileHandler.Upload)
}
