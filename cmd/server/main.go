package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rapid100/triage/internal/annotate"
	"github.com/rapid100/triage/internal/cleanup"
	"github.com/rapid100/triage/internal/handlers"
	"github.com/rapid100/triage/internal/session"
	"github.com/rapid100/triage/internal/store"
	"github.com/rapid100/triage/internal/types"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Transcription struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
	} `yaml:"transcription"`

	Pipeline struct {
		StageTimeoutMs     int `yaml:"stage_timeout_ms"`
		IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
		MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
		FragmentMs         int `yaml:"fragment_ms"`
		MaxCallMinutes     int `yaml:"max_call_minutes"`
	} `yaml:"pipeline"`

	Storage struct {
		CallLog       string `yaml:"call_log"`
		Database      string `yaml:"database"`
		RecordingsDir string `yaml:"recordings_dir"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

func main() {
	// Load configuration
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// Transcription service
	transcriber, err := annotate.NewTranscriber(annotate.TranscriberConfig{
		Provider: config.Transcription.Provider,
		APIKey:   os.Getenv("OPENAI_API_KEY"),
		Model:    config.Transcription.Model,
	})
	if err != nil {
		log.Fatalf("Failed to initialize transcriber: %v", err)
	}

	// Annotation chain
	chain := &annotate.Chain{
		Transcriber:  transcriber,
		Classifier:   annotate.KeywordClassifier{},
		Severity:     annotate.KeywordSeverity{},
		Locator:      annotate.RegexLocator{},
		Explainer:    annotate.KeywordExplainer{},
		StageTimeout: time.Duration(config.Pipeline.StageTimeoutMs) * time.Millisecond,
	}

	// Call record stores
	callLog, err := store.NewCallLog(config.Storage.CallLog)
	if err != nil {
		log.Fatalf("Failed to initialize call log: %v", err)
	}

	db, err := store.NewRecordDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	recordings, err := store.NewRecordingStore(config.Storage.RecordingsDir)
	if err != nil {
		log.Fatalf("Failed to initialize recording store: %v", err)
	}

	// Google Drive archive (optional - may fail if credentials not set up)
	var archiver *store.DriveArchiver
	if _, err := os.Stat(config.GoogleDrive.CredentialsFile); err == nil {
		archiver, err = store.NewDriveArchiver(
			config.GoogleDrive.CredentialsFile,
			config.GoogleDrive.TokenFile,
			config.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive archive not available: %v", err)
			archiver = nil
		} else {
			log.Println("Google Drive archive enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - archiving locally only")
	}

	// Session manager; persistence on finalize is best-effort across all
	// backends, a failed write never fails the finalize.
	manager := session.NewManager(session.Config{
		Chain:            chain,
		MaxConcurrent:    config.Pipeline.MaxConcurrentCalls,
		IdleTimeout:      time.Duration(config.Pipeline.IdleTimeoutSeconds) * time.Second,
		FragmentDuration: time.Duration(config.Pipeline.FragmentMs) * time.Millisecond,
		MaxCallDuration:  time.Duration(config.Pipeline.MaxCallMinutes) * time.Minute,
		OnFinalize: func(snap types.CallSnapshot, pcm []byte) {
			if err := callLog.Append(snap); err != nil {
				log.Printf("Call log write failed for %s: %v", snap.CallID, err)
			}
			if err := db.Append(snap); err != nil {
				log.Printf("Database write failed for %s: %v", snap.CallID, err)
			}
			if len(pcm) > 0 {
				if path, err := recordings.Save(snap.CallID, pcm); err != nil {
					log.Printf("Recording save failed for %s: %v", snap.CallID, err)
				} else {
					log.Printf("Recording saved: %s", path)
				}
			}
			if archiver != nil {
				if err := archiver.Archive(snap); err != nil {
					log.Printf("WARNING: Drive archive failed for %s, record kept locally", snap.CallID)
				}
			}
		},
	})

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		recordings.Dir(),
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	streamHandler := handlers.NewStreamHandler(manager)
	callsHandler := handlers.NewCallsHandler(db)
	simulateHandler := handlers.NewSimulateHandler(chain)
	recordingsHandler := handlers.NewRecordingsHandler(recordings)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"service":    "emergency call triage",
			"live_calls": manager.Live(),
		})
	})

	app.Get("/ws/call/:call_id", websocket.New(streamHandler.Handle))

	app.Get("/api/calls", callsHandler.List)
	app.Get("/api/calls/:id", callsHandler.Get)
	app.Post("/api/classify", simulateHandler.Classify)
	app.Get("/api/simulate/:scenario", simulateHandler.Handle)
	app.Get("/api/recordings", recordingsHandler.List)
	app.Get("/recordings/:filename", recordingsHandler.Serve)

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   GET  /ws/call/:call_id - WebSocket call streaming")
	log.Println("   GET  /api/calls        - List finalized calls")
	log.Println("   GET  /api/calls/:id    - Get one finalized call")
	log.Println("   POST /api/classify     - Classify text")
	log.Println("   GET  /api/simulate/:scenario - Simulate a call scenario")
	log.Println("   GET  /api/recordings   - List call recordings")
	log.Println("   GET  /logs             - View server logs")
	log.Println("   GET  /health           - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
