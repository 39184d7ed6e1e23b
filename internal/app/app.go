package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	redisclient "github.com/courseframe/courseframe-backend/internal/clients/redis"
	"github.com/courseframe/courseframe-backend/internal/db"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/server"
	"github.com/courseframe/courseframe-backend/internal/sse"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *sse.SSEHub
	sseBus   redisclient.SSEBus
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()

	ssehub := sse.NewSSEHub(log)

	var ssebus redisclient.SSEBus
	if cfg.UseRedisBus {
		ssebus, err = redisclient.NewSSEBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis SSE bus: %w", err)
		}
	}

	reposet := wireRepos(theDB, log)
	clients := wireMediaClients(log, cfg)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, ssehub, ssebus)
	handlerset := wireHandlers(log, serviceset, ssehub)

	router := server.NewRouter(server.RouterConfig{
		CourseGenHandler:  handlerset.CourseGen,
		CourseHandler:     handlerset.Courses,
		InstructorHandler: handlerset.Instructors,
		SSEHandler:        handlerset.SSE,
		AllowOrigins:      cfg.AllowOrigins,
	})

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		SSEHub:   ssehub,
		sseBus:   ssebus,
	}, nil
}

// Start launches the background pieces: the generation worker, the Redis
// forwarder, and the instructor catalog seed.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.InstructorSeedPath != "" {
		if _, err := os.Stat(a.Cfg.InstructorSeedPath); err == nil {
			if _, err := a.Services.Instructors.SeedFromFile(ctx, a.Cfg.InstructorSeedPath); err != nil {
				a.Log.Warn("Instructor seed failed", "error", err)
			}
		} else {
			a.Log.Warn("Instructor seed file not found; catalog left as-is", "path", a.Cfg.InstructorSeedPath)
		}
	}

	if a.sseBus != nil {
		if err := a.sseBus.StartForwarder(ctx, func(m sse.SSEMessage) {
			a.SSEHub.Broadcast(m)
		}); err != nil {
			a.Log.Warn("Redis SSE forwarder failed to start", "error", err)
		}
	}

	a.Services.Generation.StartWorker(ctx)
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.sseBus != nil {
		_ = a.sseBus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
