package app

import (
	"strings"
	"time"

	mediaclient "github.com/courseframe/courseframe-backend/internal/clients/media"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
	"github.com/courseframe/courseframe-backend/internal/utils"
)

type Config struct {
	Port               string
	AllowOrigins       []string
	InstructorSeedPath string
	UseFakeMediaStack  bool
	UseRedisBus        bool
	Media              mediaclient.Config
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	seedPath := utils.GetEnv("INSTRUCTOR_SEED_PATH", "config/instructors.yaml", log)
	mediaMode := strings.ToLower(utils.GetEnv("MEDIA_CLIENTS_MODE", "http", log))
	useRedis := strings.ToLower(utils.GetEnv("SSE_BUS", "none", log)) == "redis"

	var origins []string
	if raw := strings.TrimSpace(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)); raw != "" {
		origins = strings.Split(raw, ",")
	}

	mediaCfg := mediaclient.DefaultConfig()
	mediaCfg.Speech = loadStageConfig(log, "SPEECH", mediaCfg.Speech)
	mediaCfg.LipSync = loadStageConfig(log, "LIPSYNC", mediaCfg.LipSync)
	mediaCfg.Render = loadStageConfig(log, "RENDER", mediaCfg.Render)
	mediaCfg.Transcript = loadStageConfig(log, "TRANSCRIPT", mediaCfg.Transcript)
	mediaCfg.Spec = media.DefaultSpec()

	return Config{
		Port:               port,
		AllowOrigins:       origins,
		InstructorSeedPath: seedPath,
		UseFakeMediaStack:  mediaMode == "fake",
		UseRedisBus:        useRedis,
		Media:              mediaCfg,
	}
}

func loadStageConfig(log *logger.Logger, prefix string, defaults mediaclient.StageConfig) mediaclient.StageConfig {
	cfg := defaults
	cfg.BaseURL = utils.GetEnv(prefix+"_API_URL", "", log)
	cfg.APIKey = utils.GetEnv(prefix+"_API_KEY", "", log)
	if sec := utils.GetEnvAsInt(prefix+"_POLL_INTERVAL_SEC", 0, log); sec > 0 {
		cfg.PollInterval = time.Duration(sec) * time.Second
	}
	if n := utils.GetEnvAsInt(prefix+"_MAX_POLL_ATTEMPTS", 0, log); n > 0 {
		cfg.MaxPollAttempts = n
	}
	return cfg
}
