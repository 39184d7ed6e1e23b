package app

import (
	mediaclient "github.com/courseframe/courseframe-backend/internal/clients/media"
	"github.com/courseframe/courseframe-backend/internal/logger"
)

type MediaClients struct {
	Speech     mediaclient.SpeechClient
	LipSync    mediaclient.LipSyncClient
	Render     mediaclient.RenderClient
	Transcript mediaclient.TranscriptClient
}

// wireMediaClients builds the four stage clients. Fake mode gives a fully
// local, deterministic stack for development without the remote services.
func wireMediaClients(log *logger.Logger, cfg Config) MediaClients {
	if cfg.UseFakeMediaStack {
		log.Warn("Using fake media clients; no remote stage services will be contacted")
		lipSync := mediaclient.NewFakeLipSyncClient(cfg.Media.Spec)
		render := mediaclient.NewFakeRenderClient(cfg.Media.Spec)
		lipSync.PairWithRender(render)
		return MediaClients{
			Speech:     mediaclient.NewFakeSpeechClient(),
			LipSync:    lipSync,
			Render:     render,
			Transcript: mediaclient.NewFakeTranscriptClient(),
		}
	}
	return MediaClients{
		Speech:     mediaclient.NewSpeechClient(log, cfg.Media.Speech),
		LipSync:    mediaclient.NewLipSyncClient(log, cfg.Media.LipSync, cfg.Media.Spec),
		Render:     mediaclient.NewRenderClient(log, cfg.Media.Render, cfg.Media.Spec),
		Transcript: mediaclient.NewTranscriptClient(log, cfg.Media.Transcript),
	}
}
