package media

// Canonical stage names used in errors, logs and job records.
const (
	StageScripting  = "scripting"
	StageSpeech     = "speech"
	StageLipSync    = "lipsync"
	StageRender     = "render"
	StageTranscript = "transcript"
)
