package media

// Output contracts for the four external generation stages. Every stage
// client parses its remote payload into one of these before handing it to
// the pipeline, and every shape is validated against the floor the final
// course video has to meet.

// Spec is the target the rendered output must satisfy.
type Spec struct {
	MinWidth     int
	MinHeight    int
	MinFrameRate float64
	MaxFrameRate float64

	TargetWidth     int
	TargetHeight    int
	TargetFrameRate float64

	// Max allowed drift between a video and its driving audio.
	SyncToleranceMS float64
}

func DefaultSpec() Spec {
	return Spec{
		MinWidth:        1920,
		MinHeight:       1080,
		MinFrameRate:    24,
		MaxFrameRate:    30,
		TargetWidth:     1920,
		TargetHeight:    1080,
		TargetFrameRate: 25,
		SyncToleranceMS: 100,
	}
}

// TimingMark is a timestamped speech unit (phoneme/viseme) used to drive
// lip-sync generation. Times are milliseconds from the start of the audio.
type TimingMark struct {
	Label   string  `json:"label"`
	StartMS float64 `json:"start_ms"`
	EndMS   float64 `json:"end_ms"`
}

type SpeechOutput struct {
	AudioURL    string       `json:"audio_url"`
	DurationSec float64      `json:"duration_sec"`
	TimingMarks []TimingMark `json:"timing_marks"`
}

type LipSyncOutput struct {
	VideoURL    string  `json:"video_url"`
	DurationSec float64 `json:"duration_sec"`
	FrameRate   float64 `json:"frame_rate"`
}

type RenderOutput struct {
	VideoURL      string  `json:"video_url"`
	ThumbnailURL  string  `json:"thumbnail_url,omitempty"`
	DurationSec   float64 `json:"duration_sec"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FrameRate     float64 `json:"frame_rate"`
	FileSizeBytes int64   `json:"file_size_bytes"`
}

// TranscriptWord carries word-level timestamps (milliseconds) plus the
// recognizer's confidence. A blank Word is a silence marker; it keeps its
// position in the sequence but carries no timing guarantees.
type TranscriptWord struct {
	Word       string  `json:"word"`
	StartMS    float64 `json:"start_ms"`
	EndMS      float64 `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

type TranscriptOutput struct {
	Text        string           `json:"text"`
	SubtitleURL string           `json:"subtitle_url"`
	WordsURL    string           `json:"words_url,omitempty"`
	DurationSec float64          `json:"duration_sec"`
	Words       []TranscriptWord `json:"words"`
}
