package pipeline

// Status is the lesson generation state machine. Lessons move strictly
// forward through the stage states; failed is reachable from any
// non-terminal state and, like completed, is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScripting  Status = "scripting"
	StatusTTS        Status = "tts"
	StatusLipSync    Status = "lipsync"
	StatusRendering  Status = "rendering"
	StatusTranscript Status = "transcript"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusOrder = map[Status]int{
	StatusPending:    0,
	StatusScripting:  1,
	StatusTTS:        2,
	StatusLipSync:    3,
	StatusRendering:  4,
	StatusTranscript: 5,
	StatusCompleted:  6,
}

// Reported completion percentage on entering each state.
var statusProgress = map[Status]int{
	StatusPending:    0,
	StatusScripting:  5,
	StatusTTS:        15,
	StatusLipSync:    40,
	StatusRendering:  70,
	StatusTranscript: 90,
	StatusCompleted:  100,
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal move: one step
// forward along the stage order, or to failed from any non-terminal state.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fo, ok1 := statusOrder[from]
	to2, ok2 := statusOrder[to]
	if !ok1 || !ok2 {
		return false
	}
	return to2 == fo+1
}

// ProgressFor returns the percentage reported on entering a state. Failed
// keeps whatever progress the lesson had reached.
func ProgressFor(s Status) int {
	if p, ok := statusProgress[s]; ok {
		return p
	}
	return 0
}
