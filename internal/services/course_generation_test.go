package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/courseframe/courseframe-backend/internal/media"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
	"github.com/courseframe/courseframe-backend/internal/types"
)

func TestExpandOutlineAssignsContiguousIndexes(t *testing.T) {
	jobID := uuid.New()
	outline := jobOutline{
		Modules: []jobOutlineModule{
			{Title: "Basics", Lessons: []jobOutlineLesson{
				{Title: "L1", Content: "content one"},
				{Title: "L2", Content: "content two"},
			}},
			{Title: "Advanced", Lessons: []jobOutlineLesson{
				{Title: "L3", Content: "content three", Script: "explicit script"},
			}},
		},
	}

	rows := expandOutline(jobID, outline)
	if len(rows) != 3 {
		t.Fatalf("rows: want=3 got=%d", len(rows))
	}
	for i, row := range rows {
		if row.LessonIndex != i {
			t.Fatalf("row %d lesson index: want=%d got=%d", i, i, row.LessonIndex)
		}
		if row.JobID != jobID {
			t.Fatalf("row %d carries wrong job id", i)
		}
		if row.Status != string(pipeline.StatusPending) {
			t.Fatalf("row %d status: want=pending got=%s", i, row.Status)
		}
	}
	if rows[2].Script != "explicit script" {
		t.Fatalf("explicit script lost: %q", rows[2].Script)
	}
	if rows[0].Script != "content one" {
		t.Fatalf("derived script: want content, got %q", rows[0].Script)
	}
}

func TestPrepareScript(t *testing.T) {
	cases := []struct {
		script, content, want string
	}{
		{"narrate this", "source", "narrate this"},
		{"  ", "source text", "source text"},
		{"", "", ""},
		{"", "  padded  ", "padded"},
	}
	for _, c := range cases {
		if got := prepareScript(c.script, c.content); got != c.want {
			t.Fatalf("prepareScript(%q, %q): want=%q got=%q", c.script, c.content, c.want, got)
		}
	}
}

func TestLessonResultFromRowRoundTrip(t *testing.T) {
	outputs := pipeline.StageOutputs{
		Speech: &media.SpeechOutput{
			AudioURL:    "memory://speech/a.mp3",
			DurationSec: 12,
			TimingMarks: []media.TimingMark{{Label: "w", StartMS: 0, EndMS: 12000}},
		},
		Render: &media.RenderOutput{
			VideoURL:      "memory://render/v.mp4",
			DurationSec:   12,
			Width:         1920,
			Height:        1080,
			FrameRate:     25,
			FileSizeBytes: 500,
		},
	}
	raw, err := json.Marshal(outputs)
	if err != nil {
		t.Fatalf("marshal outputs: %v", err)
	}

	row := &types.LessonJob{
		LessonIndex:  3,
		Title:        "L4",
		Status:       string(pipeline.StatusCompleted),
		Progress:     100,
		DurationSec:  12,
		StageOutputs: datatypes.JSON(raw),
	}
	lr, err := lessonResultFromRow(row)
	if err != nil {
		t.Fatalf("lessonResultFromRow: %v", err)
	}
	if lr.LessonIndex != 3 || lr.Status != pipeline.StatusCompleted {
		t.Fatalf("result header: %+v", lr)
	}
	if lr.Outputs.Render == nil || lr.Outputs.Render.VideoURL != "memory://render/v.mp4" {
		t.Fatalf("render output lost: %+v", lr.Outputs)
	}
	if lr.Outputs.LipSync != nil {
		t.Fatalf("absent stage should stay nil")
	}
}

func TestLessonResultFromRowBadJSON(t *testing.T) {
	row := &types.LessonJob{
		LessonIndex:  0,
		StageOutputs: datatypes.JSON([]byte("{broken")),
	}
	if _, err := lessonResultFromRow(row); err == nil {
		t.Fatalf("expected decode error")
	}
}
