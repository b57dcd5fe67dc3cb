package entity

// Stage is one step of lesson generation, named as clients see it.
type Stage string

const (
	StageUpload             Stage = "upload"
	StageExtracting         Stage = "extracting"
	StageNarrating          Stage = "narrating"
	StageExtractingKeywords Stage = "extracting_keywords"
	StageSearchingVideo     Stage = "searching_video"
	StageSynthesizingAudio  Stage = "synthesizing_audio"
	StageSelection          Stage = "selection"
	StageError              Stage = "error"
	// StageCancelled is only ever pushed, never stored.
	StageCancelled Stage = "cancelled"
)

var checkpoints = map[Stage]int{
	StageUpload:             0,
	StageExtracting:         10,
	StageNarrating:          40,
	StageExtractingKeywords: 55,
	StageSearchingVideo:     70,
	StageSynthesizingAudio:  80,
	StageSelection:          100,
	StageError:              100,
	StageCancelled:          0,
}

// Checkpoint is the fixed progress percentage reported when s starts.
func (s Stage) Checkpoint() int {
	return checkpoints[s]
}

func (s Stage) Terminal() bool {
	return s == StageSelection || s == StageError || s == StageCancelled
}
