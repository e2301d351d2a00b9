package reconciler

import "fmt"

// Stage is the step a run is in, or stopped in when it failed.
type Stage int

const (
	StageIdle Stage = iota
	StageFetching
	StageNormalizing
	StageLoading
	StageMerging
	StageDeriving
	StagePersisting
	StageDone
)

var stageNames = []string{
	"idle",
	"fetching",
	"normalizing",
	"loading",
	"merging",
	"deriving",
	"persisting",
	"done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(text))
}
