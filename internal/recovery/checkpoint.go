package recovery

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"
)

// checkpointLimit bounds disk usage from snapshot files.
const checkpointLimit = 5

// Checkpoint is a resumable position in a run. The snapshot is diagnostic
// only; index-based recovery works without it.
type Checkpoint struct {
	ActionIndex  int
	WindowID     int64
	CreatedAt    time.Time
	SnapshotPath string // empty when the snapshot capture failed
}

// CheckpointStore keeps the most recent checkpoints, evicting the oldest and
// deleting its snapshot file on overflow.
type CheckpointStore struct {
	dir         string
	logger      zerolog.Logger
	checkpoints []Checkpoint
}

func NewCheckpointStore(dir string, logger zerolog.Logger) *CheckpointStore {
	return &CheckpointStore{dir: dir, logger: logger}
}

// Create records a checkpoint at the given action index. The snapshot save is
// best effort: a failure leaves SnapshotPath empty and the checkpoint valid.
func (s *CheckpointStore) Create(actionIndex int, windowID int64, snapshot image.Image) Checkpoint {
	cp := Checkpoint{
		ActionIndex: actionIndex,
		WindowID:    windowID,
		CreatedAt:   time.Now(),
	}

	if snapshot != nil && s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o700); err == nil {
			path := filepath.Join(s.dir,
				fmt.Sprintf("checkpoint_%d_%d.png", actionIndex, cp.CreatedAt.UnixNano()))
			if err := robotgo.Save(snapshot, path); err == nil {
				cp.SnapshotPath = path
			} else {
				s.logger.Warn().Err(err).Msg("failed to save checkpoint snapshot")
			}
		} else {
			s.logger.Warn().Err(err).Msg("failed to create checkpoint directory")
		}
	}

	s.checkpoints = append(s.checkpoints, cp)
	if len(s.checkpoints) > checkpointLimit {
		old := s.checkpoints[0]
		s.checkpoints = s.checkpoints[1:]
		s.removeSnapshot(old)
	}

	s.logger.Debug().Int("action_index", actionIndex).Int("stored", len(s.checkpoints)).
		Msg("checkpoint created")
	return cp
}

// Latest returns the most recent checkpoint, or nil when none exist.
func (s *CheckpointStore) Latest() *Checkpoint {
	if len(s.checkpoints) == 0 {
		return nil
	}
	cp := s.checkpoints[len(s.checkpoints)-1]
	return &cp
}

// Before returns the most recent checkpoint whose action index is strictly
// less than index, or nil when no such checkpoint exists.
func (s *CheckpointStore) Before(index int) *Checkpoint {
	for i := len(s.checkpoints) - 1; i >= 0; i-- {
		if s.checkpoints[i].ActionIndex < index {
			cp := s.checkpoints[i]
			return &cp
		}
	}
	return nil
}

// Len returns the number of retained checkpoints.
func (s *CheckpointStore) Len() int {
	return len(s.checkpoints)
}

// Indexes returns the retained checkpoints' action indexes, oldest first.
func (s *CheckpointStore) Indexes() []int {
	out := make([]int, len(s.checkpoints))
	for i, cp := range s.checkpoints {
		out[i] = cp.ActionIndex
	}
	return out
}

// Cleanup deletes all remaining snapshot files.
func (s *CheckpointStore) Cleanup() {
	for _, cp := range s.checkpoints {
		s.removeSnapshot(cp)
	}
	s.checkpoints = nil
}

func (s *CheckpointStore) removeSnapshot(cp Checkpoint) {
	if cp.SnapshotPath == "" {
		return
	}
	if err := os.Remove(cp.SnapshotPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Str("path", cp.SnapshotPath).Err(err).
			Msg("failed to remove checkpoint snapshot")
	}
}
