package libforge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/inconshreveable/log15.v2"
)

const stateFileName = "state.json"

// salt for HMAC key derivation, combined with the user token
const hmacSalt = "forgectl-state-integrity-v1"

// CachedTask is the slice of task data kept for offline access.
type CachedTask struct {
	ID         int      `json:"id"`
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Points     int      `json:"points"`
	Status     string   `json:"status"`
	SortOrder  int      `json:"sort_order"`
	Validators []string `json:"validators"`
}

// CachedTaskFromAPI extracts the cacheable fields from an API task.
// The scores string has the form "attempts:minutes:points|..."; the
// first tier's points are the task's base points.
func CachedTaskFromAPI(task *Task) CachedTask {
	points := 0
	firstTier := strings.SplitN(task.Scores, "|", 2)[0]
	parts := strings.Split(firstTier, ":")
	if len(parts) >= 3 {
		if p, err := strconv.Atoi(parts[2]); err == nil {
			points = p
		}
	}
	return CachedTask{
		ID:         task.ID,
		Slug:       task.Slug,
		Title:      task.Title,
		Points:     points,
		Status:     task.Status,
		SortOrder:  task.SortOrder,
		Validators: task.Validators,
	}
}

// ActiveProject is the project the user is currently working on.
type ActiveProject struct {
	Slug      string       `json:"slug"`
	Name      string       `json:"name"`
	Workspace string       `json:"workspace"`
	FetchedAt time.Time    `json:"fetched_at"`
	Tasks     []CachedTask `json:"tasks"`
}

func (p *ActiveProject) TotalPoints() int {
	total := 0
	for _, t := range p.Tasks {
		total += t.Points
	}
	return total
}

func (p *ActiveProject) CompletedCount() int {
	count := 0
	for _, t := range p.Tasks {
		if t.Status == StatusChallengeCompleted {
			count++
		}
	}
	return count
}

// on-disk format, carries the integrity checksum
type stateFile struct {
	ActiveProject *ActiveProject `json:"active_project"`
	Checksum      string         `json:"checksum"`
}

// State caches the active project between runs. The file is protected
// by an HMAC keyed on the auth token: a tampered or foreign state file
// is discarded rather than trusted.
type State struct {
	ActiveProject *ActiveProject
}

// LoadState reads the state file and verifies its checksum. A missing
// file or a checksum mismatch yields empty state, forcing a re-fetch.
func LoadState(token string) (*State, error) {
	path, err := statePath()
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read state file")
	}

	var file stateFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse state file")
	}

	expected := computeChecksum(file.ActiveProject, token)
	if file.Checksum != expected {
		log15.Warn("state file checksum mismatch, clearing state")
		empty := &State{}
		if err := empty.Save(token); err != nil {
			return nil, err
		}
		return empty, nil
	}
	return &State{ActiveProject: file.ActiveProject}, nil
}

// Save writes the state with a fresh checksum.
func (s *State) Save(token string) error {
	path, err := statePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	file := stateFile{
		ActiveProject: s.ActiveProject,
		Checksum:      computeChecksum(s.ActiveProject, token),
	}
	content, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize state")
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return errors.Wrap(err, "failed to write state file")
	}
	log15.Debug("state saved", "path", path)
	return nil
}

// SetActive caches a project and its tasks as the active project.
func (s *State) SetActive(slug, name, workspace string, tasks []Task) {
	cached := make([]CachedTask, len(tasks))
	for i := range tasks {
		cached[i] = CachedTaskFromAPI(&tasks[i])
	}
	s.ActiveProject = &ActiveProject{
		Slug:      slug,
		Name:      name,
		Workspace: workspace,
		FetchedAt: time.Now().UTC(),
		Tasks:     cached,
	}
}

func (s *State) ClearActive() {
	s.ActiveProject = nil
}

func (s *State) Active() *ActiveProject {
	return s.ActiveProject
}

// RefreshTasks replaces the cached tasks with fresh API data.
func (s *State) RefreshTasks(tasks []Task) {
	if s.ActiveProject == nil {
		return
	}
	cached := make([]CachedTask, len(tasks))
	for i := range tasks {
		cached[i] = CachedTaskFromAPI(&tasks[i])
	}
	s.ActiveProject.Tasks = cached
	s.ActiveProject.FetchedAt = time.Now().UTC()
}

// UpdateTaskStatus records a new status for one task, typically after
// a submission.
func (s *State) UpdateTaskStatus(taskID int, newStatus string) {
	if s.ActiveProject == nil {
		return
	}
	for i := range s.ActiveProject.Tasks {
		if s.ActiveProject.Tasks[i].ID == taskID {
			s.ActiveProject.Tasks[i].Status = newStatus
			return
		}
	}
}

func computeChecksum(project *ActiveProject, token string) string {
	key := token + hmacSalt
	mac := hmac.New(sha256.New, []byte(key))
	data, _ := json.Marshal(project)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func statePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, configDirName, stateFileName), nil
}
