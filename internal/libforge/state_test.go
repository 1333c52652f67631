package libforge

import (
	"testing"
	"time"
)

func testTask() Task {
	return Task{
		ID:                 1,
		Slug:               "test-task",
		Title:              "Test Task",
		Description:        "Description",
		SortOrder:          1,
		Scores:             "5:10:50|10:20:35",
		Status:             StatusChallengeAwaits,
		AbandonedDeduction: 5,
		Validators:         []string{"tcp_listening:int(8080)"},
	}
}

func TestCachedTaskFromAPI(t *testing.T) {
	task := testTask()
	cached := CachedTaskFromAPI(&task)

	if cached.ID != 1 || cached.Slug != "test-task" {
		t.Errorf("got %+v", cached)
	}
	// max points come from the first scoring tier
	if cached.Points != 50 {
		t.Errorf("points = %d, want 50", cached.Points)
	}
	if len(cached.Validators) != 1 {
		t.Errorf("validators = %v", cached.Validators)
	}
}

func TestCachedTaskFromAPIBadScores(t *testing.T) {
	task := testTask()
	task.Scores = "garbage"
	cached := CachedTaskFromAPI(&task)
	if cached.Points != 0 {
		t.Errorf("points = %d, want 0", cached.Points)
	}
}

func TestComputeChecksumDeterministic(t *testing.T) {
	fetched, _ := time.Parse(time.RFC3339, "2026-01-01T00:00:00Z")
	project := &ActiveProject{Slug: "test", Name: "Test Project", FetchedAt: fetched}

	c1 := computeChecksum(project, "test-secret-token-123")
	c2 := computeChecksum(project, "test-secret-token-123")
	if c1 != c2 {
		t.Errorf("checksums differ: %s vs %s", c1, c2)
	}
}

func TestChecksumChangesWithData(t *testing.T) {
	now := time.Now().UTC()
	p1 := &ActiveProject{Slug: "test1", Name: "Test Project", FetchedAt: now}
	p2 := &ActiveProject{Slug: "test2", Name: "Test Project", FetchedAt: now}

	if computeChecksum(p1, "token") == computeChecksum(p2, "token") {
		t.Error("different data should produce different checksums")
	}
}

func TestChecksumChangesWithToken(t *testing.T) {
	project := &ActiveProject{Slug: "test", Name: "Test Project", FetchedAt: time.Now().UTC()}
	if computeChecksum(project, "token1") == computeChecksum(project, "token2") {
		t.Error("different tokens should produce different checksums")
	}
}

func TestActiveProjectStats(t *testing.T) {
	project := ActiveProject{
		Slug: "test",
		Name: "Test",
		Tasks: []CachedTask{
			{ID: 1, Slug: "t1", Points: 25, Status: StatusChallengeCompleted},
			{ID: 2, Slug: "t2", Points: 50, Status: StatusChallengeAwaits},
		},
	}
	if project.TotalPoints() != 75 {
		t.Errorf("total points = %d", project.TotalPoints())
	}
	if project.CompletedCount() != 1 {
		t.Errorf("completed = %d", project.CompletedCount())
	}
}

func TestStateSaveLoadRoundtrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	token := "test-secret-token-123"

	state := &State{}
	task := testTask()
	state.SetActive("http-server", "Build Your Own Server", "/tmp/ws", []Task{task})
	if err := state.Save(token); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadState(token)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ActiveProject == nil {
		t.Fatal("active project should survive a roundtrip")
	}
	if loaded.ActiveProject.Slug != "http-server" {
		t.Errorf("slug = %q", loaded.ActiveProject.Slug)
	}
	if len(loaded.ActiveProject.Tasks) != 1 || loaded.ActiveProject.Tasks[0].Points != 50 {
		t.Errorf("tasks = %+v", loaded.ActiveProject.Tasks)
	}
}

func TestStateLoadWrongTokenClearsState(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	state := &State{}
	state.SetActive("http-server", "Server", "/tmp/ws", nil)
	if err := state.Save("token-a"); err != nil {
		t.Fatal(err)
	}

	// a different token invalidates the checksum
	loaded, err := LoadState("token-b")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ActiveProject != nil {
		t.Error("mismatched checksum should clear state")
	}
}

func TestStateLoadMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loaded, err := LoadState("token")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ActiveProject != nil {
		t.Error("missing file should yield empty state")
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	state := &State{}
	state.SetActive("p", "P", ".", []Task{testTask()})
	state.UpdateTaskStatus(1, StatusChallengeCompleted)
	if state.ActiveProject.Tasks[0].Status != StatusChallengeCompleted {
		t.Errorf("status = %q", state.ActiveProject.Tasks[0].Status)
	}

	// unknown id is a no-op
	state.UpdateTaskStatus(99, StatusChallenged)
	if state.ActiveProject.Tasks[0].Status != StatusChallengeCompleted {
		t.Error("unknown id should not modify tasks")
	}
}

func TestClearActive(t *testing.T) {
	state := &State{}
	state.SetActive("p", "P", ".", nil)
	state.ClearActive()
	if state.Active() != nil {
		t.Error("active project should be cleared")
	}
}
