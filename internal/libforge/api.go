package libforge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/inconshreveable/log15.v2"
)

// Task statuses as reported by the platform.
const (
	StatusChallengeAwaits    = "challenge_awaits"
	StatusChallenged         = "challenged"
	StatusChallengeCompleted = "challenge_completed"
)

// Task outcomes reported back after a validator run.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)

// User is the authenticated platform user.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProjectStats carries per-project attempt counters.
type ProjectStats struct {
	AttemptedCount int `json:"attempted_count"`
	SucceedCount   int `json:"succeed_count"`
	FailedCount    int `json:"failed_count"`
}

// Project is a coding challenge project with its tasks.
type Project struct {
	ID               int          `json:"id"`
	Slug             string       `json:"slug"`
	Name             string       `json:"name"`
	ShortDescription string       `json:"short_description"`
	IsPublished      bool         `json:"is_published"`
	IsFeatured       bool         `json:"is_featured"`
	ShowTasks        bool         `json:"show_tasks"`
	Stats            ProjectStats `json:"stats"`
	PublishedAt      *string      `json:"published_at"`
	TasksCount       int          `json:"tasks_count"`
	Tasks            []Task       `json:"tasks"`
}

// Hint is a task hint; locked hints carry no text.
type Hint struct {
	UUID     string `json:"uuid"`
	Text     string `json:"text"`
	IsLocked bool   `json:"is_locked"`
}

// Task is one challenge step with its validator specs and optional
// setup/cleanup shell hooks.
type Task struct {
	ID                 int      `json:"id"`
	UUID               string   `json:"uuid"`
	Slug               string   `json:"slug"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	SortOrder          int      `json:"sort_order"`
	Scores             string   `json:"scores"`
	Status             string   `json:"status"`
	IsFree             bool     `json:"is_free"`
	IsLocked           bool     `json:"is_locked"`
	AbandonedDeduction int      `json:"abandoned_deduction"`
	PointsEarned       int      `json:"points_earned"`
	Hints              []Hint   `json:"hints"`
	Validators         []string `json:"validators"`
	Prologue           []string `json:"prologue"`
	Epilogue           []string `json:"epilogue"`
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusChallengeCompleted
}

// SubmitAttemptRequest reports one validator run for a task.
type SubmitAttemptRequest struct {
	ProjectSlug        string  `json:"project_slug"`
	TaskID             int     `json:"task_id"`
	TaskOutcome        string  `json:"task_outcome"`
	PointsAchieved     *int    `json:"points_achieved"`
	TaskOutcomeContext *string `json:"task_outcome_context"`
}

// SubmitAttemptResponse is the platform's acknowledgment.
type SubmitAttemptResponse struct {
	Data AttemptData `json:"data"`
}

type AttemptData struct {
	IsReattempt    bool   `json:"is_reattempt"`
	TaskOutcome    string `json:"task_outcome"`
	PointsAchieved int    `json:"points_achieved"`
}

type apiError struct {
	Message string `json:"message"`
}

// Client talks to the platform API. All requests carry the bearer
// token; error responses surface the platform's message when one is
// present.
type Client struct {
	BaseURL    string
	APIVersion string

	token      string
	httpClient *http.Client
	logger     log15.Logger
}

// NewClient builds a client from config.
func NewClient(cfg *Config) *Client {
	return &Client{
		BaseURL:    cfg.BaseURL(),
		APIVersion: "v1",
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log15.New("module", "api"),
	}
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/api/%s/%s", c.BaseURL, c.APIVersion, path)
}

// Me fetches the authenticated user, which doubles as a token check.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProjectBySlug fetches a project including its tasks.
func (c *Client) ProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	var project Project
	if err := c.get(ctx, "projects/"+slug, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// SubmitAttempt reports a task run to the platform.
func (c *Client) SubmitAttempt(ctx context.Context, req *SubmitAttemptRequest) (*SubmitAttemptResponse, error) {
	var resp SubmitAttemptResponse
	if err := c.post(ctx, "projects/attempts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token == "" {
		return errors.New("no auth token configured")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("api request", "method", req.Method, "url", req.URL.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(content, &apiErr) == nil && apiErr.Message != "" {
			return errors.New(apiErr.Message)
		}
		return fmt.Errorf("%s", string(content))
	}
	if err := json.Unmarshal(content, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
