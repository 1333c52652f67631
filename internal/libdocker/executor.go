package libdocker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	docker "github.com/fsouza/go-dockerclient"
	"github.com/pkg/errors"
	"gopkg.in/inconshreveable/log15.v2"
)

const (
	dockerfileBaseURL  = "https://raw.githubusercontent.com/luxforge/forgectl/master/docker"
	defaultTimeoutSecs = 120

	// name of the Dockerfile temporarily placed in the build context
	contextDockerfile = ".forgectl.Dockerfile"
)

// ExecResult holds the outcome of one container run. A non-zero exit
// code is a result, not an error; errors are reserved for the docker
// machinery itself failing.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *ExecResult) Success() bool {
	return r.ExitCode == 0
}

// Executor builds and runs validation containers. Dockerfiles for
// local images are fetched from a fixed upstream location and cached
// under the user's config directory.
type Executor struct {
	client   *docker.Client
	cacheDir string
	logger   log15.Logger
}

// NewExecutor connects to the local docker daemon and prepares the
// Dockerfile cache directory.
func NewExecutor(logger log15.Logger) (*Executor, error) {
	if logger == nil {
		logger = log15.Root()
	}
	client, err := docker.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("can't connect to docker: %v", err)
	}
	env, err := client.Version()
	if err != nil {
		return nil, fmt.Errorf("docker not available: %v", err)
	}
	logger.Debug("docker daemon online", "version", env.Get("Version"))

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "could not determine home directory")
	}
	cacheDir := filepath.Join(home, ".forgectl", "docker_cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache dir")
	}
	return &Executor{client: client, cacheDir: cacheDir, logger: logger}, nil
}

// FetchDockerfile downloads a Dockerfile by name and caches it on
// disk. The returned path points into the cache directory.
func (e *Executor) FetchDockerfile(ctx context.Context, name string) (string, error) {
	url := dockerfileBaseURL + "/" + name
	cachePath := filepath.Join(e.cacheDir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch Dockerfile '%s'", name)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch Dockerfile '%s'", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Dockerfile '%s' not found (status %d)", name, resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read Dockerfile content")
	}
	if err := os.WriteFile(cachePath, content, 0644); err != nil {
		return "", errors.Wrap(err, "failed to cache Dockerfile")
	}
	return cachePath, nil
}

// Run builds (or pulls) the registered image and runs it with the
// workspace mounted at /app. Built images are removed afterwards.
func (e *Executor) Run(ctx context.Context, img *RegisteredImage, workspace string, timeoutSecs int64) (*ExecResult, error) {
	workspacePath, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve workspace '%s': %v", workspace, err)
	}
	if _, err := os.Stat(workspacePath); err != nil {
		return nil, fmt.Errorf("cannot resolve workspace '%s': %v", workspace, err)
	}

	if img.Remote {
		if err := e.pull(ctx, img.Path); err != nil {
			return nil, err
		}
		return e.runContainer(ctx, img.Path, workspacePath, timeoutSecs)
	}

	dockerfilePath, err := e.FetchDockerfile(ctx, img.Path)
	if err != nil {
		return nil, err
	}

	tag := fmt.Sprintf("forgectl-%s:%s",
		strings.ReplaceAll(strings.ToLower(img.Path), ".", "-"),
		time.Now().Format("20060102-150405"))

	e.logger.Info("building image", "dockerfile", img.Path, "tag", tag)
	buildResult, err := e.build(ctx, dockerfilePath, workspacePath, tag)
	if err != nil {
		return nil, err
	}
	if !buildResult.Success() {
		return buildResult, nil
	}
	defer e.client.RemoveImageExtended(tag, docker.RemoveImageOptions{Force: true})

	e.logger.Info("running validation container", "image", tag)
	return e.runContainer(ctx, tag, workspacePath, timeoutSecs)
}

// build copies the cached Dockerfile into the workspace so it is part
// of the build context, then builds the image.
func (e *Executor) build(ctx context.Context, dockerfilePath, workspace, tag string) (*ExecResult, error) {
	content, err := os.ReadFile(dockerfilePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cached Dockerfile")
	}
	contextPath := filepath.Join(workspace, contextDockerfile)
	if err := os.WriteFile(contextPath, content, 0644); err != nil {
		return nil, errors.Wrap(err, "failed to stage Dockerfile in workspace")
	}
	defer os.Remove(contextPath)

	var output bytes.Buffer
	opts := docker.BuildImageOptions{
		Context:      ctx,
		Name:         tag,
		ContextDir:   workspace,
		Dockerfile:   contextDockerfile,
		OutputStream: &output,
	}
	if err := e.client.BuildImage(opts); err != nil {
		// a failed build is a validation outcome, not an
		// infrastructure error
		return &ExecResult{ExitCode: 1, Stderr: fmt.Sprintf("%v\n%s", err, output.String())}, nil
	}
	return &ExecResult{ExitCode: 0, Stdout: output.String()}, nil
}

func (e *Executor) pull(ctx context.Context, ref string) error {
	repo, tag := ref, "latest"
	if idx := strings.LastIndex(ref, ":"); idx > strings.LastIndex(ref, "/") {
		repo, tag = ref[:idx], ref[idx+1:]
	}
	e.logger.Info("pulling image", "repository", repo, "tag", tag)
	opts := docker.PullImageOptions{
		Context:    ctx,
		Repository: repo,
		Tag:        tag,
	}
	if err := e.client.PullImage(opts, docker.AuthConfiguration{}); err != nil {
		return fmt.Errorf("failed to pull image '%s': %v", ref, err)
	}
	return nil
}

func (e *Executor) runContainer(ctx context.Context, image, workspace string, timeoutSecs int64) (*ExecResult, error) {
	if timeoutSecs <= 0 {
		timeoutSecs = defaultTimeoutSecs
	}

	c, err := e.client.CreateContainer(docker.CreateContainerOptions{
		Context: ctx,
		Name:    "forgectl-run-" + time.Now().Format("20060102-150405"),
		Config: &docker.Config{
			Image:      image,
			WorkingDir: "/app",
		},
		HostConfig: &docker.HostConfig{
			Binds:       []string{workspace + ":/app"},
			NetworkMode: "host",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %v", err)
	}
	defer e.client.RemoveContainer(docker.RemoveContainerOptions{ID: c.ID, Force: true})

	if err := e.client.StartContainerWithContext(c.ID, nil, ctx); err != nil {
		return nil, fmt.Errorf("docker run failed: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()
	exitCode, err := e.client.WaitContainerWithContext(c.ID, waitCtx)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("container timed out after %ds", timeoutSecs)
		}
		return nil, fmt.Errorf("docker run failed: %v", err)
	}

	var stdout, stderr bytes.Buffer
	logOpts := docker.LogsOptions{
		Context:      ctx,
		Container:    c.ID,
		OutputStream: &stdout,
		ErrorStream:  &stderr,
		Stdout:       true,
		Stderr:       true,
	}
	if err := e.client.Logs(logOpts); err != nil {
		return nil, fmt.Errorf("failed to read container logs: %v", err)
	}

	return &ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
