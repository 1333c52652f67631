// forgectl is the command line companion for the coding challenge
// platform: it authenticates, activates projects, runs task validators
// against the user's workspace and reports outcomes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/goccy/go-yaml"
	"gopkg.in/inconshreveable/log15.v2"

	"github.com/luxforge/forgectl/internal/libcheck"
	"github.com/luxforge/forgectl/internal/libdocker"
	"github.com/luxforge/forgectl/internal/libforge"
)

var loglevelFlag = flag.Int("loglevel", 3, "Log level to use for displaying system events")

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: forgectl [options] <command> [command options]

Commands:
  auth      store the platform auth token
  project   activate a project and cache its tasks
  status    show cached project progress
  run       run a task's validators and submit the outcome
  check     run validator specs locally without submitting
  validate  parse a validator spec and show its structure

Options:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	log15.Root().SetHandler(log15.LvlFilterHandler(log15.Lvl(*loglevelFlag), log15.StreamHandler(os.Stderr, log15.TerminalFormat())))

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "auth":
		err = cmdAuth(ctx, args[1:])
	case "project":
		err = cmdProject(ctx, args[1:])
	case "status":
		err = cmdStatus(args[1:])
	case "run":
		err = cmdRun(ctx, args[1:])
	case "check":
		err = cmdCheck(ctx, args[1:])
	case "validate":
		err = cmdValidate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log15.Crit(err.Error())
		os.Exit(1)
	}
}

// cmdAuth verifies the token against the API and stores it.
func cmdAuth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	token := fs.String("token", "", "Platform auth token")
	fs.Parse(args)

	if *token == "" {
		return fmt.Errorf("missing -token")
	}
	cfg, err := libforge.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Token = *token

	client := libforge.NewClient(cfg)
	user, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("token verification failed: %v", err)
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("authenticated as %s <%s>\n", user.Name, user.Email)
	return nil
}

// cmdProject fetches a project by slug and caches it as active.
func cmdProject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	slug := fs.String("slug", "", "Project slug to activate")
	workspace := fs.String("workspace", ".", "Workspace directory containing the solution")
	fs.Parse(args)

	if *slug == "" {
		return fmt.Errorf("missing -slug")
	}
	cfg, err := libforge.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasToken() {
		return fmt.Errorf("not authenticated. run: forgectl auth -token $TOKEN")
	}

	client := libforge.NewClient(cfg)
	project, err := client.ProjectBySlug(ctx, *slug)
	if err != nil {
		return fmt.Errorf("failed to fetch project '%s': %v", *slug, err)
	}

	state, err := libforge.LoadState(cfg.Token)
	if err != nil {
		return err
	}
	state.SetActive(project.Slug, project.Name, *workspace, project.Tasks)
	if err := state.Save(cfg.Token); err != nil {
		return err
	}
	fmt.Printf("activated project %q with %d tasks\n", project.Name, len(project.Tasks))
	return nil
}

// cmdStatus prints the cached project progress.
func cmdStatus(args []string) error {
	cfg, err := libforge.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasToken() {
		return fmt.Errorf("not authenticated. run: forgectl auth -token $TOKEN")
	}
	state, err := libforge.LoadState(cfg.Token)
	if err != nil {
		return err
	}
	project := state.Active()
	if project == nil {
		fmt.Println("no active project. run: forgectl project -slug <SLUG>")
		return nil
	}
	fmt.Printf("%s (%s)\n", project.Name, project.Slug)
	fmt.Printf("  workspace: %s\n", project.Workspace)
	fmt.Printf("  fetched:   %s\n", project.FetchedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  progress:  %d/%d tasks, %d points total\n",
		project.CompletedCount(), len(project.Tasks), project.TotalPoints())
	for i, task := range project.Tasks {
		marker := " "
		if task.Status == libforge.StatusChallengeCompleted {
			marker = "x"
		}
		fmt.Printf("  [%s] %02d. %s (%d pts)\n", marker, i+1, task.Slug, task.Points)
	}
	return nil
}

// cmdRun runs one task's validators and submits the outcome.
func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	taskRef := fs.String("task", "", "Task slug or number (1-based)")
	fs.Parse(args)

	if *taskRef == "" {
		return fmt.Errorf("missing -task")
	}
	cfg, err := libforge.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasToken() {
		return fmt.Errorf("not authenticated. run: forgectl auth -token $TOKEN")
	}
	state, err := libforge.LoadState(cfg.Token)
	if err != nil {
		return err
	}
	project := state.Active()
	if project == nil {
		return fmt.Errorf("no active project. run: forgectl project -slug <SLUG>")
	}

	client := libforge.NewClient(cfg)
	fresh, err := client.ProjectBySlug(ctx, project.Slug)
	if err != nil {
		return fmt.Errorf("failed to fetch project '%s': %v", project.Slug, err)
	}
	state.RefreshTasks(fresh.Tasks)

	task, err := findTask(fresh.Tasks, *taskRef)
	if err != nil {
		return err
	}

	runner := libforge.NewRunner(newFactory(project.Workspace, ""), client)
	results, err := runner.RunTask(ctx, project.Slug, task, state, cfg.Token)
	if err != nil {
		return err
	}
	libforge.ReportResults(os.Stdout, fmt.Sprintf("Task %s", task.Slug), results)
	if !results.AllPassed() {
		for _, hint := range task.Hints {
			if !hint.IsLocked && hint.Text != "" {
				fmt.Printf("hint: %s\n", hint.Text)
			}
		}
	}
	return nil
}

// checksFile is the local check definition format for `check -file`.
type checksFile struct {
	Workspace  string   `yaml:"workspace"`
	Runtime    string   `yaml:"runtime"`
	Validators []string `yaml:"validators"`
}

// cmdCheck runs validator specs locally without submitting anything.
func cmdCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	file := fs.String("file", "", "YAML file with validator specs to run")
	spec := fs.String("spec", "", "Single validator spec to run")
	workspace := fs.String("workspace", ".", "Workspace directory containing the solution")
	runtime := fs.String("runtime", "", "Project runtime (go or rust), detected when empty")
	dump := fs.Bool("dump", false, "Dump the constructed validators instead of running them")
	fs.Parse(args)

	var specs []string
	ws, rt := *workspace, *runtime
	switch {
	case *file != "":
		content, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("failed to read checks file: %v", err)
		}
		var checks checksFile
		if err := yaml.Unmarshal(content, &checks); err != nil {
			return fmt.Errorf("failed to parse checks file: %v", err)
		}
		specs = checks.Validators
		if checks.Workspace != "" {
			ws = checks.Workspace
		}
		if checks.Runtime != "" {
			rt = checks.Runtime
		}
	case *spec != "":
		specs = []string{*spec}
	default:
		return fmt.Errorf("one of -file or -spec is required")
	}

	factory := newFactory(ws, rt)
	if *dump {
		for _, s := range specs {
			v, err := factory.Create(s)
			if err != nil {
				fmt.Printf("%s: %v\n", s, err)
				continue
			}
			spew.Dump(v)
		}
		return nil
	}

	runner := libforge.NewRunner(factory, nil)
	results := runner.RunValidators(ctx, specs)
	libforge.ReportResults(os.Stdout, "Local checks", results)
	if !results.AllPassed() {
		os.Exit(1)
	}
	return nil
}

// cmdValidate parses a spec and prints its structure, for debugging
// validator definitions.
func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	spec := fs.String("spec", "", "Validator spec to parse")
	fs.Parse(args)

	if *spec == "" {
		return fmt.Errorf("missing -spec")
	}
	parsed, err := libcheck.ParseValidator(*spec)
	if err != nil {
		return fmt.Errorf("invalid spec: %v", err)
	}
	fmt.Printf("name: %s\n", parsed.Name)
	for i, p := range parsed.Params {
		fmt.Printf("  param %d: %s\n", i, p.String())
	}
	return nil
}

// newFactory wires the validator factory with the workspace, runtime
// and the docker validator constructor.
func newFactory(workspace, runtime string) *libcheck.Factory {
	if runtime == "" {
		if detected, ok := libcheck.DetectRuntime(workspace); ok {
			runtime = detected.String()
		}
	}
	return &libcheck.Factory{
		Workspace: workspace,
		Runtime:   runtime,
		Docker: func(imageKey, expectation string, timeoutSecs int64) (libcheck.Validator, error) {
			return libdocker.NewValidator(imageKey, expectation, timeoutSecs, workspace)
		},
	}
}

// findTask resolves a task by 1-based number or by slug.
func findTask(tasks []libforge.Task, ref string) (*libforge.Task, error) {
	var num int
	if _, err := fmt.Sscanf(ref, "%d", &num); err == nil && fmt.Sprintf("%d", num) == trimLeadingZeros(ref) {
		if num < 1 || num > len(tasks) {
			return nil, fmt.Errorf("task #%d not found. valid range: 1-%d", num, len(tasks))
		}
		return &tasks[num-1], nil
	}
	for i := range tasks {
		if tasks[i].Slug == ref {
			return &tasks[i], nil
		}
	}
	var listing string
	for i, t := range tasks {
		listing += fmt.Sprintf("  %02d. %s\n", i+1, t.Slug)
	}
	return nil, fmt.Errorf("task '%s' not found. use task number or slug:\n%s", ref, listing)
}

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
