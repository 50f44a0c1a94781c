// Package lifecycle sequences start/stop/update operations against the
// container engine. One verb per invocation, no internal concurrency, no
// retries: engine failures propagate verbatim and re-invocation is the
// operator's job.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"time"

	"github.com/fusionkit/fusionctl/internal/core/deploy"
	"github.com/fusionkit/fusionctl/internal/core/render"
	"github.com/fusionkit/fusionctl/internal/shell/engine"
	"github.com/fusionkit/fusionctl/internal/shell/state"
	"github.com/fusionkit/fusionctl/internal/shell/store"
	"github.com/fusionkit/fusionctl/internal/shell/term"
)

const (
	// stopGrace is the bounded grace period passed to tear-down.
	stopGrace = 30 * time.Second
	// logTail bounds the backlog when attaching to the log stream.
	logTail = 200
	// historyLimit is how many actions the history verb shows.
	historyLimit = 20

	// DefaultRequiredGroup is the group membership start demands.
	DefaultRequiredGroup = "docker"
	// DefaultServiceAccount owns the managed directories when running as root.
	DefaultServiceAccount = "fusionctl"
)

// History is the slice of the store the dispatcher uses.
type History interface {
	RecordAction(ctx context.Context, verb, outcome, detail string) error
	RecentActions(ctx context.Context, limit int) ([]store.Action, error)
}

// Dispatcher routes one verb through the ensure-dirs / sync-definition /
// engine-call state machine.
type Dispatcher struct {
	cfg            deploy.Config
	dirs           state.Dirs
	eng            engine.Engine
	ui             *term.Printer
	logger         *slog.Logger
	history        History // nil disables recording
	requiredGroup  string
	serviceAccount string
	stdout         io.Writer

	// Collaborator seams, overridden in tests.
	groupNames func() ([]string, error)
	pingDaemon func(context.Context) error
	probe      func(context.Context, string) error
	ensureDirs func(state.Dirs, string) error
	syncFile   func(string, []byte) (bool, error)
	deployed   func(string) bool
}

// Params wires a Dispatcher.
type Params struct {
	Config         deploy.Config
	Dirs           state.Dirs
	Engine         engine.Engine
	Printer        *term.Printer
	Logger         *slog.Logger
	History        History
	RequiredGroup  string
	ServiceAccount string
}

// NewDispatcher creates a Dispatcher bound to the real filesystem, engine
// and user database.
func NewDispatcher(p Params) *Dispatcher {
	if p.Printer == nil {
		p.Printer = term.NewPrinter()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.RequiredGroup == "" {
		p.RequiredGroup = DefaultRequiredGroup
	}
	if p.ServiceAccount == "" {
		p.ServiceAccount = DefaultServiceAccount
	}
	return &Dispatcher{
		cfg:            p.Config,
		dirs:           p.Dirs,
		eng:            p.Engine,
		ui:             p.Printer,
		logger:         p.Logger,
		history:        p.History,
		requiredGroup:  p.RequiredGroup,
		serviceAccount: p.ServiceAccount,
		stdout:         os.Stdout,
		groupNames:     currentGroupNames,
		pingDaemon:     engine.PingDaemon,
		probe:          probeHTTP,
		ensureDirs:     state.EnsureDirs,
		syncFile:       state.SyncFile,
		deployed:       state.Deployed,
	}
}

// recordedVerbs are the state-changing verbs written to the history.
var recordedVerbs = map[Verb]bool{
	VerbStart:   true,
	VerbStop:    true,
	VerbRestart: true,
	VerbPull:    true,
	VerbUpdate:  true,
	VerbShell:   true,
}

// Dispatch runs one verb and returns the process exit code.
func (d *Dispatcher) Dispatch(ctx context.Context, verb Verb) int {
	code := d.run(ctx, verb)
	d.record(ctx, verb, code)
	return code
}

func (d *Dispatcher) run(ctx context.Context, verb Verb) int {
	switch verb {
	case VerbStart:
		return d.start(ctx)
	case VerbStop:
		return d.stop(ctx)
	case VerbRestart:
		return d.restart(ctx)
	case VerbStatus:
		return d.status(ctx)
	case VerbLogs:
		return d.logs(ctx)
	case VerbPull:
		return d.pull(ctx)
	case VerbUpdate:
		return d.update(ctx)
	case VerbShell:
		return d.shell(ctx)
	case VerbConfig:
		return d.printConfig()
	case VerbHistory:
		return d.printHistory(ctx)
	case VerbHelp:
		fmt.Fprint(d.stdout, Usage)
		return 0
	default:
		d.ui.Error("unknown command %q", string(verb))
		fmt.Fprint(d.stdout, Usage)
		return 1
	}
}

func (d *Dispatcher) record(ctx context.Context, verb Verb, code int) {
	if d.history == nil || !recordedVerbs[verb] {
		return
	}
	outcome := "success"
	if code != 0 {
		outcome = "failure"
	}
	if err := d.history.RecordAction(ctx, string(verb), outcome, fmt.Sprintf("exit=%d", code)); err != nil {
		d.logger.Warn("failed to record action", "verb", verb, "error", err)
	}
}

// =============================================================================
// Shared Steps
// =============================================================================

// requireGroup checks the invoking user's group list. Missing membership is
// fatal with a remediation message, not retried.
func (d *Dispatcher) requireGroup() int {
	groups, err := d.groupNames()
	if err != nil {
		d.ui.Error("cannot determine group membership: %v", err)
		return 1
	}
	for _, g := range groups {
		if g == d.requiredGroup {
			return 0
		}
	}
	d.ui.Error("you are not in the %q group; run 'sudo usermod -aG %s $USER' and log in again", d.requiredGroup, d.requiredGroup)
	return 1
}

// prepare runs ensure-dirs and sync-definition. Filesystem failures abort
// here, before any engine interaction.
func (d *Dispatcher) prepare() int {
	if err := d.ensureDirs(d.dirs, d.serviceAccount); err != nil {
		d.ui.Error("cannot prepare directories: %v", err)
		return 1
	}

	definition := render.Render(d.cfg)
	if err := render.Lint(definition); err != nil {
		d.ui.Error("refusing to deploy: %v", err)
		return 1
	}

	changed, err := d.syncFile(d.dirs.ComposeFile(), definition)
	if err != nil {
		d.ui.Error("cannot sync definition: %v", err)
		return 1
	}
	if changed {
		d.ui.Info("Configuration updated")
	} else {
		d.logger.Debug("definition unchanged", "path", d.dirs.ComposeFile())
	}
	return 0
}

// preflight verifies the daemon answers before compose is invoked.
func (d *Dispatcher) preflight(ctx context.Context) int {
	if err := d.pingDaemon(ctx); err != nil {
		d.ui.Error("%v", err)
		return 1
	}
	return 0
}

// =============================================================================
// Verbs
// =============================================================================

func (d *Dispatcher) start(ctx context.Context) int {
	if code := d.requireGroup(); code != 0 {
		return code
	}
	if code := d.prepare(); code != 0 {
		return code
	}
	if code := d.preflight(ctx); code != 0 {
		return code
	}
	if err := d.eng.Up(ctx); err != nil {
		d.ui.Error("start failed: %v", err)
		return engine.ExitCode(err, 1)
	}
	d.ui.Success("Service is up: %s", d.cfg.URL())
	if !d.cfg.LoopbackOnly() {
		d.ui.Warn("bound to %s; the service is reachable from other hosts", d.cfg.BindAddress)
	}
	return 0
}

func (d *Dispatcher) stop(ctx context.Context) int {
	if !d.deployed(d.dirs.ComposeFile()) {
		// Stopping something absent is a no-op by design.
		d.ui.Warn("Not running")
		return 0
	}
	if err := d.eng.Down(ctx, stopGrace); err != nil {
		d.ui.Error("stop failed: %v", err)
		return engine.ExitCode(err, 1)
	}
	d.ui.Success("Service stopped")
	return 0
}

func (d *Dispatcher) restart(ctx context.Context) int {
	if code := d.stop(ctx); code != 0 {
		return code
	}
	return d.start(ctx)
}

func (d *Dispatcher) status(ctx context.Context) int {
	if !d.deployed(d.dirs.ComposeFile()) {
		d.ui.Error("Not deployed; run 'fusionctl start' first")
		return 1
	}
	if err := d.eng.Status(ctx); err != nil {
		d.ui.Error("status failed: %v", err)
		return engine.ExitCode(err, 1)
	}
	if err := d.probe(ctx, d.cfg.ProbeURL()); err != nil {
		d.ui.Warn("Service unhealthy: %v", err)
	} else {
		d.ui.Success("Service healthy: %s", d.cfg.URL())
	}
	return 0
}

func (d *Dispatcher) logs(ctx context.Context) int {
	if !d.deployed(d.dirs.ComposeFile()) {
		d.ui.Error("Not deployed; run 'fusionctl start' first")
		return 1
	}
	d.ui.Info("Following logs (last %d lines); Ctrl-C to detach", logTail)
	if err := d.eng.Logs(ctx, logTail); err != nil {
		d.ui.Error("logs failed: %v", err)
		return engine.ExitCode(err, 1)
	}
	return 0
}

func (d *Dispatcher) pull(ctx context.Context) int {
	if code := d.prepare(); code != 0 {
		return code
	}
	if code := d.preflight(ctx); code != 0 {
		return code
	}
	if err := d.eng.Pull(ctx); err != nil {
		d.ui.Error("pull failed: %v", err)
		return engine.ExitCode(err, 1)
	}
	d.ui.Success("Image up to date: %s", d.cfg.ImageRef())
	return 0
}

// update is pull followed by restart. A pull failure short-circuits: the
// service keeps running on the previous image and the failure surfaces
// directly.
func (d *Dispatcher) update(ctx context.Context) int {
	if code := d.pull(ctx); code != 0 {
		d.ui.Error("update aborted: image pull failed")
		return code
	}
	return d.restart(ctx)
}

func (d *Dispatcher) shell(ctx context.Context) int {
	if !d.deployed(d.dirs.ComposeFile()) {
		d.ui.Error("Not deployed; run 'fusionctl start' first")
		return 1
	}
	if err := d.eng.Exec(ctx, deploy.ServiceName, "bash"); err != nil {
		d.ui.Error("shell failed: %v", err)
		return engine.ExitCode(err, 1)
	}
	return 0
}

func (d *Dispatcher) printConfig() int {
	definition := render.Render(d.cfg)
	if _, err := d.stdout.Write(definition); err != nil {
		d.ui.Error("write failed: %v", err)
		return 1
	}
	return 0
}

func (d *Dispatcher) printHistory(ctx context.Context) int {
	if d.history == nil {
		d.ui.Warn("history store disabled")
		return 0
	}
	actions, err := d.history.RecentActions(ctx, historyLimit)
	if err != nil {
		d.ui.Error("history unavailable: %v", err)
		return 1
	}
	if len(actions) == 0 {
		d.ui.Info("No recorded actions")
		return 0
	}
	for _, a := range actions {
		fmt.Fprintf(d.stdout, "%s  %-8s %-8s %s\n", a.CreatedAt.Format(time.RFC3339), a.Verb, a.Outcome, a.Detail)
	}
	return 0
}

// =============================================================================
// Group Membership
// =============================================================================

// currentGroupNames resolves the invoking user's group list to names.
// Unresolvable group IDs are skipped.
func currentGroupNames() ([]string, error) {
	u, err := user.Current()
	if err != nil {
		return nil, err
	}
	gids, err := u.GroupIds()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(gids))
	for _, gid := range gids {
		group, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		names = append(names, group.Name)
	}
	return names, nil
}
