package steamclient

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

// Options configures a steamcmd Adapter, mirroring the SteamConfig block
// of the process config.
type Options struct {
	BinaryPath      string
	AppID           string
	Username        string
	Password        string
	FetchTimeout    time.Duration
	VerifyTimeout   time.Duration
	SessionCacheTTL time.Duration
}

// Adapter drives the external steamcmd binary and turns its stdout into
// the typed AdapterEvent stream consumed by the Orchestrator. It never
// calls back into orchestration code directly (§9 Design Notes): the
// coupling runs one way, over the returned channel.
type Adapter struct {
	opts    Options
	session *session

	// locator resolves the produced content's directory once steamcmd
	// exits, using the same canonical-then-fallback search the Workspace
	// Manager applies elsewhere, so the two never drift apart (§4.1's
	// filesystem verification step reuses §4.2/§4.3's search exactly).
	locator interfaces.WorkspaceManager
}

var _ interfaces.Adapter = (*Adapter)(nil)

// New constructs an Adapter with a fresh, unverified session. locator is
// consulted after every Fetch to verify the external tool actually wrote
// content, superseding any textual success marker.
func New(opts Options, locator interfaces.WorkspaceManager) *Adapter {
	return &Adapter{
		opts:    opts,
		session: newSession(opts.SessionCacheTTL),
		locator: locator,
	}
}

// Close releases the session cache's background goroutine.
func (a *Adapter) Close() {
	a.session.close()
}

// SessionValid reports whether the cached session is still within its
// verification window.
func (a *Adapter) SessionValid() bool {
	return a.session.valid()
}

// VerifySession runs a lightweight steamcmd login-and-quit to confirm the
// configured credentials still work, without downloading anything.
func (a *Adapter) VerifySession(ctx context.Context, username, password string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.VerifyTimeout)
	defer cancel()

	args := loginArgs(username, password)
	args = append(args, "+quit")

	cmd := a.command(ctx, args)
	out, err := cmd.CombinedOutput()

	c := newClassification()
	for _, line := range strings.Split(string(out), "\n") {
		c.feedLine(line)
	}

	switch {
	case c.kind == interfaces.OutcomeNeedsSecondFactor:
		return false, models.NewAppError(models.ErrSecondFactorRequired, c.detail)
	case c.kind == interfaces.OutcomeSessionExpired:
		a.session.markInvalid()
		return false, nil
	case err != nil && c.kind == "":
		return false, models.WrapAppError(models.ErrTransientFailure, "verify session", err)
	case c.kind != "" || !c.sawSuccess:
		return false, nil
	}

	a.session.markVerified(username)
	return true, nil
}

// AuthenticateWithSecondFactor retries the login with a Steam Guard or
// mobile authenticator code appended after the password, then caches the
// resulting session on success.
func (a *Adapter) AuthenticateWithSecondFactor(ctx context.Context, username, password, code string) error {
	ctx, cancel := context.WithTimeout(ctx, a.opts.VerifyTimeout)
	defer cancel()

	args := loginArgs(username, password)
	if password != "" && code != "" {
		args = append(args, code)
	}
	args = append(args, "+quit")

	cmd := a.command(ctx, args)
	out, err := cmd.CombinedOutput()
	c := newClassification()
	for _, line := range strings.Split(string(out), "\n") {
		c.feedLine(line)
	}
	if c.kind != "" {
		a.session.markInvalid()
		return fmt.Errorf("second-factor authentication failed: %s", c.detail)
	}
	if err != nil {
		return fmt.Errorf("second-factor authentication: %w", err)
	}
	a.session.markVerified(username)
	return nil
}

// Fetch launches one steamcmd invocation for the requested workshop item
// and streams progress, raw output lines, and a terminal outcome over the
// returned channel. The channel is always closed exactly once, after the
// terminal AdapterOutcome event (§4.1 edge case E1).
func (a *Adapter) Fetch(ctx context.Context, req interfaces.FetchRequest) <-chan interfaces.AdapterEvent {
	events := make(chan interfaces.AdapterEvent, 32)

	go func() {
		defer close(events)

		ctx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()

		var args []string
		switch {
		case req.Anonymous:
			args = append(args, "+login", "anonymous")
		case req.CachedSession:
			// Within the caching window the saved credential store does
			// the work; passing the password again would just prompt a
			// redundant re-auth (§4.1 session caching).
			args = loginArgs(a.opts.Username, "")
		default:
			args = loginArgs(a.opts.Username, a.opts.Password)
		}
		args = append(args,
			"+force_install_dir", req.WorkspacePath,
			"+workshop_download_item", req.AppID, req.ItemID,
			"+quit",
		)

		cmd := a.command(ctx, args)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			events <- interfaces.AdapterEvent{
				Kind: interfaces.EventOutcome,
				Outcome: interfaces.AdapterOutcome{
					Kind:   interfaces.OutcomeTransientFailure,
					Detail: fmt.Sprintf("stdout pipe: %v", err),
				},
			}
			return
		}
		cmd.Stderr = cmd.Stdout // steamcmd interleaves diagnostics on stderr too

		if err := cmd.Start(); err != nil {
			events <- interfaces.AdapterEvent{
				Kind: interfaces.EventOutcome,
				Outcome: interfaces.AdapterOutcome{
					Kind:   interfaces.OutcomeTransientFailure,
					Detail: fmt.Sprintf("start steamcmd: %v", err),
				},
			}
			return
		}

		c := newClassification()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		progress := 10
		for scanner.Scan() {
			line := scanner.Text()
			c.feedLine(line)

			events <- interfaces.AdapterEvent{Kind: interfaces.EventOutputLine, Line: line}

			if strings.Contains(line, "Downloading item") || strings.Contains(line, "Success. Downloaded item") {
				if progress < 60 {
					progress += 5
					events <- interfaces.AdapterEvent{Kind: interfaces.EventProgressTick, Delta: progress}
				}
			}
		}

		waitErr := cmd.Wait()

		if !req.Anonymous && c.kind == "" {
			a.session.markVerified(a.opts.Username)
		}
		if c.kind == interfaces.OutcomeSessionExpired {
			a.session.markInvalid()
		}

		if ctx.Err() == context.DeadlineExceeded {
			a.terminate(cmd)
			events <- interfaces.AdapterEvent{
				Kind:    interfaces.EventOutcome,
				Outcome: interfaces.AdapterOutcome{Kind: interfaces.OutcomeTimeout, Detail: "fetch exceeded timeout"},
			}
			return
		}

		contentPath, present := a.locator.FindContent(req.WorkspacePath, req.AppID, req.ItemID)
		outcome := c.resolve(contentPath, present)
		if outcome.Kind == interfaces.OutcomeTransientFailure && waitErr != nil {
			outcome.Detail = fmt.Sprintf("%s (exit: %v)", outcome.Detail, waitErr)
		}

		events <- interfaces.AdapterEvent{Kind: interfaces.EventOutcome, Outcome: outcome}
	}()

	return events
}

// command builds an *exec.Cmd for the given argument list, placing it in
// its own process group so a timeout can kill the whole steamcmd process
// tree rather than only the immediate child (§4.1, SIGTERM-then-SIGKILL).
func (a *Adapter) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, a.opts.BinaryPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), "STEAMCMD_NONINTERACTIVE=1")
	return cmd
}

// terminate sends SIGTERM to the process group and escalates to SIGKILL
// if the group has not exited within the grace period.
func (a *Adapter) terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_, _ = cmd.Process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func loginArgs(username, password string) []string {
	if password == "" {
		return []string{"+login", username}
	}
	return []string{"+login", username, password}
}
