package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/core/service"
	"github.com/audio-transcribe/client/internal/infrastructure/credential"
	statushttp "github.com/audio-transcribe/client/internal/infrastructure/http"
	"github.com/audio-transcribe/client/internal/tui"
	"github.com/audio-transcribe/client/pkg/logger"
)

type cmdEnv struct {
	app    *app
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	lines *bufio.Reader
}

type command struct {
	run      func(ctx context.Context, env *cmdEnv, args []string) error
	fallback string
}

var commands = map[string]command{
	"register": {run: runRegister, fallback: service.RegisterFailedMessage},
	"login":    {run: runLogin, fallback: "Unable to login"},
	"logout":   {run: runLogout},
	"whoami":   {run: runWhoami},
	"upload":   {run: runUpload, fallback: "Unable to upload file."},
	"jobs":     {run: runJobs, fallback: "Unable to load jobs."},
	"job":      {run: runJob, fallback: "Unable to load job."},
	"watch":    {run: runWatch, fallback: "Unable to load jobs."},
}

// failure is an error whose text is already meant for the user.
type failure struct {
	msg string
	err error
}

func (f *failure) Error() string { return f.msg }
func (f *failure) Unwrap() error { return f.err }

var errNotLoggedIn = &failure{msg: "Not logged in. Run: transcribe login -username <name>"}

// describe turns err into the line printed after "Error:".
func describe(err error, fallback string) string {
	var f *failure
	if errors.As(err, &f) {
		return f.msg
	}
	if msg := domain.Message(err, ""); msg != "" {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

func newFlagSet(name string, env *cmdEnv) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// readLine reads one line from stdin, prompting on stderr.
func (env *cmdEnv) readLine(prompt string) (string, error) {
	if env.lines == nil {
		env.lines = bufio.NewReader(env.stdin)
	}
	fmt.Fprint(env.stderr, prompt)
	line, err := env.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// requireSession restores the stored session and fails when nobody is
// signed in.
func (env *cmdEnv) requireSession(ctx context.Context) (domain.Session, error) {
	env.app.sessions.Hydrate(ctx)
	snap := env.app.sessions.Snapshot()
	if !snap.Authenticated() {
		return snap, errNotLoggedIn
	}
	return snap, nil
}

// unauthorized turns an expired-token error into a logout.
func (env *cmdEnv) unauthorized(err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		env.app.sessions.Logout()
		return &failure{msg: "Session expired. Run: transcribe login", err: err}
	}
	return err
}

func runRegister(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("register", env)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password (read from stdin when omitted)")
	confirm := fs.String("confirm", "", "password confirmation (read from stdin when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *password == "" {
		if *password, err = env.readLine("Password: "); err != nil {
			return err
		}
		if *confirm, err = env.readLine("Confirm password: "); err != nil {
			return err
		}
	}

	profile, err := env.app.sessions.Register(ctx, ports.RegisterInput{
		Username:        *username,
		Password:        *password,
		ConfirmPassword: *confirm,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "Registered %s. You can now log in.\n", profile.Username)
	return nil
}

func runLogin(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("login", env)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password (read from stdin when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *password == "" && *username != "" {
		p, err := env.readLine("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	if err := env.app.sessions.Login(ctx, *username, *password); err != nil {
		if msg := env.app.sessions.Snapshot().ErrorMessage; msg != "" {
			return &failure{msg: msg, err: err}
		}
		return err
	}

	snap := env.app.sessions.Snapshot()
	fmt.Fprintf(env.stdout, "Logged in as %s.\n", snap.User.Username)
	if snap.User.Disabled {
		fmt.Fprintln(env.stdout, "Your account is currently disabled.")
	}
	return nil
}

func runLogout(_ context.Context, env *cmdEnv, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: logout takes no arguments", errUsage)
	}
	env.app.sessions.Logout()
	fmt.Fprintln(env.stdout, "Logged out.")
	return nil
}

func runWhoami(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: whoami takes no arguments", errUsage)
	}

	snap, err := env.requireSession(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.stdout, "user:     %s\n", snap.User.Username)
	fmt.Fprintf(env.stdout, "status:   %s\n", snap.Status)
	if snap.User.Disabled {
		fmt.Fprintln(env.stdout, "disabled: yes")
	}
	fmt.Fprintf(env.stdout, "server:   %s\n", env.app.cfg.API.BaseURL)
	if info, ok := credential.DescribeToken(snap.Token); ok && !info.ExpiresAt.IsZero() {
		fmt.Fprintf(env.stdout, "expires:  %s (in %s)\n",
			info.ExpiresAt.Local().Format(time.RFC1123), time.Until(info.ExpiresAt).Round(time.Second))
	}
	return nil
}

func runUpload(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("upload", env)
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: upload needs exactly one file", errUsage)
	}

	if _, err := env.requireSession(ctx); err != nil {
		return err
	}

	file, closer, err := service.OpenUpload(fs.Arg(0))
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return &failure{msg: err.Error(), err: err}
	}
	defer closer.Close()
	if !service.IsAudio(file) {
		log := logger.Component("cli")
		log.Warn().Str("content_type", file.ContentType).Msg("file does not look like audio, uploading anyway")
	}

	job, err := env.app.jobs.Upload(ctx, file)
	if err != nil {
		return env.unauthorized(err)
	}
	return printJob(env.stdout, *format, *job)
}

func runJobs(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("jobs", env)
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if _, err := env.requireSession(ctx); err != nil {
		return err
	}
	jobs, err := env.app.jobs.ListJobs(ctx)
	if err != nil {
		return env.unauthorized(err)
	}
	return printJobs(env.stdout, *format, jobs)
}

func runJob(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("job", env)
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: job needs exactly one id", errUsage)
	}

	if _, err := env.requireSession(ctx); err != nil {
		return err
	}
	job, err := env.app.jobs.GetJob(ctx, fs.Arg(0))
	if err != nil {
		return env.unauthorized(err)
	}
	return printJob(env.stdout, *format, *job)
}

func runWatch(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("watch", env)
	plain := fs.Bool("plain", false, "print status changes as lines instead of the dashboard")
	untilDone := fs.Bool("until-done", false, "with -plain, exit once every job finished")
	statusAddr := fs.String("status-addr", "", "serve /health, /session and /metrics on this address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if _, err := env.requireSession(ctx); err != nil {
		return err
	}

	if *statusAddr != "" {
		stop, err := env.startStatusServer(*statusAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	if !*plain {
		return tui.Run(ctx, env.app.sessions, env.app.jobs)
	}
	return env.watchPlain(ctx, *untilDone)
}

func (env *cmdEnv) startStatusServer(addr string) (func(), error) {
	log := logger.Component("status")
	e := statushttp.NewRouter(statushttp.Dependencies{
		Sessions: env.app.sessions,
		Pingers:  env.app.pingers,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	// A bind failure returns almost immediately.
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("status server %s: %w", addr, err)
	case <-time.After(100 * time.Millisecond):
	}
	log.Info().Str("addr", addr).Msg("status server listening")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}, nil
}

// watchPlain prints one line per job status change.
func (env *cmdEnv) watchPlain(ctx context.Context, untilDone bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seen := make(map[string]domain.JobStatus)
	var (
		mu     sync.Mutex
		result error
	)
	w := env.app.jobs.Watch(ctx, func(u ports.PollUpdate) {
		mu.Lock()
		defer mu.Unlock()

		if errors.Is(u.Err, domain.ErrUnauthorized) {
			result = env.unauthorized(u.Err)
			cancel()
			return
		}
		newFailure := false
		for _, j := range u.Jobs {
			if seen[j.ID] == j.Status {
				continue
			}
			seen[j.ID] = j.Status
			newFailure = newFailure || j.Status == domain.JobStatusFailed
			fmt.Fprintln(env.stdout, formatJobLine(j))
		}
		switch {
		case errors.Is(u.Err, domain.ErrTranscriptionFailed):
			// With -until-done the failure becomes the exit error instead.
			if untilDone {
				if u.Idle {
					result = u.Err
				}
			} else if newFailure {
				fmt.Fprintln(env.stderr, "Error:", describe(u.Err, ""))
			}
		case u.Err != nil:
			fmt.Fprintln(env.stderr, "Error:", describe(u.Err, "Unable to load jobs."))
		}
		if untilDone && u.Idle {
			cancel()
		}
	})

	<-ctx.Done()
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	return result
}

func formatJobLine(j domain.Job) string {
	line := fmt.Sprintf("%s  %-10s  %s", time.Now().Format(time.TimeOnly), j.Status, j.Filename)
	if j.ID != "" {
		line += "  (" + j.ID + ")"
	}
	if j.Status == domain.JobStatusCompleted && j.Transcript != "" {
		line += "\n    " + strings.ReplaceAll(j.Transcript, "\n", "\n    ")
	}
	if j.Status == domain.JobStatusFailed && j.ErrorMessage != "" {
		line += "\n    " + j.ErrorMessage
	}
	return line
}
