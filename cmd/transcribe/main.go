// Command transcribe is the terminal client of the audio transcription
// service: sign in, upload audio and follow transcription jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/audio-transcribe/client/internal/pkg/config"
	"github.com/audio-transcribe/client/pkg/logger"
)

const usage = `usage: transcribe <command> [flags]

commands:
  register  -username U [-password P -confirm P]   create an account
  login     -username U [-password P]              sign in (password read from stdin when omitted)
  logout                                           forget the stored credential
  whoami                                           show the signed-in user
  upload    <file>                                 upload an audio file
  jobs      [-format table|json|yaml]              list your jobs
  job       <id> [-format table|json|yaml]         show one job
  watch     [-plain] [-until-done] [-status-addr :9464]
                                                   follow jobs until they finish

configuration is read from the environment (API_BASE_URL, TOKEN_STORE, ...).
`

// errUsage marks errors caused by bad invocation; they exit with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	logOut, closeLog := logOutput(cfg, args[0], args[1:], stderr)
	defer closeLog()
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: logOut})
	log := logger.Component("cli")

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer a.Close()

	env := &cmdEnv{app: a, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, env, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
			return 2
		}
		log.Debug().Err(err).Str("command", args[0]).Msg("command failed")
		fmt.Fprintln(stderr, "Error:", describe(err, cmd.fallback))
		return 1
	}
	return 0
}
