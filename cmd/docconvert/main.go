// Command docconvert converts documents locally or through a running server.
//
//	docconvert convert --to PDF report.odt
//	docconvert remote --server http://localhost:8080 --to HTML --download notes.md
//	docconvert formats
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/JonMunkholm/docconvert/internal/core"
	"github.com/JonMunkholm/docconvert/internal/logging"
)

// Version is set at build time.
var Version = "dev"

func main() {
	// A missing .env is normal for the CLI.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	if err := app.RunContext(ctx, args); err != nil {
		fmt.Fprintf(stderr, "docconvert: %v\n", err)
		if hint := core.FormatUserError(err); hint != "" && core.IsUserFacing(err) {
			fmt.Fprintln(stderr, hint)
		}
		var exit cli.ExitCoder
		if errors.As(err, &exit) && exit.ExitCode() != 0 {
			return exit.ExitCode()
		}
		return 1
	}
	return 0
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "docconvert",
		Usage:     "convert office documents, PDFs, web pages and text between formats",
		Version:   Version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level: debug, info, warn, error",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format: text or json",
				Value:   "text",
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Before: func(c *cli.Context) error {
			// stdout may carry document bytes.
			slog.SetDefault(slog.New(logging.NewHandler(stderr, c.String("log-level"), c.String("log-format"))))
			return nil
		},
		Commands: []*cli.Command{
			convertCommand(),
			remoteCommand(),
			formatsCommand(),
		},
		// Errors are printed by run with their user-facing hint.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}
