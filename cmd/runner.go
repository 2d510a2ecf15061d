package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"ibup/internal/services"
	"ibup/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	library    services.MusicLibrary
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Library is normally nil and built per command from the login token; tests
// inject a double here.
type RunnerOpts struct {
	Config     *shared.Config
	Library    services.MusicLibrary
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		// Sized by timeout_seconds, which must cover a full upload of a
		// large lossless file, not just the JSON calls.
		opts.HTTPClient = &http.Client{
			Timeout: time.Duration(opts.Config.API.TimeoutSeconds) * time.Second,
		}
	}

	return &Runner{
		config:     opts.Config,
		library:    opts.Library,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		uploadCommand, scanCommand, libraryCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// libraryFor returns the remote library client for the given login token.
//
// An injected library always wins; otherwise the token falls back to the
// config file before failing.
func (r *Runner) libraryFor(token string) (services.MusicLibrary, error) {
	if r.library != nil {
		return r.library, nil
	}

	if token == "" {
		token = r.config.Credentials.LoginToken
	}
	if token == "" {
		return nil, fmt.Errorf("%w: pass a login token or set credentials.login_token in config.toml", shared.ErrMissingToken)
	}

	return services.NewIBroadcastClient(token, services.IBroadcastOpts{
		APIURL:     r.config.API.URL,
		LibraryURL: r.config.API.LibraryURL,
		UploadURL:  r.config.API.UploadURL,
		HTTPClient: r.httpClient,
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
