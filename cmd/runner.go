package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scarchive/internal/formatter"
	"github.com/desertthunder/scarchive/internal/services"
	"github.com/desertthunder/scarchive/internal/shared"
	"github.com/desertthunder/scarchive/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     tasks.SoundCloudClient
	logger     *log.Logger
	output     io.Writer
	palette    *formatter.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     tasks.SoundCloudClient // Built from Config on first use when nil
	Logger     *log.Logger
	Output     io.Writer
	Palette    *formatter.Palette // nil renders plain text
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
	}
}

// soundcloud returns the injected client or builds one from the soundcloud config section.
func (r *Runner) soundcloud() (tasks.SoundCloudClient, error) {
	if r.client != nil {
		return r.client, nil
	}
	client, err := services.NewClientFromConfig(r.config.SoundCloud, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SoundCloud client: %w", err)
	}
	r.client = client
	return client, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){setupCommand} {
		commands = append(commands, fn(r))
	}

	return commands
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
