package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyverse-de/terrain-cli/internal/api"
	"github.com/cyverse-de/terrain-cli/internal/auth"
	"github.com/cyverse-de/terrain-cli/internal/cache"
	"github.com/cyverse-de/terrain-cli/internal/config"
	"github.com/cyverse-de/terrain-cli/internal/failure"
	"github.com/cyverse-de/terrain-cli/internal/logging"
)

var Version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run is the only place an error becomes an exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{prompter: auth.NewTerminalPrompter()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "terrain: %v\n", err)
	}
	return failure.ExitCode(err)
}

// app holds what the persistent flags and the config file resolve to.
type app struct {
	configPath string
	env        string
	logLevel   string

	cfg      config.Config
	prompter auth.Prompter
	client   *api.Client
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "terrain",
		Short:         "Terrain API client",
		Long:          "terrain talks to the Terrain API: subscription plans, subscriptions and quotas.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	root.PersistentFlags().StringVarP(&a.env, "env", "e", "", "the DE environment to work with (default from config, else prod)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "path to the config file")

	root.AddCommand(
		a.loginCmd(),
		a.whoamiCmd(),
		a.subscriptionsCmd(),
		a.versionCmd(),
	)
	root.SetHelpCommand(a.helpCmd(root))
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.env != "" {
		cfg.DefaultEnvironment = a.env
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	logging.Init(logging.Config{Format: "auto", Level: cfg.LogLevel, Component: "terrain"})
	return nil
}

// apiClient builds the Terrain client for the selected environment. An
// unknown environment fails here, before any prompt or request.
func (a *app) apiClient(cmd *cobra.Command) (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	env := a.cfg.DefaultEnvironment
	envs := a.cfg.Environments

	tokenURL, err := envs.ResolveURI(env, auth.TokenPath)
	if err != nil {
		return nil, err
	}

	store, err := cache.NewStore(a.cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: a.cfg.Timeout}
	authenticator := auth.New(tokenURL, a.prompter, cmd.ErrOrStderr())
	authenticator.HTTPClient = httpClient

	client, err := api.New(env, envs, store, authenticator, api.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "terrain %s\n", Version)
		},
	}
}

// helpCmd lists every subcommand with its aliases, then falls back to
// cobra's help for "help <command>".
func (a *app) helpCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "list available subcommands",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				target, _, err := root.Find(args)
				if err != nil {
					return failure.Invalid("unknown command: %s", strings.Join(args, " "))
				}
				return target.Help()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "\nThe following subcommands are available:")
			fmt.Fprintln(out)
			listCommands(out, root, "    ")
			return nil
		},
	}
}

func listCommands(w io.Writer, parent *cobra.Command, indent string) {
	for _, c := range parent.Commands() {
		if !c.IsAvailableCommand() && c.Name() != "help" {
			continue
		}
		line := fmt.Sprintf("%s%s: %s", indent, c.Name(), c.Short)
		if len(c.Aliases) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(c.Aliases, ","))
		}
		fmt.Fprintln(w, line)
		listCommands(w, c, indent+"    ")
	}
}
