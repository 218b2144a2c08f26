package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Harshitk-cp/dialectic/internal/buildconfig"
	"github.com/Harshitk-cp/dialectic/internal/cli"
	"github.com/Harshitk-cp/dialectic/internal/config"
	"github.com/Harshitk-cp/dialectic/internal/debate"
	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/Harshitk-cp/dialectic/internal/llm"
	"github.com/Harshitk-cp/dialectic/internal/pace"
	"github.com/Harshitk-cp/dialectic/internal/telemetry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errNoAgreement signals exit code 1 without an error banner; the result
// panel already told the user what happened.
var errNoAgreement = errors.New("debate ended without agreement")

type runFlags struct {
	pace      string
	maxRounds int
	solver    string
	reviewer  string
	timing    bool
	plain     bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errNoAgreement) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:   "dialectic [problem]",
		Short: "Two AI agents argue a problem until they agree",
		Long: `Dialectic runs an adversarial debate between a solver and a reviewer
agent: the solver proposes, the reviewer pushes back, and the exchange
continues until the reviewer agrees, the round budget runs out, or an
agent fails. The exchange is paced for reading.

Examples:
  dialectic "is 1027 prime?"
  dialectic run --pace fast --max-rounds 4 "what is the capital of Australia?"
  dialectic run --solver anthropic --reviewer openai --timing "design a URL shortener"`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runDebate(cmd, strings.Join(args, " "), flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.pace, "pace", "", "pace profile: slow, medium or fast")
	rootCmd.PersistentFlags().IntVar(&flags.maxRounds, "max-rounds", 0, "override the round budget")
	rootCmd.PersistentFlags().StringVar(&flags.solver, "solver", "", "solver provider: openai, anthropic, gemini or cerebras")
	rootCmd.PersistentFlags().StringVar(&flags.reviewer, "reviewer", "", "reviewer provider: openai, anthropic, gemini or cerebras")
	rootCmd.PersistentFlags().BoolVar(&flags.timing, "timing", false, "print the pacing breakdown after the debate")
	rootCmd.PersistentFlags().BoolVar(&flags.plain, "plain", false, "disable styling and the typing effect")

	rootCmd.AddCommand(newRunCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newRunCommand(flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [problem]",
		Short: "Run a single debate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebate(cmd, strings.Join(args, " "), flags)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dialectic %s (%s)\n", buildconfig.Version(), buildconfig.Commit())
		},
	}
}

func runDebate(cmd *cobra.Command, problem string, flags *runFlags) error {
	if err := config.Load(); err != nil {
		return err
	}

	paceCfg := config.Pace()
	if flags.pace != "" {
		p, ok := config.PaceProfile(flags.pace)
		if !ok {
			return fmt.Errorf("unknown pace profile %q (have: %s)",
				flags.pace, strings.Join(config.ProfileNames(), ", "))
		}
		paceCfg = p
	}
	if flags.maxRounds > 0 {
		paceCfg.MaxRounds = flags.maxRounds
	}

	solver, err := buildClient(flags.solver, config.SolverProvider(), config.SolverModel())
	if err != nil {
		return err
	}
	reviewer, err := buildClient(flags.reviewer, config.ReviewerProvider(), config.ReviewerModel())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl, err := pace.NewController(paceCfg)
	if err != nil {
		return err
	}
	renderer := cli.New(ctx, cmd.OutOrStdout(), ctrl, flags.plain)

	var sink domain.TelemetrySink
	if path := config.TelemetryPath(); path != "" {
		jsonl, err := telemetry.OpenJSONLSink(path)
		if err != nil {
			return err
		}
		defer func() { _ = jsonl.Close() }()
		sink = jsonl
	}

	orch, err := debate.New(debate.Config{
		Solver:   solver,
		Reviewer: reviewer,
		DebateID: uuid.New(),
		Pace:     paceCfg,
		Retry: llm.RetryPolicy{
			MaxAttempts: config.RetryMaxAttempts(),
			BaseDelay:   config.RetryBaseDelay(),
			Multiplier:  config.RetryMultiplier(),
			MaxDelay:    config.RetryMaxDelay(),
		},
		CallTimeout:   config.AgentCallTimeout(),
		DebateTimeout: config.DebateTimeout(),
		Sink:          sink,
		Renderer:      renderer,
		Logger:        zap.NewNop(),
	})
	if err != nil {
		return err
	}

	res := orch.Run(ctx, problem)

	if flags.timing {
		fmt.Fprintln(cmd.OutOrStdout(), cli.TimingSummary(*res))
	}
	if !res.Agreed() {
		return errNoAgreement
	}
	return nil
}

// buildClient resolves a role's provider, preferring the CLI flag over the
// environment. The model override applies to whichever provider runs the
// role; empty keeps the provider default.
func buildClient(override, provider, model string) (domain.AgentClient, error) {
	if override != "" {
		provider = override
	}
	return llm.NewClient(provider, config.APIKeyFor(provider), model, config.AgentMaxTokens())
}
