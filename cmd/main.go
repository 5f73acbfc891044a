package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizplanner/internal/adapters/config"
	"bizplanner/internal/agents"
	"bizplanner/internal/bootstrap"
	"bizplanner/pkg/errors"
)

var (
	ideaFlag       string
	outFlag        string
	synthesizeFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "bizplanner",
	Short: "Research a business idea and write a startup plan",
	Long: "bizplanner runs five analysts in order (market research, competitor analysis, " +
		"business model, financial analysis, legal and compliance) and prints their sections " +
		"as a markdown report.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&ideaFlag, "idea", "i", "", "business idea (prompted on stdin when empty)")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "", "also write the report to this file")
	rootCmd.Flags().BoolVar(&synthesizeFlag, "synthesize", false, "append a summary with next steps (overrides PIPELINE_SYNTHESIZE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "configuration")
	}
	if cmd.Flags().Changed("synthesize") {
		cfg.Pipeline.Synthesize = synthesizeFlag
	}

	idea := strings.TrimSpace(ideaFlag)
	if idea == "" {
		idea, err = promptIdea(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := bootstrap.NewContainer(cfg)
	container.Observer = progress(cmd.ErrOrStderr(), len(agents.PipelineOrder))
	if err := container.Init(ctx); err != nil {
		return errors.Wrap(err, "startup")
	}
	defer container.Shutdown()
	container.Start()

	report, err := container.Run(ctx, idea)
	if err != nil {
		return reportFailure(ctx, container.ErrorTracker, err)
	}

	markdown := report.Markdown()
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), markdown); err != nil {
		return errors.Wrap(err, "write report")
	}

	if outFlag != "" {
		if err := os.WriteFile(outFlag, []byte(markdown+"\n"), 0o644); err != nil {
			return errors.Wrapf(err, "save report to %s", outFlag)
		}
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", outFlag)
	}
	return nil
}

// promptIdea asks for the idea on stderr and reads one line.
func promptIdea(in io.Reader, out io.Writer) (string, error) {
	color.New(color.FgCyan, color.Bold).Fprint(out, "Enter your business idea: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read business idea")
	}

	idea := strings.TrimSpace(line)
	if idea == "" {
		return "", errors.NewValidationError("idea", "business idea must not be empty", "")
	}
	return idea, nil
}

// progress prints one line per stage transition.
func progress(out io.Writer, total int) agents.Observer {
	stage := color.New(color.FgCyan)
	done := color.New(color.FgGreen)
	failed := color.New(color.FgRed)

	var started time.Time
	return func(s agents.State) {
		switch s.Status {
		case agents.StatusRunning:
			if s.Last != nil {
				done.Fprintf(out, "  ✓ %s (%s)\n", s.Last.Name, s.Last.Duration.Round(time.Millisecond))
			}
			started = time.Now()
			stage.Fprintf(out, "[%d/%d] %s...\n", s.Index+1, total, s.Agent)
		case agents.StatusCompleted:
			if s.Last != nil {
				done.Fprintf(out, "  ✓ %s (%s)\n", s.Last.Name, s.Last.Duration.Round(time.Millisecond))
			}
			done.Fprintln(out, "Plan complete.")
		case agents.StatusFailed:
			failed.Fprintf(out, "  ✗ %s after %s\n", s.Agent, time.Since(started).Round(time.Millisecond))
		}
	}
}

// reportFailure sends the failure to the tracker and shapes the message
// shown to the user. No partial report is printed.
func reportFailure(ctx context.Context, tracker errors.Tracker, err error) error {
	var pipelineErr *errors.PipelineError
	if !errors.As(err, &pipelineErr) {
		return err
	}

	if tracker != nil {
		_ = tracker.CaptureError(ctx, err, map[string]string{
			"stage": strconv.Itoa(pipelineErr.Index + 1),
			"agent": pipelineErr.Agent,
		})
	}

	cause := pipelineErr.Err
	var agentErr *errors.AgentRunError
	if errors.As(cause, &agentErr) {
		cause = agentErr.Err
	}
	return fmt.Errorf("pipeline failed at %s: %w", pipelineErr.Agent, cause)
}
