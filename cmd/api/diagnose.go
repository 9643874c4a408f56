package main

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	appanalysis "github.com/bryanwahyu/prodpulse/internal/application/analysis"
	appdiag "github.com/bryanwahyu/prodpulse/internal/application/diagnosis"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	diagdomain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/offline"
	"github.com/bryanwahyu/prodpulse/internal/logging"
)

func newDiagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose [log text]",
		Short: "Diagnose an error log once, without the HTTP API or quota",
		Long: `Diagnose reads an error log from the argument, --file or stdin and prints
its severity, title and diagnosis. Nothing is persisted.`,
		Example: `  prodpulse diagnose "java.lang.NullPointerException at Foo.bar(Foo.java:42)"
  kubectl logs my-pod --tail=50 | prodpulse diagnose --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDiagnose,
	}
	cmd.Flags().StringP("file", "f", "", "read the log from a file")
	cmd.Flags().Bool("offline", false, "use the built-in pattern analyzer instead of the configured provider")
	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	ctx := logging.With(cmd.Context(), logger)

	text, err := readLogInput(cmd, args)
	if err != nil {
		return err
	}

	limits := appanalysis.Limits{MinChars: cfg.Input.MinChars, MaxChars: cfg.Input.MaxChars, MaxWords: cfg.Input.MaxWords}
	if err := limits.Validate(text); err != nil {
		return err
	}

	var backend diagdomain.Backend = offline.New()
	if useOffline, _ := cmd.Flags().GetBool("offline"); !useOffline {
		if backend, err = ai.NewBackend(ctx, cfg.Provider); err != nil {
			return err
		}
	}

	outcome := appdiag.NewService(backend).Produce(ctx, text)
	severity := domain.SeverityOf(text)

	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	severityColor(severity).Fprintf(out, "[%s] ", strings.ToUpper(string(severity)))
	bold.Fprintln(out, domain.TitleOf(text))
	if outcome.Fallback {
		color.New(color.FgYellow).Fprintf(out, "provider %s unavailable, showing fallback\n", backend.Name())
	}
	color.New(color.FgCyan).Fprintf(out, "backend: %s\n\n", outcome.Backend)
	_, err = io.WriteString(out, outcome.Text+"\n")
	return err
}

func readLogInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read log file", goerr.V("path", path))
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", goerr.Wrap(err, "failed to read stdin")
	}
	return string(data), nil
}

func severityColor(s domain.Severity) *color.Color {
	switch s {
	case domain.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case domain.SeverityWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}
