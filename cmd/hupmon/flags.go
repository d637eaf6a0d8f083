package main

import (
	"github.com/ericpruitt/hupmon/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// resolveLogLevel mirrors the teacher's configureLogger precedence:
// --log-level wins when given; otherwise --debug raises the default
// ErrorLevel to Debug; otherwise the default stands.
func resolveLogLevel(logLevel string, debug bool) (logrus.Level, error) {
	if logLevel != "" {
		switch logLevel {
		case "debug":
			return logrus.DebugLevel, nil
		case "info":
			return logrus.InfoLevel, nil
		case "warn":
			return logrus.WarnLevel, nil
		case "error":
			return logrus.ErrorLevel, nil
		default:
			return 0, ErrInvalidLogLevel
		}
	}
	if debug {
		return logrus.DebugLevel, nil
	}
	return logrus.ErrorLevel, nil
}

type flags struct {
	oneShot  bool
	flowOnly bool
	hangup   bool

	probeDeadline   float64
	activityTimeout float64

	logLevel string
	debug    bool
}

func newRootCommand(f *flags, run func(cmd *cobra.Command, cfg *config.Config, argv []string) (int, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "hupmon [-1 | -f | -h] [-r seconds] [-t seconds] command [args...]",
		Short:                 "Detect hangups and mediate flow control on a terminal",
		SilenceErrors:         true,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Args:                  cobra.ArbitraryArgs,
	}

	// Shadow cobra's automatic --help/-h registration: -h is hupmon's
	// own hangup-detection flag, and --help is special-cased by main()
	// before cobra ever parses anything, matching hupmon.c's getopt
	// loop rather than a generic CLI framework's long-option handling.
	cmd.Flags().Bool("help", false, "")
	cmd.Flags().MarkHidden("help")

	cmd.Flags().BoolVarP(&f.oneShot, "one-shot", "1", false, "probe once, print the device status, and exit")
	cmd.Flags().BoolVarP(&f.flowOnly, "flow-control", "f", false, "mediate flow control only; disables hangup detection")
	cmd.Flags().BoolVarP(&f.hangup, "hangup", "h", false, "hangup-detection mode (default)")
	cmd.Flags().Float64VarP(&f.probeDeadline, "reply-deadline", "r", config.DefaultProbeDeadlineSeconds, "probe reply deadline in seconds")
	cmd.Flags().Float64VarP(&f.activityTimeout, "timeout", "t", config.DefaultActivityTimeoutSeconds, "activity timeout in seconds")

	// Ambient diagnostics, not part of spec.md's documented surface but
	// carried the way every teacher command wires up configureLogger:
	// --log-level takes precedence over the boolean --debug shorthand.
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "shorthand for --log-level debug")

	// Emulate getopt's "+" prefix: stop parsing options at the first
	// non-flag argument, so the user's command and its own flags pass
	// through untouched.
	cmd.Flags().SetInterspersed(false)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, argv, err := f.toConfig(args)
		if err != nil {
			return &exitCodeError{code: 2, err: err}
		}
		code, runErr := run(cmd, cfg, argv)
		if code != 0 || runErr != nil {
			return &exitCodeError{code: code, err: runErr}
		}
		return nil
	}

	return cmd
}

// toConfig validates the parsed flags against spec.md §6 and derives the
// Config and child argv from them.
func (f *flags) toConfig(args []string) (*config.Config, []string, error) {
	cfg := config.DefaultConfig()

	level, err := resolveLogLevel(f.logLevel, f.debug)
	if err != nil {
		return nil, nil, err
	}
	cfg.LogLevel = level

	if f.probeDeadline < config.MinProbeDeadlineSeconds {
		return nil, nil, ErrInvalidProbeDeadline
	}
	cfg.ProbeDeadlineSeconds = f.probeDeadline

	switch {
	case f.oneShot:
		if len(args) > 0 {
			return nil, nil, ErrOneShotForbidsCommand
		}
		cfg.Mode = config.OneShot
		return cfg, nil, nil

	case f.flowOnly:
		cfg.Mode = config.FlowControlOnly
		cfg.ActivityTimeoutSeconds = -1

	default:
		cfg.Mode = config.HangupDetection
		if f.activityTimeout < config.MinActivityTimeoutSeconds {
			return nil, nil, ErrInvalidActivityTimeout
		}
		cfg.ActivityTimeoutSeconds = f.activityTimeout
	}

	if len(args) == 0 {
		return nil, nil, ErrMissingCommand
	}
	return cfg, args, nil
}
