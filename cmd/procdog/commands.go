package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/brivio/procdog"
)

// rootFlags are shared by every subcommand
type rootFlags struct {
	dir    string
	strict bool
	debug  bool
}

// startFlags carry the launch options for start and monitor
type startFlags struct {
	stdin  string
	stdout string
	stderr string
	append bool
	linger time.Duration
}

func (f *startFlags) options() procdog.StartOptions {
	return procdog.StartOptions{
		StdinPath:  f.stdin,
		StdoutPath: f.stdout,
		StderrPath: f.stderr,
		Append:     f.append,
		Linger:     f.linger,
	}
}

func (f *startFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stdin, "in", "", "redirect the command's stdin from this file")
	cmd.Flags().StringVar(&f.stdout, "out", "", "redirect the command's stdout to this file")
	cmd.Flags().StringVar(&f.stderr, "err", "", "redirect the command's stderr to this file")
	cmd.Flags().BoolVar(&f.append, "append", false, "append to redirection targets instead of truncating")
	cmd.Flags().DurationVar(&f.linger, "linger", procdog.DefaultLinger, "how long the monitor answers after the command exits")
}

func (f *rootFlags) logger() *slog.Logger {
	if !f.debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (f *rootFlags) client(timeout time.Duration) *procdog.Client {
	opts := []procdog.Option{
		procdog.WithStrict(f.strict),
		procdog.WithLogger(f.logger()),
	}
	if f.dir != "" {
		opts = append(opts, procdog.WithSocketDir(f.dir))
	}
	if timeout > 0 {
		opts = append(opts, procdog.WithStartTimeout(timeout))
	}
	return procdog.New(opts...)
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "procdog",
		Short:         "Supervise a process and control it by identifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       procdog.Version,
	}

	root.PersistentFlags().StringVar(&flags.dir, "dir", "", "control socket directory (default: per-user temp dir)")
	root.PersistentFlags().BoolVar(&flags.strict, "strict", false, "treat start-on-running and stop-on-stopped as failures")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log diagnostics to stderr")

	root.AddCommand(
		newStartCommand(flags),
		newStopCommand(flags),
		newStatusCommand(flags),
		newWatchCommand(flags),
		newMonitorCommand(flags),
	)

	return root
}

func newStartCommand(flags *rootFlags) *cobra.Command {
	launch := &startFlags{}
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "start <id> <command>",
		Short: "Launch a command under a monitor for the identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := flags.client(timeout)
			status, err := client.Start(cmd.Context(), args[0], args[1], launch.options())
			if err != nil {
				return err
			}
			fmt.Println(status.Encode())
			return nil
		},
	}

	launch.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", procdog.DefaultStartTimeout, "bound on waiting for the monitor to come up")
	return cmd
}

func newStopCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Terminate the identifier's supervised process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := flags.client(0).Stop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(status.Encode())
			return nil
		},
	}
}

func newStatusCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Report the identifier's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := flags.client(0).Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(status.Encode())
			return nil
		},
	}
}

func newWatchCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Print the identifier's state changes as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, cleanup, err := flags.client(0).Watch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			for ev := range events {
				if ev.Err != nil {
					fmt.Fprintf(os.Stderr, "procdog: watch: %v\n", ev.Err)
					continue
				}
				fmt.Println(ev.Status.Encode())
			}
			return nil
		},
	}
}

// newMonitorCommand is the re-exec target of Client.Start. It runs the
// supervision sequence in the current (already detached) process.
func newMonitorCommand(flags *rootFlags) *cobra.Command {
	launch := &startFlags{}
	var id string

	cmd := &cobra.Command{
		Use:    "monitor -- <command>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mopts := []procdog.MonitorOption{
				procdog.WithMonitorLogger(flags.logger()),
			}
			if flags.dir != "" {
				mopts = append(mopts, procdog.WithMonitorSocketDir(flags.dir))
			}
			mon, err := procdog.NewMonitor(id, args[0], launch.options(), mopts...)
			if err != nil {
				return err
			}
			return mon.Run(cmd.Context())
		},
	}

	launch.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "identifier to supervise under")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
