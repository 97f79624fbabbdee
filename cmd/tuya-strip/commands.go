package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tuyastrip/internal/config"
	"tuyastrip/internal/device"
	"tuyastrip/internal/powerstrip"
	"tuyastrip/internal/setup"
	"tuyastrip/internal/tuya"
	"tuyastrip/internal/ui"
)

// Command flags
var (
	timeoutSecs int
	retries     int
	retryDelay  time.Duration
	systemWide  bool
)

func init() {
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 10, "Connection timeout in seconds")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", device.DefaultAttempts, "Number of attempts before giving up")
	rootCmd.PersistentFlags().DurationVar(&retryDelay, "retry-delay", device.DefaultDelay, "Pause between attempts")

	setupCmd.Flags().BoolVar(&systemWide, "system-wide", false, "Write credentials to the system-wide path")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(statusCmd)
}

// setupCmd implements the 'setup' command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure device credentials",
	Long: `Interactively configure the device id, IP address, local key, and
protocol version, and save them to a credentials file.

By default the file is written to your home directory. With
--system-wide it is written to ` + config.SystemPath + ` so every user
on the machine can control the strip.`,
	Example: `  # Per-user configuration
  tuya-strip setup

  # Machine-wide configuration (needs root)
  sudo tuya-strip setup --system-wide`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(nil)

	creds, err := setup.Prompt()
	if err != nil {
		if errors.Is(err, setup.ErrCancelled) {
			printer.Println("Setup cancelled, nothing written.")
		}
		return err
	}

	path, err := setup.TargetPath(systemWide)
	if err != nil {
		printer.PrintError("Setup failed", err, nil)
		return err
	}

	if err := setup.Apply(creds, path); err != nil {
		var permErr *setup.PermissionError
		if errors.As(err, &permErr) && systemWide {
			printer.PrintError("Setup failed", err, setup.ElevationHint())
		} else {
			printer.PrintError("Setup failed", err, nil)
		}
		return err
	}

	printer.PrintSuccess("Configuration saved", map[string]string{
		"File": path,
	})
	printer.Println("You can now use the tuya-strip commands.")
	return nil
}

// onCmd implements the 'on' command
var onCmd = &cobra.Command{
	Use:   "on <plug>",
	Short: "Turn a plug on",
	Args:  cobra.ExactArgs(1),
	Example: `  # Turn the first plug on
  tuya-strip on 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, args[0], true)
	},
}

// offCmd implements the 'off' command
var offCmd = &cobra.Command{
	Use:   "off <plug>",
	Short: "Turn a plug off",
	Args:  cobra.ExactArgs(1),
	Example: `  # Turn the third plug off
  tuya-strip off 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, args[0], false)
	},
}

// statusCmd implements the 'status' command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show switch states and energy readings",
	RunE:  runStatus,
}

func runSwitch(cmd *cobra.Command, plugArg string, on bool) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(nil)

	plug, err := strconv.Atoi(plugArg)
	if err != nil {
		return fmt.Errorf("invalid plug number %q (must be 1-%d)", plugArg, powerstrip.PlugCount)
	}
	if err := powerstrip.ValidatePlug(plug); err != nil {
		return err
	}

	strip, addr, err := newStrip(printer)
	if err != nil {
		return err
	}

	action := "off"
	title := "Turn Plug Off"
	if on {
		action = "on"
		title = "Turn Plug On"
	}
	printer.PrintHeader(title, fmt.Sprintf("tuya-strip %s %d", action, plug), map[string]string{
		"Device": addr,
		"Plug":   strconv.Itoa(plug),
	})

	err = runWithRetry(printer, func(ctx context.Context) error {
		return strip.SetPlug(ctx, plug, on)
	})
	if err != nil {
		return err
	}

	state := "OFF"
	if on {
		state = "ON"
	}
	printer.PrintSuccess(fmt.Sprintf("Plug %d turned %s", plug, state), nil)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	printer := ui.NewPrinter(nil)

	strip, addr, err := newStrip(printer)
	if err != nil {
		return err
	}

	printer.PrintHeader("Device Status", "tuya-strip status", map[string]string{
		"Device": addr,
	})

	var status *powerstrip.Status
	err = runWithRetry(printer, func(ctx context.Context) error {
		var opErr error
		status, opErr = strip.Status(ctx)
		return opErr
	})
	if err != nil {
		return err
	}

	printer.Println(status.Format())
	return nil
}

// newStrip loads credentials and builds the device client. Missing or
// invalid configuration is fatal before any network call is made.
func newStrip(printer *ui.Printer) (*powerstrip.Strip, string, error) {
	creds, source, err := config.Load()
	if err != nil {
		printer.PrintError("Configuration error", err, []string{
			"Check the credentials file for malformed values",
			"Run 'tuya-strip setup' to recreate it",
		})
		return nil, "", err
	}

	if err := creds.Validate(); err != nil {
		printer.PrintError("Missing credentials", err, []string{
			"Run 'tuya-strip setup' to configure your device",
		})
		return nil, "", err
	}

	dev := tuya.NewDevice(creds.DeviceID, creds.DeviceIP, creds.LocalKey,
		tuya.WithTimeout(time.Duration(timeoutSecs)*time.Second))
	if err := dev.SetVersion(creds.Version); err != nil {
		printer.PrintError("Configuration error", err, []string{
			fmt.Sprintf("Fix %s in %s", config.KeyVersion, sourceName(source)),
		})
		return nil, "", err
	}

	return powerstrip.New(dev), dev.Address(), nil
}

func sourceName(source string) string {
	if source == "" {
		return "the environment"
	}
	return source
}

// runWithRetry executes op under the configured retry policy, printing
// each failed attempt and a terminal error box on exhaustion.
func runWithRetry(printer *ui.Printer, op func(ctx context.Context) error) error {
	runner := &device.Runner{
		Policy: device.Policy{
			Attempts: retries,
			Delay:    retryDelay,
		},
		OnAttempt: func(attempt int, err *device.OpError) {
			printer.PrintAttempt(attempt, err.Error())
		},
	}

	err := runner.Run(context.Background(), op)
	if err != nil {
		printer.PrintError(
			fmt.Sprintf("All %d attempts failed", runner.Policy.Attempts),
			err,
			device.Troubleshooting(err),
		)
	}
	return err
}
