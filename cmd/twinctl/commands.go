package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/spf13/cobra"

	"github.com/iotp2c/ditto-twin/internal/utils"
)

const defaultDefinition = "https://raw.githubusercontent.com/bernar0507/Eclipse-Ditto-MQTT-iwatch/main/iwatch/wot/iwatch.tm.jsonld"

var (
	definition    string
	statusWorkers int
)

// twinCmd represents the twin command
var twinCmd = &cobra.Command{
	Use:   "twin [device-id]...",
	Short: "Twin devices",
	Long: `Create the shared policy, the twin and the MQTT connection of each device, one device at a time.
A device that already has a twin is left untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, deviceID := range utils.Unique(args) {
			outcome, err := a.twinning.Twin(ctx, deviceID, definition)
			if err != nil {
				return fmt.Errorf("failed to twin %s: %w", deviceID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", deviceID, outcome)
		}
		return nil
	},
}

// untwinCmd represents the untwin command
var untwinCmd = &cobra.Command{
	Use:   "untwin [device-id]...",
	Short: "Untwin devices",
	Long:  `Delete the twin and the MQTT connection of each device. The shared policy is kept.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, deviceID := range utils.Unique(args) {
			if err := a.twinning.Untwin(ctx, deviceID); err != nil {
				return fmt.Errorf("failed to untwin %s: %w", deviceID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: untwinned\n", deviceID)
		}
		return nil
	},
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [device-id]...",
	Short: "Show twins",
	Long:  `Print the twin of each device as stored by Ditto.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		deviceIDs := utils.Unique(args)
		twins := cmap.New[json.RawMessage]()

		pool := utils.NewWorkerPool(ctx, statusWorkers)
		for _, deviceID := range deviceIDs {
			pool.Submit(func(ctx context.Context) error {
				status, err := a.twins.Status(ctx, deviceID)
				if err != nil {
					return fmt.Errorf("%s: %w", deviceID, err)
				}
				twins.Set(deviceID, status)
				return nil
			})
		}
		poolErr := pool.Wait()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		for _, deviceID := range deviceIDs {
			if status, ok := twins.Get(deviceID); ok {
				if err := enc.Encode(status); err != nil {
					return err
				}
			}
		}
		return poolErr
	},
}

// pkiCmd represents the pki command
var pkiCmd = &cobra.Command{
	Use:   "pki",
	Short: "Manage the broker certificate authority",
}

// pkiInitCmd represents the pki init command
var pkiInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the broker CA and server certificate",
	Long:  `Create the CA (unless one exists) and a server certificate inside the broker container, then restart the broker.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.certificates.BootstrapBroker(ctx)
	},
}

// pkiExportCmd represents the pki export command
var pkiExportCmd = &cobra.Command{
	Use:   "export [device-id]...",
	Short: "Export device certificates",
	Long: `Copy the CA certificate, client certificate and client key installed in each device container
to the device's simulator paths. The client key is written to the host with owner-only permissions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		deviceIDs := utils.Unique(args)
		if err := config.CheckSimulatorFiles(deviceIDs); err != nil {
			return err
		}
		return exportDevices(ctx, deviceIDs)
	},
}

func setupCommands() {
	twinCmd.Flags().StringVar(&definition, "definition", defaultDefinition, "Thing definition (WoT Thing Model URL)")
	statusCmd.Flags().IntVar(&statusWorkers, "workers", 4, "Number of devices queried concurrently")
	simulateCmd.Flags().BoolVar(&exportBeforeSimulate, "export", false, "Export each device's certificates from its container before connecting")

	pkiCmd.AddCommand(pkiInitCmd)
	pkiCmd.AddCommand(pkiExportCmd)

	rootCmd.AddCommand(twinCmd)
	rootCmd.AddCommand(untwinCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pkiCmd)
	rootCmd.AddCommand(simulateCmd)
}
