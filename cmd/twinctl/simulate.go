package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iotp2c/ditto-twin/internal/service_registry"
	"github.com/iotp2c/ditto-twin/internal/services"
	"github.com/iotp2c/ditto-twin/internal/utils"
	"github.com/iotp2c/ditto-twin/pkg/certs"
	"github.com/iotp2c/ditto-twin/pkg/file"
	"github.com/iotp2c/ditto-twin/pkg/identity"
	"github.com/iotp2c/ditto-twin/pkg/mqtt"
)

var exportBeforeSimulate bool

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate [device-id]...",
	Short: "Simulate smart watch telemetry",
	Long: `Publish simulated smart watch readings for each device to its twin over MQTT with mutual TLS
until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		deviceIDs := utils.Unique(args)
		if err := config.CheckSimulatorFiles(deviceIDs); err != nil {
			return err
		}

		if exportBeforeSimulate {
			if err := exportDevices(ctx, deviceIDs); err != nil {
				return err
			}
		}

		fileClient := file.NewFileService()
		registry := service_registry.NewServiceRegistry(log.With().Str("component", "registry").Logger())
		var clients []*mqtt.MqttService
		defer func() {
			for _, c := range clients {
				c.Disconnect(250)
			}
		}()

		for _, deviceID := range deviceIDs {
			id, err := identity.New(config.Ditto.Namespace, deviceID)
			if err != nil {
				return err
			}
			logger := log.With().Str("device_id", deviceID).Logger()

			client := mqtt.NewMqttService(fileClient, logger)
			clientID := deviceID + "-" + uuid.New().String()
			files := config.SimulatorFiles(deviceID)
			if err := client.Initialize(config.Simulator.Broker, clientID, mqtt.TLSFiles{
				CACertificate:      files.CACertificate,
				ClientCertificate:  files.ClientCertificate,
				ClientKey:          files.ClientKey,
				InsecureSkipVerify: config.Simulator.InsecureSkipVerify,
			}); err != nil {
				return fmt.Errorf("failed to connect %s: %w", deviceID, err)
			}
			clients = append(clients, client)

			registry.RegisterService(deviceID, services.NewTelemetryService(
				id, config.Simulator.Interval, config.Simulator.QOS, client, logger))
		}

		if err := registry.StartServices(); err != nil {
			return err
		}
		log.Info().Int("devices", registry.Len()).Msg("All telemetry services started successfully")

		<-ctx.Done()

		log.Info().Msg("Shutting down gracefully...")
		return registry.StopServices()
	},
}

// exportDevices writes the certificate material of each device to its
// simulator paths.
func exportDevices(ctx context.Context, deviceIDs []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, deviceID := range deviceIDs {
		if err := exportDeviceMaterial(ctx, a, deviceID); err != nil {
			return fmt.Errorf("failed to export %s: %w", deviceID, err)
		}
	}
	return nil
}

// exportDeviceMaterial writes the certificate material installed in the device
// container to the device's simulator paths. This is the one place the tool
// puts a private key on the host, and only when asked to.
func exportDeviceMaterial(ctx context.Context, a *app, deviceID string) error {
	material, err := a.certificates.DeviceMaterial(ctx, deviceID)
	if err != nil {
		return err
	}

	paths := config.SimulatorFiles(deviceID)
	fileClient := file.NewFileService()
	files := []struct {
		path      string
		blockType string
		body      string
	}{
		{paths.CACertificate, certs.TypeCertificate, material.CACert},
		{paths.ClientCertificate, certs.TypeCertificate, material.ClientCert},
		{paths.ClientKey, certs.TypePrivateKey, material.ClientKey},
	}
	for _, f := range files {
		if f.path == "" {
			return fmt.Errorf("simulator certificate paths are not configured")
		}
		if err := fileClient.WriteFileRaw(f.path, []byte(certs.Restore(f.blockType, f.body))); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
	}

	log.Info().
		Str("device_id", deviceID).
		Str("client_certificate", paths.ClientCertificate).
		Msg("Device certificates exported")
	return nil
}
