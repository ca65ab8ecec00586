package main

import (
	"fmt"

	"github.com/iotp2c/ditto-twin/internal/services"
	"github.com/iotp2c/ditto-twin/pkg/container"
	"github.com/iotp2c/ditto-twin/pkg/ditto"
)

// app holds the services of one command invocation.
type app struct {
	runtime      *container.DockerRuntime
	certificates *services.CertificateService
	twins        *services.TwinService
	twinning     *services.TwinningService
}

func newApp() (*app, error) {
	things, err := ditto.NewThingsClient(config.DittoBaseURL(),
		ditto.Credentials(config.TenantCredentials()),
		config.Ditto.RequestTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create things client: %w", err)
	}

	devops, err := ditto.NewDevOpsClient(config.DittoBaseURL(),
		ditto.Credentials(config.OperatorCredentials()),
		config.Ditto.RequestTimeout, config.Ditto.PiggybackTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create devops client: %w", err)
	}

	runtime, err := container.NewDockerRuntime(log.With().Str("component", "docker").Logger())
	if err != nil {
		return nil, err
	}

	readiness := services.NewReadinessService(things, log.With().Str("service", "readiness").Logger())
	certificates := services.NewCertificateService(runtime, config, log.With().Str("service", "certificate").Logger())
	policies := services.NewPolicyService(things, config.PolicyID(), config.Ditto.Subject, log.With().Str("service", "policy").Logger())
	twins := services.NewTwinService(things, config.Ditto.Namespace, config.PolicyID(), log.With().Str("service", "twin").Logger())
	connections := services.NewConnectionService(devops, runtime, certificates, config, log.With().Str("service", "connection").Logger())

	twinning := services.NewTwinningService(readiness, policies, twins, connections,
		services.ReadinessOptions{
			MaxAttempts: config.Ditto.Readiness.MaxAttempts,
			Delay:       config.Ditto.Readiness.Delay,
		},
		log.With().Str("service", "twinning").Logger())

	return &app{
		runtime:      runtime,
		certificates: certificates,
		twins:        twins,
		twinning:     twinning,
	}, nil
}

func (a *app) Close() {
	if err := a.runtime.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close docker client")
	}
}
