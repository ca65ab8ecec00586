package containertest

import (
	"context"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MosquittoImage is the broker image of the reference deployment.
const MosquittoImage = "docker.io/eclipse-mosquitto:2.0"

// MQTTPort is the plain MQTT listener of the no-auth configuration shipped in the image.
const MQTTPort = nat.Port("1883/tcp")

// Broker describes a running broker container.
type Broker struct {
	// ID is the Docker container ID; the Docker API accepts it wherever a container name is expected.
	ID string
	// Endpoint is the host:port the MQTT listener is mapped to on the Docker host.
	Endpoint string
}

// SetupMosquitto starts a Mosquitto container and terminates it when the test completes.
//
// The provided [*testing.T] is used to skip the test under '-short', to mark it
// parallel, and to clean up the container.
func SetupMosquitto(t *testing.T) Broker {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping container-based test in short mode...")
	}
	t.Parallel()

	ctx := context.Background()

	container, err := testcontainers.Run(ctx, MosquittoImage,
		testcontainers.WithLogger(log.TestLogger(t)),
		testcontainers.WithCmd("mosquitto", "-c", "/mosquitto-no-auth.conf"),
		testcontainers.WithExposedPorts(string(MQTTPort)),
		testcontainers.WithWaitStrategy(wait.ForListeningPort(MQTTPort)),
	)
	if err != nil {
		t.Fatal("Failed to run mosquitto container:", err)
	}
	t.Cleanup(func() {
		if t.Failed() && *Inspect {
			t.Logf("Container %v is still running for inspection (Ctrl+C to terminate)...", container.GetContainerID())
			waitForInspection()
		}
		t.Logf("Terminating mosquitto container %q...", container.GetContainerID())
		if err := container.Terminate(ctx); err != nil {
			t.Error("Encountered an error during cleanup; terminate container:", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, MQTTPort, "")
	if err != nil {
		t.Fatal("Failed to get mqtt endpoint:", err)
	}

	return Broker{ID: container.GetContainerID(), Endpoint: endpoint}
}
