package constants

import "time"

const (
	// DefaultDittoPort is the port of the Ditto nginx gateway in the docker deployment.
	DefaultDittoPort = 8080

	// DefaultRequestTimeout bounds a single HTTP request to Ditto.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultPiggybackTimeout is the timeout Ditto applies to a piggyback command.
	DefaultPiggybackTimeout = 10 * time.Second

	DefaultNamespace  = "org.Iotp2c"
	DefaultPolicyName = "policy"
	DefaultSubject    = "nginx:ditto"

	// DefaultReadinessAttempts and DefaultReadinessDelay bound the readiness probe to ~100s.
	DefaultReadinessAttempts = 20
	DefaultReadinessDelay    = 5 * time.Second
)

// Piggyback command fields.
const (
	ConnectionActorSelection = "/system/sharding/connection"
	CreateConnectionCommand  = "connectivity.commands:createConnection"
	DeleteConnectionCommand  = "connectivity.commands:deleteConnection"
)

// Policy fields.
const (
	PolicyEntryOwner   = "owner"
	SubjectTypeNginx   = "nginx basic auth user"
	PermissionRead     = "READ"
	PermissionWrite    = "WRITE"
	ResourceThing      = "thing:/"
	ResourcePolicy     = "policy:/"
	ResourceMessage    = "message:/"
	ConnectionTypeMQTT = "mqtt"
	ConnectionOpen     = "open"
	CredentialsClient  = "client-cert"
)

// Event channels the outbound connection target is bound to.
const (
	TwinEventsTopic   = "_/_/things/twin/events"
	LiveMessagesTopic = "_/_/things/live/messages"
)
