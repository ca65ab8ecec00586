package registry

// Service is a long-running component started and stopped by the ServiceRegistry.
type Service interface {
	Start() error
	Stop() error
}
