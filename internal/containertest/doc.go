/*
Package containertest spins up throwaway broker containers for tests that need a
real Docker daemon. It is a thin layer over testcontainers-go.

Container-based tests respect the '-short' flag and are skipped under it. To keep
a container running after a failed test for manual inspection, run:

	go test -containertest.inspect

This package is intended to be used in tests only.
*/
package containertest
