package containertest

import (
	"flag"
	"os"
	"os/signal"
)

// Inspect prevents containers from being torn down immediately after a failed
// test, so their filesystem and logs can be examined with the docker CLI.
var Inspect = flag.Bool("containertest.inspect", false, "keep test container running for inspection after a failed test completes")

// waitForInspection blocks until the user signals they are done with a SIGINT (Ctrl+C).
func waitForInspection() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)
	<-c
}
