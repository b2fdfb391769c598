// fulfild is the fulfilment session engine server.
package main

import "github.com/gatherline/fulfil/cmd/fulfild/cmd"

func main() {
	cmd.Execute()
}
