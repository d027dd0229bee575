// Command registry-core is a harness around core.Service: it boots a
// Service from a freshly generated genesis operator record and checkpoint,
// wires a checkpoint sink (and, optionally, a checkpoint archiver), and
// drives a small publish -> checkpoint -> fetch loop end to end. The
// HTTP/JSON surface itself remains out of scope (spec.md §1); this is a
// local exerciser, not a server.
package main

import (
	"fmt"
	"os"

	"github.com/fibonacci1729/registry/cmd/registry-core/internal/rootcmd"
)

func main() {
	if err := rootcmd.New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
