// Command fraiseql is the engine's CLI: schema dependency-graph export
// and service bootstrap.
package main

import "os"

func main() {
	os.Exit(Execute())
}
