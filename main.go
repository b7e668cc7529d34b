// The main package for the safescrape executable.
package main

import (
	"github.com/JakeFAU/safescrape/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
