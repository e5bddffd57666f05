// The main package for the inspire-crawler executable.
package main

import (
	"github.com/inspirehep/inspire-crawler/cmd"
)

func main() {
	cmd.Execute()
}
