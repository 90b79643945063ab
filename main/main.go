package main

import (
	"os"

	"github.com/synqronlabs/spfasn/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
