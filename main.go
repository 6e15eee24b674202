package main

import (
	"github.com/sw33tLie/galshelf/cmd"
)

func main() {
	cmd.Execute()
}
