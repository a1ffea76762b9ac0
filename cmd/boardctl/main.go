// cmd/boardctl/main.go
package main

import (
	"os"

	"github.com/gookit/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red.Println(err)
		os.Exit(1)
	}
}
