package main

import (
	"fmt"
	"os"

	"github.com/noonaei/appsFlyer-hackathon/internal/ctl"
)

func main() {
	if err := ctl.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
