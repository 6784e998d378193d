package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"nexo_bot/internal"
)

func main() {
	if err := internal.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
