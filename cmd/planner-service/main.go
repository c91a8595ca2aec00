package main

import (
	"os"

	"github.com/lodestone-app/lodestone/plannerservice"
)

func main() {
	if err := plannerservice.Run(); err != nil {
		os.Exit(1)
	}
}
