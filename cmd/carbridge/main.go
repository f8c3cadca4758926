package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/carbridge-io/carbridge/cmd/carbridge/app"
)

func main() {
	app.Run()
}
