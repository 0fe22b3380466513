package main

import (
	"context"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2" // Command line flag parsing.

	"github.com/kibtools/kibtools/internal/app/exporter" // App implementation.
)

func main() {
	app := exporter.NewApp()
	kingpin.MustParse(app.Parse(os.Args[1:]))
	app.Main(context.Background())
}
