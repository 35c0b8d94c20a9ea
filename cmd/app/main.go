package main

import (
	"github.com/lidiakram/bottlespin/internal/app"
	"github.com/lidiakram/bottlespin/internal/config"
)

func main() {
	app.Go(config.Load())
}
