package main

import (
	"context"

	"geostat/cmd/geostat/commands"
	"geostat/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext(context.Background()))
}
