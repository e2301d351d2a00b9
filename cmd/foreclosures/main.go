package main

import (
	"foreclosure-backend/cmd/foreclosures/commands"
	"foreclosure-backend/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	commands.Execute(ctx)
}
