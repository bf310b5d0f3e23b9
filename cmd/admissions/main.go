package main

import (
	"context"

	"gaokao-admissions/cmd/admissions/commands"
	"gaokao-admissions/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
