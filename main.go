package main

import (
	"github.com/ColonelBlimp/cwtutor/cmd"
	"github.com/ColonelBlimp/cwtutor/internal/recovery"
)

func main() {
	defer recovery.HandlePanic(nil)
	cmd.Execute()
}
