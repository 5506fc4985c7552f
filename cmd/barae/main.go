package main

import (
	"fmt"
	"os"

	"github.com/tech-arch1tect/barae/app"
)

func main() {
	application, err := app.NewApp().WithAutoConfig().Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "barae:", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "barae:", err)
		os.Exit(1)
	}
}
