// migrate applies the embedded SQL migrations to the configured postgres database.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	list := flag.Bool("list", false, "List embedded migrations and exit")
	flag.Parse()

	if *list {
		names, err := database.MigrationFiles()
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	var cfg config.Config
	if err := config.LoadConfig(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := database.Migrate(cfg.Database.ConnectionString(), *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
