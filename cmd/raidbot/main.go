package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/m3rciful/raidbot/core/buildinfo"
	corecmd "github.com/m3rciful/raidbot/core/cmd"
	"github.com/m3rciful/raidbot/internal/app"
)

func main() {
	version := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()
	if *version {
		fmt.Println(buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			c, ok := cfg.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(ctx, c)
		},
	})
	if err != nil {
		log.Printf("raidbot: %v", err)
		os.Exit(1)
	}
}
