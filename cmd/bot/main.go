package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"termbot/internal/app"
)

func main() {
	var (
		cfgPath string
		envFile string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json (defaults are used if missing)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file with credentials")
	flag.BoolVar(&once, "once", false, "post once (with retries) and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath, app.Options{EnvFile: envFile})
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if once {
		res := a.RunOnce(ctx)
		_ = a.Close()
		if !res.OK() {
			os.Exit(1)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	_ = a.Close()
}
