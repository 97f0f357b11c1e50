package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sunflowerpos/sunflower/config"
	"github.com/sunflowerpos/sunflower/internal/adminapi"
	"github.com/sunflowerpos/sunflower/internal/app"
	"github.com/sunflowerpos/sunflower/internal/webserver"
	"go.uber.org/zap"
)

var (
	h         = flag.Bool("h", false, "help usage")
	showVer   = flag.Bool("v", false, "show version")
	conffile  = flag.String("c", "", "config yaml file")
	initdb    = flag.Bool("initdb", false, "reset all collections and seed the default admin")
	machineID = flag.Bool("machine-id", false, "print the machine id used for activation")
	activate  = flag.String("activate", "", "activate this installation with the given token")
)

const version = "1.0.0"

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		os.Exit(0)
	}
	if *h {
		flag.Usage()
		os.Exit(0)
	}

	cfg := config.LoadConfig(*conffile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "init failed:", err)
		os.Exit(1)
	}
	defer application.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *initdb:
		if err := application.InitDb(ctx); err != nil {
			zap.S().Errorf("initdb failed: %v", err)
			return
		}
		zap.S().Info("database initialized")
		return
	case *machineID:
		short, err := application.License().ShortID()
		if err != nil {
			zap.S().Errorf("machine id unavailable: %v", err)
			return
		}
		fmt.Println(short)
		return
	case *activate != "":
		if err := application.License().Activate(ctx, *activate); err != nil {
			zap.S().Errorf("activation failed: %v", err)
			return
		}
		fmt.Println("activated")
		return
	}

	webserver.Init(cfg)
	adminapi.Init(application)
	if err := webserver.Listen(ctx); err != nil {
		zap.S().Errorf("web server stopped: %v", err)
	}
}
