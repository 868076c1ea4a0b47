package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/adminapi"
	"github.com/ummitifli/storefront/internal/app"
	"github.com/ummitifli/storefront/internal/storefront"
	"github.com/ummitifli/storefront/internal/webserver"
)

var (
	version  = "develop"
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	dev      = flag.Bool("dev", false, "development mode")
	showconf = flag.Bool("showconf", false, "print the effective config and exit")
)

func printHelp() {
	if *h {
		ustr := fmt.Sprintf("storefront version: %s, Usage: storefront -h\nOptions:", version)
		_, _ = fmt.Fprint(os.Stderr, ustr)
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		os.Exit(0)
	}
	printHelp()

	cfg := config.LoadConfig(*conffile)
	if *dev {
		cfg.System.Debug = true
		cfg.Logger.Mode = "development"
	}

	if *showconf {
		out, _ := yaml.Marshal(cfg)
		fmt.Print(string(out))
		os.Exit(0)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "storefront init failed: %v\n", err)
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		application.InitDb()
		return
	}

	webserver.Init(cfg, webserver.Options{
		AppContext: application,
		Identity:   application.Identity(),
		Validator:  admin.Validator(),
	})
	storefront.Init()
	adminapi.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Server().Start(ctx)
	})
	g.Go(func() error {
		return application.RunJobs(ctx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("storefront stopped: %v", err)
		application.Release()
		os.Exit(1)
	}
	zap.S().Info("storefront stopped")
}
