package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/astei/voxelwire/config"
	"github.com/astei/voxelwire/nbt"
	"github.com/astei/voxelwire/protocol"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "voxelwire",
		Usage: "a Minecraft " + protocol.VersionName + " server for flat worlds",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "log at debug level in a human readable format"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "runs the server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
					&cli.StringFlag{Name: "address", Usage: "address to listen on"},
					&cli.BoolFlag{Name: "online-mode", Usage: "authenticate players with the session server"},
					&cli.IntFlag{Name: "max-players"},
					&cli.IntFlag{Name: "view-distance"},
					&cli.IntFlag{Name: "compression-threshold", Usage: "smallest packet to compress, -1 disables"},
				},
				Action: serve,
			},
			{
				Name:      "nbt",
				Usage:     "prints an NBT file, compressed or not",
				ArgsUsage: "<file>",
				Action:    dumpNBT,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig reads the configuration file and applies the flags that were set on top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("address") {
		cfg.Address = c.String("address")
	}
	if c.IsSet("online-mode") {
		cfg.OnlineMode = c.Bool("online-mode")
	}
	if c.IsSet("max-players") {
		cfg.MaxPlayers = c.Int("max-players")
	}
	if c.IsSet("view-distance") {
		cfg.ViewDistance = c.Int("view-distance")
	}
	if c.IsSet("compression-threshold") {
		cfg.CompressionThreshold = c.Int("compression-threshold")
	}
	return cfg, cfg.Validate()
}

func serve(c *cli.Context) error {
	logger, err := newLogger(c.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	srv, err := NewServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go reloadOnHangup(ctx, srv, cfg, logger)
	return srv.ListenAndServe(ctx)
}

// reloadOnHangup rereads the registry file on SIGHUP and sends every player through
// configuration again so they receive it.
func reloadOnHangup(ctx context.Context, srv *Server, cfg config.Config, logger *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			regs, err := loadRegistries(cfg)
			if err != nil {
				logger.Error("reloading registries", zap.Error(err))
				continue
			}
			logger.Info("reconfiguring players", zap.Int("registries", len(regs)))
			srv.Reconfigure(regs)
		}
	}
}

func dumpNBT(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("need an NBT file to print", 1)
	}
	name, root, compression, err := nbt.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	if c.Bool("debug") {
		_, _ = fmt.Fprintf(os.Stderr, "compression: %d\n", compression)
	}
	_, err = fmt.Fprintln(c.App.Writer, nbt.Stringify(name, root))
	return err
}
