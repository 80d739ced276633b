// Command qrng draws random bits by measuring qubits in uniform
// superposition on the matrix product state simulator.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/theapemachine/qmps"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "qrng", ReportTimestamp: true})

	app := &cli.App{
		Name:  "qrng",
		Usage: "generate random bits from simulated qubit measurements",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "qubits", Aliases: []string{"n"}, Value: 5, Usage: "qubits measured per shot"},
			&cli.IntFlag{Name: "shots", Aliases: []string{"s"}, Value: 1024, Usage: "number of shots"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, drawn at random when unset"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "bits", Usage: "shot file name without extension"},
			&cli.StringFlag{Name: "pool", Value: "pool.txt", Usage: "file the raw bits are appended to"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "simulator config file"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "skip the counts table"},
			&cli.BoolFlag{Name: "debug", Usage: "log at debug level"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger.SetLevel(log.DebugLevel)
			}

			config, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}
			config.Logger = logger

			job := Job{
				Qubits:   c.Int("qubits"),
				Shots:    c.Int("shots"),
				Seed:     c.Uint64("seed"),
				Out:      c.String("out"),
				PoolFile: c.String("pool"),
			}
			if !c.IsSet("seed") {
				job.Seed = newSeed()
			}

			counts, err := job.Run(c.Context, config)
			if err != nil {
				return err
			}

			logger.Info("job done", "shots", job.Shots, "outcomes", len(counts), "out", job.Out+".zip")
			if !c.Bool("quiet") {
				printCounts(os.Stdout, counts, job.Shots)
			}
			return nil
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal("qrng failed", "err", err)
	}
}

/*
loadConfig reads simulator settings from path, when given, and from
QRNG_-prefixed environment variables.
*/
func loadConfig(path string) (*qmps.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("qrng")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	return qmps.ConfigFromViper(v)
}
