package main

import (
	"github.com/edujtm/rabbit-values-producer/internal/config"
	"github.com/urfave/cli/v2"
)

// runFlags returns the CLI flags. Their defaults come from the environment
// so a flag only needs to be passed to override it.
func runFlags(defaults config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "rabbit-url",
			Usage: "The RabbitMQ server address",
			Value: defaults.RabbitURL,
		},
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "The port where the service will listen for incoming connections",
			Value:   defaults.Port,
		},
		&cli.StringFlag{
			Name:    "queue",
			Aliases: []string{"q"},
			Usage:   "The queue values are published to",
			Value:   defaults.Queue,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level (debug, info, warn, error)",
			Value: defaults.LogLevel,
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log output format (console or json)",
			Value: defaults.LogFormat,
		},
		&cli.DurationFlag{
			Name:  "connect-timeout",
			Usage: "How long to wait for the RabbitMQ connection at startup",
			Value: defaults.ConnectTimeout,
		},
		&cli.DurationFlag{
			Name:  "shutdown-timeout",
			Usage: "How long in-flight requests get to finish on shutdown",
			Value: defaults.ShutdownTimeout,
		},
		&cli.BoolFlag{
			Name:  "declare-on-startup",
			Usage: "Declare the queue once before serving so conflicts abort startup",
			Value: defaults.DeclareOnStartup,
		},
	}
}

func configFromFlags(c *cli.Context) config.Config {
	return config.Config{
		RabbitURL:        c.String("rabbit-url"),
		Port:             c.String("port"),
		Queue:            c.String("queue"),
		LogLevel:         c.String("log-level"),
		LogFormat:        c.String("log-format"),
		ConnectTimeout:   c.Duration("connect-timeout"),
		ShutdownTimeout:  c.Duration("shutdown-timeout"),
		DeclareOnStartup: c.Bool("declare-on-startup"),
	}
}
