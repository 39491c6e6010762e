package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/rhino1998/smali/pkg/executor"
	"github.com/rhino1998/smali/pkg/vm"
)

func newLogger(debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "debug",
		Aliases: []string{"d"},
		Usage:   "log every executed instruction",
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := &cli.Command{
		Name:  "smali",
		Usage: "The smali bytecode interpreter",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Load smali classes and run an entry method",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					debugFlag(),
					&cli.StringFlag{
						Name:  "entry",
						Usage: "class descriptor holding the entry method, e.g. Lcom/example/Main;",
					},
					&cli.StringFlag{
						Name:  "method",
						Usage: "entry method signature, e.g. run()I",
					},
					&cli.IntFlag{
						Name:  "max-steps",
						Usage: "abort after this many instructions",
					},
					&cli.IntFlag{
						Name:  "max-depth",
						Usage: "abort when calls nest deeper than this",
					},
					&cli.StringFlag{
						Name:  "trace",
						Usage: "record every executed instruction to `FILE` as CBOR",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("must provide one smali file or directory as argument")
					}

					logger := newLogger(c.Bool("debug"))

					p, err := openProject(logger, c.Args().First())
					if err != nil {
						return err
					}

					config := p.config(c.Int("max-steps"), int(c.Int("max-depth")))

					var traceFile *os.File
					var traceOut io.Writer
					if path := c.String("trace"); path != "" {
						traceFile, err = os.Create(path)
						if err != nil {
							return fmt.Errorf("failed to create trace: %w", err)
						}
						traceOut = traceFile
					}

					v, ret, err := p.run(ctx, logger, config, c.String("entry"), c.String("method"), traceOut)

					if traceFile != nil {
						closeErr := traceFile.Close()
						if closeErr != nil && err == nil {
							err = fmt.Errorf("failed to write trace: %w", closeErr)
						}
					}

					if err != nil {
						return err
					}

					logger.Debug("finished", slog.Int64("steps", v.Steps()))

					fmt.Println(ret)
					return nil
				},
			},
			{
				Name:      "check",
				Usage:     "Parse and link smali classes without running them",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{debugFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("must provide one smali file or directory as argument")
					}

					logger := newLogger(c.Bool("debug"))

					p, err := openProject(logger, c.Args().First())
					if err != nil {
						return err
					}

					v, err := vm.New(logger, p.config(0, 0))
					if err != nil {
						return fmt.Errorf("failed to initialize vm: %w", err)
					}

					err = v.Load(p.classes...)
					if err != nil {
						return err
					}

					err = v.Link(ctx)
					if err != nil {
						return err
					}

					for _, desc := range v.Classes() {
						fmt.Println(desc)
					}
					return nil
				},
			},
			{
				Name:  "opcodes",
				Usage: "List supported opcodes and their aliases",
				Action: func(ctx context.Context, c *cli.Command) error {
					registry := executor.Default()
					for _, op := range registry.Opcodes() {
						fmt.Println(strings.Join(registry.Names(op), " "))
					}
					return nil
				},
			},
		},
	}

	err := cmd.Run(ctx, os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}
