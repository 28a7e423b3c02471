// Package main is the brewguard command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	// Flags.
	flagModel      = "model"
	flagLib        = "lib"
	flagConfig     = "config"
	flagBackend    = "backend"
	flagSize       = "size"
	flagConfidence = "confidence"
	flagClassScore = "class-score"
	flagJSON       = "json"
	flagAnnotate   = "annotate"
	flagDebug      = "debug"
	flagEnvFile    = "env-file"
	flagSrc        = "src"
	flagDir        = "dir"
	flagIterations = "iterations"
	flagWarmup     = "warmup"
	flagOut        = "out"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	libFlag := &cli.StringFlag{
		Name:    flagLib,
		Usage:   "onnxruntime shared library `PATH`",
		EnvVars: []string{"ONNXRUNTIME_SHARED_LIBRARY_PATH"},
	}
	modelFlag := &cli.StringFlag{
		Name:    flagModel,
		Aliases: []string{"m"},
		Usage:   "ONNX model `FILE`",
		EnvVars: []string{"BREWGUARD_MODEL"},
	}
	configFlag := &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "load detector configuration from `FILE`",
	}
	backendFlag := &cli.StringFlag{
		Name:  flagBackend,
		Value: "cpu",
		Usage: "execution provider: cpu, coreml, cuda or openvino",
	}

	return &cli.App{
		Name:  "brewguard",
		Usage: "detect coffee leaf conditions in photos",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagEnvFile,
				Value: ".env",
				Usage: "load environment variables from `FILE` when it exists",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnv(c.String(flagEnvFile), c.IsSet(flagEnvFile)); err != nil {
				return err
			}
			logger, err := newLogger(c.Bool(flagDebug))
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{"logger": logger}
			return nil
		},
		After: func(c *cli.Context) error {
			_ = loggerFrom(c).Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "run detection on image files or directories",
				ArgsUsage: "FILE|DIR...",
				Flags: []cli.Flag{
					modelFlag,
					libFlag,
					backendFlag,
					configFlag,
					&cli.IntFlag{
						Name:  flagSize,
						Usage: "model input size in pixels",
					},
					&cli.Float64Flag{
						Name:  flagConfidence,
						Usage: "confidence threshold",
					},
					&cli.Float64Flag{
						Name:  flagClassScore,
						Usage: "class score threshold",
					},
					&cli.BoolFlag{
						Name:  flagJSON,
						Usage: "print results as JSON",
					},
					&cli.StringFlag{
						Name:  flagAnnotate,
						Usage: "write annotated copies of the images to `DIR`",
					},
				},
				Action: DetectAction,
			},
			{
				Name:      "bench",
				Usage:     "measure detection throughput and stage timings",
				ArgsUsage: "FILE|DIR...",
				Flags: []cli.Flag{
					modelFlag,
					libFlag,
					backendFlag,
					configFlag,
					&cli.IntFlag{Name: flagIterations, Value: 100, Usage: "measured detections"},
					&cli.IntFlag{Name: flagWarmup, Value: 5, Usage: "unmeasured warmup detections"},
					&cli.StringFlag{Name: flagOut, Usage: "write JSON and CSV results to `DIR`"},
				},
				Action: BenchAction,
			},
			{
				Name:   "inspect",
				Usage:  "print the inputs and outputs of a model",
				Flags:  []cli.Flag{modelFlag, libFlag, backendFlag},
				Action: InspectAction,
			},
			{
				Name:  "stage",
				Usage: "copy a packaged model into a writable directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagSrc, Usage: "packaged model `FILE`", Required: true},
					&cli.StringFlag{Name: flagDir, Usage: "destination `DIR`", Required: true},
				},
				Action: StageAction,
			},
		},
	}
}

// loadEnv loads a dotenv file without overriding variables already set. A
// missing default file is not an error.
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return config.Build()
}

func loggerFrom(c *cli.Context) *zap.Logger {
	if l, ok := c.App.Metadata["logger"].(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
