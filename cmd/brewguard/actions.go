package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/nvr-ai/brewguard/benchmark"
	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/controller"
	"github.com/nvr-ai/brewguard/detector"
	"github.com/nvr-ai/brewguard/images"
	"github.com/nvr-ai/brewguard/inference/providers"
	"github.com/nvr-ai/brewguard/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// report is the printed result for one image file.
type report struct {
	Path    string           `json:"path"`
	ImageID string           `json:"image_id"`
	State   string           `json:"state"`
	Result  *detector.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Kind    common.Kind      `json:"error_kind,omitempty"`
}

// detectorConfig layers the config file and flags over the defaults.
func detectorConfig(c *cli.Context) (detector.Config, error) {
	config := detector.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		loaded, err := detector.LoadConfig(path)
		if err != nil {
			return config, err
		}
		config = loaded
	}
	if c.IsSet(flagModel) {
		config.Model.Path = c.String(flagModel)
	}
	if c.IsSet(flagSize) {
		config.Model.InputSize = c.Int(flagSize)
	}
	if c.IsSet(flagConfidence) {
		config.Thresholds.Confidence = float32(c.Float64(flagConfidence))
	}
	if c.IsSet(flagClassScore) {
		config.Thresholds.ClassScore = float32(c.Float64(flagClassScore))
	}
	if config.Model.Path == "" {
		return config, errors.New("a model is required: pass --model or set model.path in --config")
	}
	return config, config.Validate()
}

func sessionConfig(c *cli.Context) (providers.Config, error) {
	config := providers.DefaultConfig()
	backend, err := providers.ParseBackend(c.String(flagBackend))
	if err != nil {
		return config, err
	}
	config.Backend = backend
	config.ModelPath = c.String(flagModel)
	return config, nil
}

func newRuntime(c *cli.Context, logger *zap.Logger) (*providers.Runtime, error) {
	return providers.NewRuntime(providers.RuntimeConfig{
		SharedLibraryPath: c.String(flagLib),
		Verbose:           c.Bool(flagDebug),
	}, logger)
}

// collectFiles expands directories and reads every image argument.
func collectFiles(args []string) ([]util.ImageFile, error) {
	var files []util.ImageFile
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		var batch []util.ImageFile
		if info.IsDir() {
			batch, err = util.LoadDirectoryImageFiles(arg)
		} else {
			batch, err = util.ReadImageFiles([]string{arg})
		}
		if err != nil {
			return nil, err
		}
		files = append(files, batch...)
	}
	return files, nil
}

// DetectAction runs one detection per image, in order.
func DetectAction(c *cli.Context) (err error) {
	logger := loggerFrom(c)
	if c.NArg() == 0 {
		return errors.New("no images given")
	}

	config, err := detectorConfig(c)
	if err != nil {
		return err
	}
	session, err := sessionConfig(c)
	if err != nil {
		return err
	}
	session.ModelPath = config.Model.Path

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}

	rt, err := newRuntime(c, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	d, err := detector.NewBuilder().
		WithConfig(config).
		WithSession(rt, session).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, d.Close()) }()

	ctrl := controller.New(d, logger)
	reports := make([]report, 0, len(files))
	failed := 0
	for _, f := range files {
		if err := c.Context.Err(); err != nil {
			return err
		}
		id := ctrl.SetImage(f.Data)
		r := report{Path: f.Path, ImageID: id}

		outcome, runErr := ctrl.Run(c.Context)
		if outcome != nil {
			r.State = outcome.State.String()
			r.Result = outcome.Result
		}
		if runErr != nil {
			failed++
			r.State = controller.StateFailed.String()
			r.Error = runErr.Error()
			r.Kind = common.KindOf(runErr)
		} else if dir := c.String(flagAnnotate); dir != "" && outcome.State == controller.StateDetections {
			if err := annotate(dir, f, outcome.Result, config.AutoOrient); err != nil {
				logger.Warn("failed to annotate image", zap.String("path", f.Path), zap.Error(err))
			}
		}
		reports = append(reports, r)
	}
	ctrl.Clear()

	if c.Bool(flagJSON) {
		err = printJSON(c.App.Writer, reports)
	} else {
		err = printTable(c.App.Writer, reports)
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d images failed", failed, len(reports)), 1)
	}
	return nil
}

func printJSON(w io.Writer, reports []report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func printTable(w io.Writer, reports []report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tCONDITION\tSCORE\tBOX")
	for _, r := range reports {
		name := filepath.Base(r.Path)
		switch {
		case r.Error != "":
			fmt.Fprintf(tw, "%s\terror: %s\t\t\n", name, r.Error)
		case r.Result == nil || r.Result.Empty():
			fmt.Fprintf(tw, "%s\tno detections\t\t\n", name)
		default:
			for _, det := range r.Result.Detections {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", name, det.Label, det.Score, det.Box)
			}
		}
	}
	return tw.Flush()
}

func annotate(dir string, f util.ImageFile, res *detector.Result, autoOrient bool) error {
	raw, err := images.Decode(f.Data, images.WithAutoOrientation(autoOrient))
	if err != nil {
		return err
	}
	rects := make([]image.Rectangle, len(res.Detections))
	for i, det := range res.Detections {
		rects[i] = det.Box.ToRect(raw.Width, raw.Height)
	}
	out, err := images.Outline(raw, rects, color.NRGBA{R: 255, G: 32, B: 32, A: 255}, 3)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)) + ".jpg"
	w, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	return multierr.Append(images.Encode(w, out, images.FormatJPEG), w.Close())
}

// BenchAction runs a benchmark scenario over the given images.
func BenchAction(c *cli.Context) (err error) {
	logger := loggerFrom(c)
	if c.NArg() == 0 {
		return errors.New("no images given")
	}
	config, err := detectorConfig(c)
	if err != nil {
		return err
	}
	session, err := sessionConfig(c)
	if err != nil {
		return err
	}
	session.ModelPath = config.Model.Path

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}

	rt, err := newRuntime(c, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	d, err := detector.NewBuilder().
		WithConfig(config).
		WithSession(rt, session).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, d.Close()) }()

	suite, err := benchmark.NewSuite(d, files, logger)
	if err != nil {
		return err
	}
	m, err := suite.RunScenario(c.Context, benchmark.Scenario{
		Name:       string(session.Backend),
		Iterations: c.Int(flagIterations),
		WarmupRuns: c.Int(flagWarmup),
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tMIN\tMEAN\tMAX")
	for _, st := range []struct {
		name string
		m    benchmark.StageMetrics
	}{
		{"decode", m.Decode},
		{"preprocess", m.Preprocess},
		{"inference", m.Inference},
		{"postprocess", m.Postprocess},
	} {
		fmt.Fprintf(tw, "%s\t%v\t%v\t%v\n", st.name, st.m.Min, st.m.Mean, st.m.Max)
	}
	fmt.Fprintf(tw, "throughput\t%.2f images/s\terror rate %.2f%%\t\n", m.ImagesPerSecond, m.ErrorRate*100)
	if err := tw.Flush(); err != nil {
		return err
	}

	if dir := c.String(flagOut); dir != "" {
		paths, err := suite.SaveResults(dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(c.App.Writer, p)
		}
	}
	return nil
}

// InspectAction prints the model's inputs and outputs.
func InspectAction(c *cli.Context) (err error) {
	logger := loggerFrom(c)
	config, err := sessionConfig(c)
	if err != nil {
		return err
	}
	if config.ModelPath == "" {
		return errors.New("--model is required")
	}

	rt, err := newRuntime(c, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	inputs, outputs, err := rt.ModelInfo(config.ModelPath)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tSHAPE\tTYPE")
	for _, in := range inputs {
		fmt.Fprintf(tw, "input\t%s\t%v\t%v\n", in.Name, in.Dimensions, in.DataType)
	}
	for _, out := range outputs {
		fmt.Fprintf(tw, "output\t%s\t%v\t%v\n", out.Name, out.Dimensions, out.DataType)
	}
	return tw.Flush()
}

// StageAction copies the packaged model into a writable directory.
func StageAction(c *cli.Context) error {
	path, err := util.StageModel(c.String(flagSrc), c.String(flagDir))
	if err != nil {
		return err
	}
	loggerFrom(c).Info("model staged", zap.String("path", path))
	fmt.Fprintln(c.App.Writer, path)
	return nil
}
