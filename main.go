package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/hostinfo"
	"github.com/df07/go-sphere-pathtracer/pkg/renderer"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// options holds the parsed command line
type options struct {
	sceneType string
	width     int
	aspect    float64
	samples   int
	depth     int
	workers   int
	seed      int64
	format    string
	out       string
	help      bool
}

// newFlagSet registers every command line flag against opts
func newFlagSet(opts *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pathtracer", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.sceneType, "scene", "random", "Scene to render (see -help for the list)")
	fs.IntVar(&opts.width, "width", 0, "Image width in pixels (0 = scene default)")
	fs.Float64Var(&opts.aspect, "aspect", 0, "Aspect ratio width/height (0 = scene default)")
	fs.IntVar(&opts.samples, "samples", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&opts.depth, "depth", -1, "Maximum bounce depth (-1 = scene default)")
	fs.IntVar(&opts.workers, "workers", 0, "Number of parallel workers (0 = logical CPU count)")
	fs.Int64Var(&opts.seed, "seed", 0, "Random seed for scene layout and sampling (0 = clock)")
	fs.StringVar(&opts.format, "format", "ppm", "Output format: 'ppm' or 'png'")
	fs.StringVar(&opts.out, "out", "", "Output file (default: stdout for ppm, output/<scene>/render_<timestamp>.png for png)")
	fs.BoolVar(&opts.help, "help", false, "Show help information")
	return fs
}

// parseFlags parses args into options
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	if err := newFlagSet(&opts, output).Parse(args); err != nil {
		return options{}, err
	}

	if opts.format != "ppm" && opts.format != "png" {
		return options{}, fmt.Errorf("unknown format %q: must be 'ppm' or 'png'", opts.format)
	}
	if opts.width < 0 || opts.aspect < 0 || opts.samples < 0 || opts.workers < 0 || opts.depth < -1 {
		return options{}, errors.New("numeric options must not be negative")
	}
	return opts, nil
}

// printHelp shows usage and the available scenes
func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Sphere Path Tracer")
	fmt.Fprintln(w, "Usage: pathtracer [options] > image.ppm")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	newFlagSet(&options{}, w).PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Available scenes:")
	for _, info := range scene.ListScenes() {
		fmt.Fprintf(w, "  %-11s - %s\n", info.ID, info.Description)
	}
}

// createScene builds the selected scene with command line overrides applied
func createScene(opts options) (*scene.Scene, error) {
	sceneObj, err := scene.Create(opts.sceneType, scene.Options{
		Seed: opts.seed,
		Camera: geometry.CameraConfig{
			Width:       opts.width,
			AspectRatio: opts.aspect,
		},
	})
	if err != nil {
		return nil, err
	}

	override := scene.SamplingConfig{
		SamplesPerPixel: opts.samples,
		Seed:            opts.seed,
	}
	sceneObj.SamplingConfig = scene.MergeSamplingConfig(sceneObj.SamplingConfig, override)
	if opts.depth >= 0 {
		// Merging skips zero, and depth 0 is a valid request
		sceneObj.SamplingConfig.MaxDepth = opts.depth
	}
	return sceneObj, nil
}

// createOutputDir returns the directory renders of a scene are saved in
func createOutputDir(sceneType string) string {
	return filepath.Join("output", sceneType)
}

// openOutput returns the writer for the rendered image and the name to report
func openOutput(opts options, stdout io.Writer) (io.Writer, func() error, string, error) {
	filename := opts.out
	if filename == "" && opts.format == "png" {
		outputDir := createOutputDir(opts.sceneType)
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, nil, "", fmt.Errorf("error creating output directory: %w", err)
		}
		timestamp := time.Now().Format("20060102_150405")
		filename = filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))
	}

	if filename == "" || filename == "-" {
		return stdout, func() error { return nil }, "stdout", nil
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, nil, "", fmt.Errorf("error creating file: %w", err)
	}
	return file, file.Close, filename, nil
}

// run renders the selected scene and writes the image
func run(ctx context.Context, opts options, stdout io.Writer, logger core.Logger) error {
	selectedScene, err := createScene(opts)
	if err != nil {
		return err
	}

	config := selectedScene.SamplingConfig
	logger.Printf("Using %s scene (%d primitives), %dx%d, %d samples, depth %d",
		opts.sceneType, selectedScene.GetPrimitiveCount(), config.Width, config.Height,
		config.SamplesPerPixel, config.MaxDepth)

	raytracer, err := renderer.NewRaytracer(selectedScene, renderer.Config{
		NumWorkers: opts.workers,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	fb, stats, err := raytracer.Render(ctx)
	if err != nil {
		return err
	}
	logger.Printf("Samples per pixel: %.1f over %d pixels, %d workers",
		stats.AverageSamples, stats.TotalPixels, stats.Workers)

	w, closeOutput, name, err := openOutput(opts, stdout)
	if err != nil {
		return err
	}
	if err := renderer.Write(w, fb, opts.format); err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("error closing output: %w", err)
	}

	logger.Printf("Render saved to %s", name)
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		printHelp(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Show help if requested
	if opts.help {
		printHelp(os.Stdout)
		return
	}

	logger := renderer.NewDefaultLogger()
	logger.Printf("Starting Sphere Path Tracer...")
	if info, err := hostinfo.Describe(); err == nil {
		logger.Printf("Host: %s", info)
	}

	startTime := time.Now()
	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
	logger.Printf("Done in %v", time.Since(startTime))
}
