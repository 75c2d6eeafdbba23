package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"gopkg.in/yaml.v3"

	"github.com/EngineHub/WorldEdit-sub015/expression"
	"github.com/EngineHub/WorldEdit-sub015/internal/config"
	"github.com/EngineHub/WorldEdit-sub015/internal/telemetry"
	"github.com/EngineHub/WorldEdit-sub015/lang"
	"github.com/EngineHub/WorldEdit-sub015/parser"
	"github.com/EngineHub/WorldEdit-sub015/shape"
)

var usage = heredoc.Doc(`
	Usage:
	  wexpr [flags] -e EXPR        evaluate EXPR once
	  wexpr [flags] FILE | -       evaluate a script file or standard input
	  wexpr [flags] -generate EXPR -region X1,Y1,Z1:X2,Y2,Z2
	                               print the voxels of a generated shape
	  wexpr [flags]                start an interactive session

	Shape expressions receive x, y, z scaled into -1..1 across the region by
	default, plus the default type and data; a positive result places a block.

	Flags:
`)

// paramFlag collects repeated -p name=value flags in order.
type paramFlag struct {
	names  []string
	values []float64
}

func (p *paramFlag) String() string {
	parts := make([]string, len(p.names))
	for i, name := range p.names {
		parts[i] = name + "=" + lang.FormatNumber(p.values[i])
	}
	return strings.Join(parts, ",")
}

func (p *paramFlag) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}
	p.names = append(p.names, name)
	p.values = append(p.values, v)
	return nil
}

type options struct {
	expr       string
	file       string
	params     paramFlag
	timeout    time.Duration
	loopLimit  int
	configPath string
	generate   string
	region     string
	zero       string
	unit       string
	workers    int
	maxVolume  int
	batch      time.Duration
	hollow     bool
	format     string
	trace      bool
	ast        bool
	verbose    bool
}

// app carries what a single invocation needs.
type app struct {
	opts     options
	settings config.Settings
	inst     telemetry.Instrumenter
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	logger   *log.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	fs := flag.NewFlagSet("wexpr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	o := &a.opts
	fs.StringVar(&o.expr, "e", "", "expression to evaluate")
	fs.StringVar(&o.file, "f", "", "script file to evaluate (- for standard input)")
	fs.Var(&o.params, "p", "parameter `name=value`; repeatable, in order")
	fs.DurationVar(&o.timeout, "timeout", config.DefaultTimeoutMS*time.Millisecond, "evaluation budget per run or per voxel (0 disables)")
	fs.IntVar(&o.loopLimit, "loop-limit", config.DefaultLoopLimit, "iterations allowed per loop (0 disables)")
	fs.StringVar(&o.configPath, "config", "", "settings file (default "+config.DefaultPath()+")")
	fs.StringVar(&o.generate, "generate", "", "shape expression to generate")
	fs.StringVar(&o.region, "region", "", "generation region `x1,y1,z1:x2,y2,z2`")
	fs.StringVar(&o.zero, "zero", "", "origin of the shape coordinates `x,y,z` (default region centre)")
	fs.StringVar(&o.unit, "unit", "", "size of one shape unit `x,y,z` (default half the region size)")
	fs.IntVar(&o.workers, "workers", 0, "generation workers (0 uses every CPU)")
	fs.IntVar(&o.maxVolume, "max-volume", shape.DefaultMaxVolume, "largest region -generate accepts, in voxels")
	fs.DurationVar(&o.batch, "batch-timeout", 0, "budget for a whole -generate run (0 disables)")
	fs.BoolVar(&o.hollow, "hollow", false, "generate only the surface of the shape")
	fs.StringVar(&o.format, "format", "text", "voxel output format: text, json or yaml")
	fs.BoolVar(&o.trace, "trace", false, "export OpenTelemetry spans")
	fs.BoolVar(&o.ast, "ast", false, "print the compiled tree instead of evaluating")
	fs.BoolVar(&o.verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logOut := io.Discard
	if o.verbose {
		logOut = stderr
	}
	a.logger = log.New(logOut, "wexpr: ", 0)

	if err := a.loadSettings(fs); err != nil {
		fmt.Fprintf(stderr, "wexpr: %v\n", err)
		return 1
	}
	if err := a.startTelemetry(); err != nil {
		fmt.Fprintf(stderr, "wexpr: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.inst.Shutdown(ctx); err != nil {
			a.logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	var err error
	switch {
	case o.generate != "":
		err = a.runGenerate(context.Background())
	case o.expr != "":
		err = a.runOnce(context.Background(), o.expr)
	case o.file != "" || fs.NArg() > 0:
		path := o.file
		if path == "" {
			path = fs.Arg(0)
		}
		var src string
		src, err = a.readScript(path)
		if err == nil {
			err = a.runOnce(context.Background(), src)
		}
	default:
		err = a.runREPL(context.Background())
	}

	var report *shape.TimeoutReport
	switch {
	case errors.As(err, &report):
		fmt.Fprintf(stderr, "wexpr: %v (increase with -timeout)\n", err)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "wexpr: %v\n", err)
		return 1
	}
	return 0
}

// loadSettings reads the settings file and lets explicitly set flags win.
func (a *app) loadSettings(fs *flag.FlagSet) error {
	settings, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["timeout"] {
		a.opts.timeout = settings.Timeout()
	}
	if !set["loop-limit"] {
		a.opts.loopLimit = settings.Loops()
	}
	if !set["workers"] {
		a.opts.workers = settings.Workers
	}
	if !set["max-volume"] && settings.MaxVolume > 0 {
		a.opts.maxVolume = settings.MaxVolume
	}
	a.settings = settings
	return nil
}

func (a *app) startTelemetry() error {
	a.inst = telemetry.Noop()
	if !a.opts.trace {
		return nil
	}
	cfg := telemetry.ConfigFromEnv(os.Getenv)
	fromFile := a.settings.Telemetry
	if cfg.Endpoint == "" {
		cfg.Endpoint = fromFile.Endpoint
		cfg.Insecure = cfg.Insecure || fromFile.Insecure
	}
	if fromFile.ServiceName != "" && os.Getenv("WEXPR_OTEL_SERVICE") == "" {
		cfg.ServiceName = fromFile.ServiceName
	}
	if cfg.Headers == nil {
		cfg.Headers = fromFile.Headers
	}
	if !cfg.Enabled() {
		return errors.New("-trace needs an endpoint: set WEXPR_OTEL_ENDPOINT or [telemetry] endpoint")
	}
	inst, err := telemetry.New(cfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.inst = inst
	return nil
}

func (a *app) expressionOptions() expression.Options {
	opts := expression.DefaultOptions()
	opts.Timeout = a.opts.timeout
	opts.LoopLimit = a.opts.loopLimit
	return opts
}

func (a *app) readScript(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// compile wraps compilation in a telemetry span.
func (a *app) compile(ctx context.Context, src string, params ...string) (*expression.Expression, error) {
	_, span := a.inst.StartCompile(ctx, src)
	start := time.Now()
	expr, err := expression.CompileWith(src, a.expressionOptions(), params...)
	pos := -1
	if p, ok := parser.ErrorPosition(err); ok {
		pos = p
	}
	span.End(telemetry.Result{Err: err, ErrPos: pos})
	if err != nil {
		return nil, err
	}
	a.logger.Printf("compiled in %s", time.Since(start))
	return expr, nil
}

func (a *app) runOnce(ctx context.Context, src string) error {
	expr, err := a.compile(ctx, src, a.opts.params.names...)
	if err != nil {
		return err
	}
	if a.opts.ast {
		fmt.Fprintln(a.stdout, expr.Root())
		return nil
	}
	start := time.Now()
	v, err := expr.EvaluateWithin(ctx, a.opts.params.values, nil, a.opts.timeout)
	if err != nil {
		return err
	}
	a.logger.Printf("evaluated in %s", time.Since(start))
	fmt.Fprintln(a.stdout, lang.FormatNumber(v))
	if a.opts.verbose {
		for _, name := range expr.Names() {
			value, _ := expr.Variable(name)
			fmt.Fprintf(a.stdout, "%s = %s\n", name, lang.FormatNumber(value))
		}
	}
	return nil
}

// shapeTransform returns the zero and unit flags, defaulting to the region
// centre and half the region size as //generate does.
func (a *app) shapeTransform(region shape.Region) (shape.Vec3, shape.Vec3, error) {
	zero := region.Center()
	unit := shape.Vec3{
		X: float64(region.Max.X) - zero.X,
		Y: float64(region.Max.Y) - zero.Y,
		Z: float64(region.Max.Z) - zero.Z,
	}
	var err error
	if a.opts.zero != "" {
		if zero, err = shape.ParseVec3(a.opts.zero); err != nil {
			return zero, unit, fmt.Errorf("-zero: %w", err)
		}
	}
	if a.opts.unit != "" {
		if unit, err = shape.ParseVec3(a.opts.unit); err != nil {
			return zero, unit, fmt.Errorf("-unit: %w", err)
		}
	}
	return zero, unit, nil
}

func (a *app) runGenerate(ctx context.Context) error {
	if a.opts.region == "" {
		return errors.New("-generate needs -region")
	}
	region, err := shape.ParseRegion(a.opts.region)
	if err != nil {
		return fmt.Errorf("-region: %w", err)
	}
	zero, unit, err := a.shapeTransform(region)
	if err != nil {
		return err
	}
	switch a.opts.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q", a.opts.format)
	}

	expr, err := a.compile(ctx, a.opts.generate, shape.Params...)
	if err != nil {
		return err
	}
	opts := shape.Options{
		Zero:      zero,
		Unit:      unit,
		Timeout:   a.opts.timeout,
		Workers:   a.opts.workers,
		Hollow:    a.opts.hollow,
		Default:   shape.Block{Type: 1},
		MaxVolume: a.opts.maxVolume,
	}
	if a.opts.batch > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.batch)
		defer cancel()
	}
	volume, _ := region.Volume()
	ctx, span := a.inst.StartGenerate(ctx, telemetry.GenerateStart{
		Source:  a.opts.generate,
		Region:  region.String(),
		Volume:  volume,
		Workers: opts.Workers,
		Hollow:  opts.Hollow,
		Timeout: opts.Timeout,
	})
	start := time.Now()
	voxels, genErr := shape.Generate(ctx, expr, region, opts)
	result := telemetry.Result{ErrPos: -1, Voxels: len(voxels)}
	var report *shape.TimeoutReport
	switch {
	case errors.As(genErr, &report):
		result.TimedOut = report.TimedOut
	case genErr != nil:
		result.Err = genErr
		var eerr *lang.EvalError
		if errors.As(genErr, &eerr) {
			result.ErrPos = eerr.Pos
		}
	}
	span.End(result)
	if errors.Is(genErr, context.DeadlineExceeded) && a.opts.batch > 0 {
		return fmt.Errorf("generation ran past -batch-timeout %s: %w", a.opts.batch, genErr)
	}
	if genErr != nil && report == nil {
		return genErr
	}
	a.logger.Printf("generated %d of %d voxels in %s", len(voxels), volume, time.Since(start))

	if err := writeVoxels(a.stdout, voxels, a.opts.format); err != nil {
		return err
	}
	return genErr
}

func writeVoxels(w io.Writer, voxels []shape.Voxel, format string) error {
	if voxels == nil {
		voxels = []shape.Voxel{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(voxels)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(voxels); err != nil {
			return err
		}
		return enc.Close()
	default:
		for _, v := range voxels {
			if _, err := fmt.Fprintf(w, "%d %d %d %d:%d\n", v.X, v.Y, v.Z, v.Type, v.Data); err != nil {
				return err
			}
		}
		return nil
	}
}
