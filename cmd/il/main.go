package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/incidentline/internal/datasource"
	"github.com/vanderheijden86/incidentline/pkg/config"
	"github.com/vanderheijden86/incidentline/pkg/debug"
	"github.com/vanderheijden86/incidentline/pkg/export"
	"github.com/vanderheijden86/incidentline/pkg/hooks"
	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/server"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
	_ "github.com/vanderheijden86/incidentline/pkg/ttyguard"
	"github.com/vanderheijden86/incidentline/pkg/ui"
	"github.com/vanderheijden86/incidentline/pkg/version"
	"github.com/vanderheijden86/incidentline/pkg/watcher"
)

func main() {
	fileFlag := flag.String("file", "", "Incident file (.json, .db, .sqlite); defaults to the first argument or the most recent file")
	configFlag := flag.String("config", "", "Config file (default ~/.config/incidentline/config.yaml)")
	exportFlag := flag.String("export", "", "Write a timeline snapshot (.svg or .png) and exit")
	widthFlag := flag.Float64("width", 1200, "Viewport width in pixels for --export and headless output")
	zoomFlag := flag.Float64("zoom", 0, "Zoom level for --export and headless output")
	panFlag := flag.Float64("pan", 0, "Pan ratio in [0,1] for --export and headless output")
	serveFlag := flag.String("serve", "", "Serve the render API on addr (\"config\" uses server.listen)")
	noWatch := flag.Bool("no-watch", false, "Do not reload the incident when its file changes")
	noHooks := flag.Bool("no-hooks", false, "Do not run hooks from .il/hooks.yaml")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *help {
		fmt.Println("Usage: il [options] [incident-file]")
		fmt.Println("\nAn incident timeline viewer: alerts as bars, operation records as markers.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("il %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path, err := resolvePath(*fileFlag, flag.Args(), cfg.RecentFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inc, err := datasource.Load(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading incident: %v\n", err)
		os.Exit(1)
	}
	rememberRecent(cfg, *configFlag, path)

	view := viewParams{Width: *widthFlag, Zoom: *zoomFlag, Pan: *panFlag}

	hookExec, err := hooks.RunHooks("", *noHooks)
	if err != nil {
		// Non-fatal: run without hooks
		fmt.Fprintf(os.Stderr, "Warning: %v (hooks disabled)\n", err)
	}

	switch {
	case *serveFlag != "":
		addr := *serveFlag
		if addr == "config" {
			addr = cfg.Server.Listen
		}
		err = runServer(ctx, inc, engineOpts, cfg, path, addr, !*noWatch)

	case *exportFlag != "":
		err = runExport(inc, engineOpts, view, *exportFlag)
		if err == nil {
			fmt.Printf("Wrote %s\n", *exportFlag)
			if herr := runExportHooks(ctx, hookExec, inc, *exportFlag); herr != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", herr)
			}
		}

	case !term.IsTerminal(int(os.Stdout.Fd())):
		err = writeScene(os.Stdout, inc, engineOpts, view)

	default:
		err = runTUI(ctx, inc, engineOpts, cfg, path, !*noWatch, hookExec)
	}
	logTimings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// logTimings writes the collected timing metrics to the debug log (IL_DEBUG).
func logTimings() {
	if !debug.Enabled() {
		return
	}
	for _, st := range metrics.AllTimingStats() {
		debug.Log("timing %s: count=%d avg=%.3fms max=%.3fms total=%.3fms",
			st.Name, st.Count, st.AvgMs, st.MaxMs, st.TotalMs)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// resolvePath picks the incident file: the flag, then the first argument,
// then the most recently opened file.
func resolvePath(flagPath string, args, recent []string) (string, error) {
	switch {
	case flagPath != "":
		return flagPath, nil
	case len(args) > 0:
		return args[0], nil
	}
	for _, p := range recent {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no incident file given (use --file or pass a path)")
}

// rememberRecent records path in the recent list of the default config.
// Explicit --config files are left untouched.
func rememberRecent(cfg config.Config, configFlag, path string) {
	if configFlag != "" {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	cfg.AddRecent(abs)
	if err := config.Save(cfg); err != nil {
		debug.Log("config: save recent files: %v", err)
	}
}

// viewParams fixes the viewport for non-interactive output.
type viewParams struct {
	Width float64
	Zoom  float64
	Pan   float64
}

// layoutScene lays inc out once at a fixed viewport.
func layoutScene(inc *model.Incident, opts timeline.Options, v viewParams) timeline.Scene {
	e := timeline.NewEngine(opts, timeline.FixedSize{Width: v.Width})
	defer e.Close()
	e.SetIncident(inc)
	e.SetZoom(v.Zoom)
	e.SetPanRatio(v.Pan)
	return e.Scene()
}

func runExport(inc *model.Incident, opts timeline.Options, v viewParams, path string) error {
	return export.SaveSnapshot(export.SnapshotOptions{
		Path:     path,
		Incident: inc,
		Scene:    layoutScene(inc, opts, v),
	})
}

// runExportHooks hands a written snapshot to the post-export hooks.
func runExportHooks(ctx context.Context, exec *hooks.Executor, inc *model.Incident, path string) error {
	if exec == nil {
		return nil
	}
	return exec.RunPostExport(ctx, hooks.ExportContext{
		ExportPath:   path,
		ExportFormat: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		IncidentID:   inc.ID,
		RecordCount:  len(inc.Records),
		Timestamp:    time.Now(),
	})
}

// actionContext converts a viewer request for the on-action hooks.
func actionContext(inc *model.Incident, r ui.ActionRequest) hooks.ActionContext {
	return hooks.ActionContext{
		EventID:    r.EventID,
		Action:     string(r.Action),
		IncidentID: inc.ID,
		EntityID:   r.EntityID,
		NodeID:     r.NodeID,
		RecordIDs:  r.Records,
		Timestamp:  time.Now(),
	}
}

// writeScene prints the scene as JSON, for pipes and scripts.
func writeScene(w io.Writer, inc *model.Incident, opts timeline.Options, v viewParams) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(layoutScene(inc, opts, v))
}

func runServer(ctx context.Context, inc *model.Incident, opts timeline.Options, cfg config.Config, path, addr string, watch bool) error {
	logger, err := debug.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	srv := server.New(inc, opts, logger)
	if watch {
		w, err := startWatcher(ctx, path)
		if err != nil {
			logger.Sugar().Warnf("live reload disabled: %v", err)
		} else {
			defer w.Stop()
			go reloadLoop(ctx, w, path, srv.SetIncident, func(err error) {
				logger.Sugar().Errorf("reload %s: %v", path, err)
			})
		}
	}
	return srv.Run(ctx, addr)
}

func startWatcher(ctx context.Context, path string) (*watcher.Watcher, error) {
	w, err := watcher.New(path)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// reloadLoop reloads the incident on every change event until ctx ends or
// the watcher closes.
func reloadLoop(ctx context.Context, w *watcher.Watcher, path string, apply func(*model.Incident), onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			switch {
			case ev.Err != nil:
				onErr(ev.Err)
				continue
			case ev.Kind != watcher.EventChanged:
				onErr(fmt.Errorf("incident file %s", ev.Kind))
				continue
			}
			inc, err := datasource.Load(ctx, path)
			if err != nil {
				onErr(err)
				continue
			}
			apply(inc)
		}
	}
}

func runTUI(ctx context.Context, inc *model.Incident, opts timeline.Options, cfg config.Config, path string, watch bool, exec *hooks.Executor) error {
	var w *watcher.Watcher
	if watch {
		var err error
		if w, err = startWatcher(ctx, path); err != nil {
			debug.Log("watcher: %v", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	// Hooks run off the UI loop; failures only reach the debug log.
	var requests []ui.ActionRequest
	m := ui.NewModel(inc, ui.Options{
		Engine:  opts,
		UI:      cfg.UI,
		Path:    path,
		Watcher: w,
		OnAction: func(r ui.ActionRequest) {
			requests = append(requests, r)
			if exec == nil {
				return
			}
			ac := actionContext(inc, r)
			go func() {
				if err := exec.RunAction(ctx, ac); err != nil {
					debug.Log("hooks: %v", err)
				}
			}()
		},
		OnExport: func(p string) {
			go func() {
				if err := runExportHooks(ctx, exec, inc, p); err != nil {
					debug.Log("hooks: %v", err)
				}
			}()
		},
	})
	defer m.Close()

	if err := runTUIProgram(m); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}

	// Requested actions are handed on as JSON lines once the viewer exits.
	enc := json.NewEncoder(os.Stdout)
	for _, r := range requests {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set IL_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("IL_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
