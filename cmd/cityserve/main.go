// Copyright 2025 The CityServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the city prefix filter server and CLI [DBG] application.

CityServe narrows a dataset of US cities by a typed "begins with" prefix. Each
request returns a bounded random sample of the matches for a map layer and a
breakdown of the matches by their next character. Narrowing prefixes reuse the
previous sample instead of rescanning the whole dataset.

# Usage

Start the stdio server with default settings:

	cityserve

Use a custom dataset and enable debug mode:

	cityserve --data /path/to/cities.csv -d

Run the interactive shell, the websocket server or a one-off export:

	cityserve cli
	cityserve ws --addr 127.0.0.1:8765
	cityserve export -p "san " -o san.geojson

The dataset is a CSV with a header row (id, city, state, latitude, longitude)
or a compact JSON array of {"id","la","lo","ci","st"} objects, optionally
gzipped. Without --data the binary looks for data/cities.* next to itself.

# Configuration

Runtime configuration is a TOML file created with defaults when missing:

	[filter]
	sample_cap = 5000
	min_per_group = 30

	[input]
	debounce_ms = 800
	max_prefix = 60

# IPC Protocol

The server communicates via MessagePack over stdin/stdout, see pkg/server.

	{"id": "req1", "action": "input", "p": "bos"}
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/cityserve/internal/cli"
	"github.com/bastiangx/cityserve/internal/logger"
	"github.com/bastiangx/cityserve/internal/utils"
	"github.com/bastiangx/cityserve/pkg/citydata"
	"github.com/bastiangx/cityserve/pkg/config"
	"github.com/bastiangx/cityserve/pkg/filter"
	"github.com/bastiangx/cityserve/pkg/markers"
	"github.com/bastiangx/cityserve/pkg/server"
	"github.com/bastiangx/cityserve/pkg/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0-beta"
	AppName = "cityserve"
	gh      = "https://github.com/bastiangx/cityserve"
)

// flags shared by every subcommand
var (
	dataPath   string
	configPath string
	debugMode  bool
	noSession  bool
	sessionID  string
)

// app is what every mode needs once flags are parsed.
type app struct {
	cfg        *config.Config
	configPath string
	dataFile   string
	dataset    filter.Dataset
	index      *filter.Index
	store      session.Store
	resolver   *utils.PathResolver
}

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler(onExit func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		if onExit != nil {
			onExit()
		}
		os.Exit(0)
	}()
}

// main only builds the command tree, each mode lives in its own run func.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   AppName,
		Short: "Serves US cities by the prefix of their name",
		Long:  "CityServe filters US cities by a typed prefix and serves a map sample plus a begins-with breakdown over msgpack IPC.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDebug(debugMode)
		},
		SilenceUsage: true,
		RunE:         runServe,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&dataPath, "data", "", "City dataset file or a directory holding cities.csv/cities.json")
	pf.StringVar(&configPath, "config", "", "Path to a custom config.toml")
	pf.BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")
	pf.BoolVar(&noSession, "no-session", false, "Keep the last prefix in memory only")
	pf.StringVar(&sessionID, "session", server.DefaultSessionID, "Session id used to store the last prefix")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the msgpack IPC server on stdin/stdout (default)",
			RunE:  runServe,
		},
		newWSCmd(),
		&cobra.Command{
			Use:   "cli",
			Short: "Interactive shell for testing prefixes",
			RunE:  runCLI,
		},
		newExportCmd(),
		newConfigCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show current version",
			Run:   func(cmd *cobra.Command, args []string) { showVersion() },
		},
	)
	return root
}

func newWSCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "ws",
		Short: "Serve the IPC protocol over websockets plus a /geojson endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if addr == "" {
				addr = a.cfg.Server.WSAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			showStartupInfo(a, "ws://"+addr+"/ws")
			return server.NewWSServer(a.deps("ws")).ServeWS(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var prefix, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the sample for a prefix as GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			cache := filter.NewCacheWithIndex(a.dataset, a.index,
				filter.WithSampleCap(a.cfg.Filter.SampleCap),
				filter.WithMinPerGroup(a.cfg.Filter.MinPerGroup))
			res := cache.Filter(prefix)
			data, err := markers.MarshalGeoJSON(markers.FromSample(res.Sample, len([]rune(res.Query.Prefix))))
			if err != nil {
				return err
			}
			log.Debug("export", "prefix", prefix, "sample", len(res.Sample), "total", res.Total)

			if out == "" || out == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s cities to %s %s\n",
				utils.FormatWithCommas(len(res.Sample)), out, session.FormatFragment(prefix))
			return nil
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Prefix to filter by, quoted for an exact match")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the active config file, or rebuild it with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				if err := config.RebuildConfigFile(); err != nil {
					return fmt.Errorf("failed to rebuild config: %w", err)
				}
				fmt.Println("config rebuilt with defaults")
			}
			cfg, path, err := config.LoadConfigWithPriority(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("config: %s\n", config.GetActiveConfigPath(path))
			fmt.Printf("sample_cap=%d min_per_group=%d debounce=%v max_prefix=%d ws_addr=%s session=%t\n",
				cfg.Filter.SampleCap, cfg.Filter.MinPerGroup, cfg.Debounce(), cfg.Input.MaxPrefix,
				cfg.Server.WSAddr, cfg.Session.Enabled)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Overwrite the default config file with defaults")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	sigHandler(func() { a.close() })
	defer a.close()

	if a.cfg.Server.EnableWS {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := server.NewWSServer(a.deps("ws")).ServeWS(ctx, a.cfg.Server.WSAddr); err != nil {
				log.Errorf("websocket server: %v", err)
			}
		}()
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(a.deps("ipc"), sessionID)
	showStartupInfo(a, "stdio")
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func runCLI(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	sigHandler(func() { a.close() })
	defer a.close()
	log.SetReportTimestamp(false)

	cache := filter.NewCacheWithIndex(a.dataset, a.index,
		filter.WithSampleCap(a.cfg.Filter.SampleCap),
		filter.WithMinPerGroup(a.cfg.Filter.MinPerGroup),
		filter.WithLogger(logger.New("cli")))
	h := cli.NewInputHandler(cache, os.Stdin, os.Stdout, a.cfg.Input.MaxPrefix, a.cfg.CLI.ShowStats)
	return h.Start()
}

// loadApp resolves paths, reads config and loads the dataset.
func loadApp() (*app, error) {
	resolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		return nil, fmt.Errorf("failed to initialize path resolver: %w", err)
	}
	a := &app{resolver: resolver}

	if configPath != "" {
		a.cfg, a.configPath, err = config.LoadConfigWithPriority(configPath)
	} else {
		a.configPath, err = resolver.GetConfigPath("config.toml")
		if err == nil {
			a.cfg, err = config.InitConfig(a.configPath)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Debugf("Using config file: (%s)", a.configPath)

	a.dataFile, err = resolver.GetDataFile(dataPath)
	if err != nil {
		log.Print("Did you forget to pass --data or place cities.csv in data/?")
		return nil, err
	}
	ds, stats, err := citydata.Load(a.dataFile)
	if err != nil {
		return nil, err
	}
	if stats.Skipped > 0 {
		log.Warnf("Skipped %d of %d rows in %s", stats.Skipped, stats.Rows, a.dataFile)
	}
	log.Debug("dataset loaded", "file", a.dataFile, "format", stats.Format, "cities", stats.Loaded)

	a.dataset = ds
	a.index = filter.NewIndex(ds)
	a.store = openStore(a.cfg, resolver)
	return a, nil
}

// openStore picks the session store. A badger dir that cannot be opened,
// e.g. locked by another instance, falls back to memory.
func openStore(cfg *config.Config, resolver *utils.PathResolver) session.Store {
	if noSession || !cfg.Session.Enabled {
		return session.NewMemoryStore()
	}
	dir := cfg.Session.Dir
	if dir == "" {
		dir = resolver.GetSessionDir()
	}
	store, err := session.OpenBadger(dir)
	if err != nil {
		log.Warnf("%v. Keeping sessions in memory.", err)
		return session.NewMemoryStore()
	}
	return store
}

func (a *app) deps(prefix string) server.Deps {
	return server.Deps{
		Dataset: a.dataset,
		Index:   a.index,
		Config:  a.cfg,
		Store:   a.store,
		Logger:  logger.New(prefix),
	}
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Errorf("Failed to close session store: %v", err)
		}
		a.store = nil
	}
}

func showVersion() {
	banner := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ CityServe ] Which US cities begin with...?")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(a *app, transport string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" CityServe ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("dataset: ( %s ) %s cities", a.dataFile, utils.FormatWithCommas(a.dataset.Len()))
	log.Infof("transport: %s", transport)
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
