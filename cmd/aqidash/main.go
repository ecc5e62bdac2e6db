package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/cenkalti/backoff/v4"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/aqidash/internal/api"
	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/export"
	"github.com/lox/aqidash/internal/filters"
	"github.com/lox/aqidash/internal/gateway"
	"github.com/lox/aqidash/internal/httputil"
	"github.com/lox/aqidash/internal/refresh"
	"github.com/lox/aqidash/internal/store"
	"github.com/lox/aqidash/internal/tui"
)

type CLI struct {
	APIURL  string        `name:"api-url" help:"Base URL of the air quality analytics API." env:"AQIDASH_API_URL" default:"http://localhost:8000"`
	DB      string        `help:"Path to SQLite audit database." env:"AQIDASH_DB" default:"data/aqidash.db" type:"path"`
	Timeout time.Duration `help:"Per-request timeout for API calls." env:"AQIDASH_TIMEOUT" default:"30s"`

	ExportDir  string `help:"Directory exported workbooks are written to." env:"AQIDASH_EXPORT_DIR" default:"exports" type:"path"`
	ExportName string `help:"Base name of exported workbooks." env:"AQIDASH_EXPORT_NAME" default:"aqi-dashboard-data"`

	FTPAddr     string `name:"ftp-addr" help:"FTP host:port to publish exports to (disabled when empty)." env:"AQIDASH_FTP_ADDR"`
	FTPUser     string `name:"ftp-user" env:"AQIDASH_FTP_USER"`
	FTPPassword string `name:"ftp-password" env:"AQIDASH_FTP_PASSWORD"`
	FTPDir      string `name:"ftp-dir" env:"AQIDASH_FTP_DIR"`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Run the browser dashboard."`
	TUI    TUICmd    `cmd:"" name:"tui" help:"Run the terminal dashboard."`
	Export ExportCmd `cmd:"" help:"Apply the filters once and export the workbook."`
	States StatesCmd `cmd:"" help:"List the states and date span the API holds."`
}

type ServeCmd struct {
	Port      string        `help:"HTTP server port." env:"AQIDASH_PORT" default:"8080"`
	Refresh   time.Duration `help:"Re-apply the filters on this interval (0 disables)." env:"AQIDASH_REFRESH" default:"0s"`
	Retention int           `help:"Days of archived responses to keep (0 keeps everything)." env:"AQIDASH_RETENTION_DAYS" default:"30"`
}

type TUICmd struct{}

type ExportCmd struct {
	States []string `help:"States to include (defaults to the dashboard defaults)."`
	Preset string   `help:"Date range preset (7d, 30d, 3m, 6m, 1y, all)."`
}

type StatesCmd struct{}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("aqidash"),
		kong.Description("Air quality dashboard client."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := ctx.Run(&cli); err != nil {
		log.Fatal(err)
	}
}

// app is the wiring shared by every command.
type app struct {
	store    *store.Store
	client   *gateway.Client
	dash     *dashboard.Dashboard
	exporter *export.Exporter
}

func (c *CLI) open() (*app, error) {
	if err := os.MkdirAll(filepath.Dir(c.DB), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	st, err := store.Open(c.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Println("database migrated")

	client := gateway.NewClient(c.APIURL,
		gateway.WithHTTPClient(httputil.NewSessionClient(c.Timeout)),
		gateway.WithAuditor(st),
	)

	exporter := &export.Exporter{
		Dir:      c.ExportDir,
		BaseName: c.ExportName,
		Recorder: st,
	}
	if c.FTPAddr != "" {
		exporter.Publisher = &export.FTPPublisher{
			Addr:     c.FTPAddr,
			User:     c.FTPUser,
			Password: c.FTPPassword,
			Dir:      c.FTPDir,
			Timeout:  c.Timeout,
		}
	}

	return &app{
		store:    st,
		client:   client,
		dash:     dashboard.New(client),
		exporter: exporter,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}

// loadReference seeds the date range from the API's data span. A failure is
// logged and the defaults kept.
func (a *app) loadReference(ctx context.Context) *gateway.Reference {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Minute

	ref, err := a.client.LoadReference(ctx, bo)
	if err != nil {
		log.Printf("reference data unavailable, using default date range: %v", err)
		return nil
	}
	if a.dash.Filters.InitFromBounds(ref.Bounds) {
		v := a.dash.Filters.Values()
		log.Printf("date range set to %s - %s", v.Range.Start.Format("2006-01-02"), v.Range.End.Format("2006-01-02"))
	}
	return &ref
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (s *ServeCmd) Run(cli *CLI) error {
	a, err := cli.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a.loadReference(ctx)
	a.dash.Apply(ctx)

	sched := refresh.New(a.dash, s.Refresh, a.store, s.Retention)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(a.dash, a.exporter, a.store, s.Port)
	log.Printf("starting server on :%s", s.Port)
	return server.Run(ctx)
}

func (t *TUICmd) Run(cli *CLI) error {
	// The alt screen owns stdout, so logs go to a file instead.
	f, err := os.OpenFile(filepath.Join(filepath.Dir(cli.DB), "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	a, err := cli.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a.loadReference(ctx)
	return tui.Run(ctx, a.dash, a.exporter)
}

func (e *ExportCmd) Run(cli *CLI) error {
	a, err := cli.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a.loadReference(ctx)
	if len(e.States) > 0 {
		a.dash.Filters.SelectStates(e.States)
	}
	if e.Preset != "" {
		p, err := filters.ParsePreset(e.Preset)
		if err != nil {
			return err
		}
		if err := a.dash.Filters.ApplyPreset(p, time.Now()); err != nil {
			return err
		}
	}

	a.dash.Apply(ctx).Wait()
	for _, sl := range a.dash.Data.Snapshot().Slots() {
		if sl.Status == dashboard.StatusFailed {
			log.Printf("%s: %s", sl.Key, sl.Reason())
		}
	}

	now := time.Now()
	res, err := a.exporter.Export(ctx, a.dash.ExportSnapshot(now), now)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Println(res.Path)
	return nil
}

func (s *StatesCmd) Run(cli *CLI) error {
	a, err := cli.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ref := a.loadReference(ctx)
	if ref == nil {
		return fmt.Errorf("reference data unavailable")
	}
	fmt.Printf("data from %d/%d to %d/%d\n", ref.Bounds.Min.Month, ref.Bounds.Min.Year, ref.Bounds.Max.Month, ref.Bounds.Max.Year)
	for _, st := range ref.States {
		fmt.Println(st)
	}
	return nil
}
