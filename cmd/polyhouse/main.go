package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/polyhouse/internal/api"
	"github.com/lox/polyhouse/internal/export"
	"github.com/lox/polyhouse/internal/ingest"
	"github.com/lox/polyhouse/internal/logger"
	"github.com/lox/polyhouse/internal/source"
	"github.com/lox/polyhouse/internal/store"
	"github.com/lox/polyhouse/internal/tui"
	"github.com/lox/polyhouse/internal/viewer"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file.'"`

	Log logger.Config `embed:"" prefix:"log-"`

	Serve  ServeCmd  `cmd:"" help:"Run the sensor API, dashboard and MQTT ingest."`
	View   ViewCmd   `cmd:"" help:"Browse readings in the terminal."`
	Export ExportCmd `cmd:"" help:"Fetch readings once and export them as CSV."`
}

type ServeCmd struct {
	DB            string `name:"db" env:"POLYHOUSE_DB" default:"data/polyhouse.db" help:"Path to SQLite database."`
	Addr          string `env:"POLYHOUSE_ADDR" default:":8080" help:"HTTP listen address."`
	MQTTBroker    string `name:"mqtt-broker" env:"POLYHOUSE_MQTT_BROKER" help:"MQTT broker URL (tcp://host:1883). Empty disables MQTT ingest."`
	MQTTTopic     string `name:"mqtt-topic" env:"POLYHOUSE_MQTT_TOPIC" default:"polyhouse/temperature" help:"Topic devices publish readings to."`
	RetentionDays int    `env:"POLYHOUSE_RETENTION_DAYS" default:"30" help:"Days to keep archived raw payloads."`
	PageSizes     []int  `env:"POLYHOUSE_PAGE_SIZES" default:"5,10,20,50" help:"Page sizes offered on the dashboard."`
}

func (c *ServeCmd) Run(log zerolog.Logger) error {
	if dir := filepath.Dir(c.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(db, log)
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("db", c.DB).Msg("database migrated")

	ing := ingest.NewIngestor(st, log)
	server := api.NewServer(st, ing, c.Addr, log)
	server.SetPageSizes(c.PageSizes)

	go ingest.NewScheduler(st, c.RetentionDays, log).Run(ctx)

	if c.MQTTBroker != "" {
		sub := ingest.NewSubscriber(ingest.MQTTOptions{
			BrokerURL: c.MQTTBroker,
			Topic:     c.MQTTTopic,
			QoS:       1,
		}, ing, log)
		go func() {
			if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("mqtt subscriber stopped")
			}
		}()
	} else {
		log.Info().Msg("mqtt ingest disabled")
	}

	return server.Run(ctx)
}

type ViewCmd struct {
	Root     string `env:"POLYHOUSE_ROOT" default:"http://localhost:8080/sensors" help:"API root serving {root}/data."`
	PageSize int    `env:"POLYHOUSE_PAGE_SIZE" default:"10" help:"Initial page size (5, 10, 20 or 50)."`
	OutDir   string `env:"POLYHOUSE_OUT_DIR" default:"." help:"Directory exports are written to."`
	LogFile  string `env:"POLYHOUSE_LOG_FILE" help:"Write logs to this file. Logs are discarded when empty."`
}

func (c *ViewCmd) Run(cfg *logger.Config) error {
	// the terminal belongs to the UI, so logs go elsewhere
	var w io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		w = f
	}
	log, err := logger.NewWithWriter(cfg, w)
	if err != nil {
		return err
	}

	client := source.NewClient(c.Root, source.WithLogger(log))
	model := tui.New(client, export.FileSink{Dir: c.OutDir},
		viewer.WithPageSize(c.PageSize),
		viewer.WithLogger(log),
	)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

type ExportCmd struct {
	Root        string        `env:"POLYHOUSE_ROOT" default:"http://localhost:8080/sensors" help:"API root serving {root}/data."`
	OutDir      string        `env:"POLYHOUSE_OUT_DIR" default:"." help:"Directory the CSV is written to."`
	FTPAddr     string        `name:"ftp-addr" env:"POLYHOUSE_FTP_ADDR" help:"Upload to this FTP server (host:port) instead of a local file."`
	FTPUser     string        `name:"ftp-user" env:"POLYHOUSE_FTP_USER" help:"FTP user. Empty logs in anonymously."`
	FTPPassword string        `name:"ftp-password" env:"POLYHOUSE_FTP_PASSWORD" help:"FTP password."`
	FTPDir      string        `name:"ftp-dir" env:"POLYHOUSE_FTP_DIR" help:"Remote directory for uploads."`
	Timeout     time.Duration `env:"POLYHOUSE_EXPORT_TIMEOUT" default:"1m" help:"Overall deadline for fetch and upload."`
}

func (c *ExportCmd) sink() export.Sink {
	if c.FTPAddr != "" {
		return export.FTPSink{
			Addr:     c.FTPAddr,
			User:     c.FTPUser,
			Password: c.FTPPassword,
			Dir:      c.FTPDir,
		}
	}
	return export.FileSink{Dir: c.OutDir}
}

func (c *ExportCmd) Run(log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, c.Timeout)
	defer cancelTimeout()

	vm := viewer.New(logRenderer{log: log}, viewer.WithLogger(log))
	if err := vm.Load(ctx, source.NewClient(c.Root, source.WithLogger(log))); err != nil {
		return err
	}

	sink := c.sink()
	name, err := vm.Export(ctx, sink)
	if err != nil {
		return err
	}
	if fs, ok := sink.(export.FileSink); ok {
		name = fs.Path(name)
	}
	fmt.Println(name)
	return nil
}

// logRenderer surfaces view model notices as log lines for headless use.
type logRenderer struct {
	log zerolog.Logger
}

func (logRenderer) RenderRows([]viewer.Row)  {}
func (logRenderer) SetSummary(string)        {}
func (logRenderer) SetNavigation(bool, bool) {}
func (r logRenderer) Notify(msg string)      { r.log.Warn().Msg(msg) }

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("polyhouse"),
		kong.Description("Polyhouse water temperature monitoring."),
		kong.UsageOnError(),
	)

	log, err := logger.New(&cli.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx.FatalIfErrorf(kctx.Run(log, &cli.Log))
}
