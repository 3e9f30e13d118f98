package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/mdouchement/sharelist/internal/server"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dbname = "sharelist.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "sharelist",
		Short:   "Multi-device list-sharing server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	reindexCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(reindexCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		logrus.Fatalf("%+v", err)
	}
}

func konfiguration() (*koanf.Koanf, error) {
	konf := koanf.New(".")
	err := konf.Load(file.Provider(cfg), yaml.Parser())
	return konf, errors.Wrap(err, "could not load configuration")
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

func setupLogger(konf *koanf.Koanf) {
	if logfile := konf.String("log.file"); logfile != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    konf.Int("log.max_size"), // megabytes
			MaxBackups: 2,
		}))
	}

	if konf.Bool("log.verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := konfiguration()
			if err != nil {
				return err
			}

			return database.StormInit(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	reindexCmd = &coral.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := konfiguration()
			if err != nil {
				return err
			}

			return database.StormReIndex(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := konfiguration()
			if err != nil {
				return err
			}
			setupLogger(konf)

			if konf.String("secret_key") == "" {
				return errors.New("secret_key not found")
			}

			db, err := database.StormOpen(dbnameWithPath(konf.String("database_path")))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			engine := server.EchoEngine(server.Controller{
				Version:             version,
				Database:            db,
				Hub:                 realtime.NewHub(),
				NoRegistration:      konf.Bool("no_registration"),
				SigningKey:          konf.MustBytes("secret_key"),
				TokenExpirationTime: konf.MustDuration("token_ttl"),
			})
			server.PrintRoutes(engine)

			address := konf.String("address")
			logrus.Infof("Server listening on %s", address)
			return errors.Wrap(engine.Start(address), "could not run server")
		},
	}
)
