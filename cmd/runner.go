package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/julianstephens/church-latin/internal/pocketbase"
	"github.com/julianstephens/church-latin/internal/repositories"
	"github.com/julianstephens/church-latin/internal/seeder"
	"github.com/julianstephens/church-latin/internal/shared"
	"github.com/urfave/cli/v3"
)

// Backend is the PocketBase surface the CLI needs: the seeder operations plus a health check.
type Backend interface {
	seeder.Backend
	Health(ctx context.Context) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The config, backend and history database are resolved on first use so that commands which
// need none of them (validate, setup config) work without a reachable backend.
type Runner struct {
	config     *shared.Config
	configPath string
	backend    Backend
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Backend    Backend
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		backend:    opts.Backend,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		seedCommand, validateCommand, statusCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the history database if the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		r.ownsDB = false
		return r.db.Close()
	}
	return nil
}

// loadConfig resolves the configuration once: the TOML file named by --config (defaults when
// absent), then the --env-file dotenv file, then environment overrides.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := r.configPath
	if path == "" {
		path = cmd.String("config")
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
		r.logger.Debug("loaded config", "path", path)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := shared.LoadEnv(cmd.String("env-file")); err != nil {
		return nil, err
	}
	config.ApplyEnv()

	r.config = config
	r.configPath = path
	return config, nil
}

// client returns the backend, creating a PocketBase client from the config on first use.
func (r *Runner) client(cmd *cli.Command) (Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	httpClient := r.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.PocketBase.Timeout()}
	}

	if !config.PocketBase.HasCredentials() {
		r.logger.Warn("no superuser credentials configured; requests will be anonymous",
			"hint", "set "+shared.EnvPocketBaseEmail+" and "+shared.EnvPocketBasePassword)
	}

	r.backend = pocketbase.NewClient(pocketbase.Options{
		BaseURL:           config.PocketBase.URL,
		AuthCollection:    config.PocketBase.AuthCollection,
		Email:             config.PocketBase.Email,
		Password:          config.PocketBase.Password,
		RequestsPerSecond: config.PocketBase.RequestsPerSecond,
		HTTPClient:        httpClient,
	})
	r.logger.Debug("created PocketBase client", "url", config.PocketBase.URL)
	return r.backend, nil
}

// database opens the run history database on first use.
func (r *Runner) database(cmd *cli.Command) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	r.db, r.ownsDB = db, true
	return db, nil
}

// history returns the run repository, applying pending migrations first.
func (r *Runner) history(cmd *cli.Command) (*repositories.SeedRunRepository, error) {
	db, err := r.database(cmd)
	if err != nil {
		return nil, err
	}

	if err := shared.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repositories.NewSeedRunRepository(db), nil
}

// fixturePath maps a seeder definition to its fixture file, honouring --data-dir.
func (r *Runner) fixturePath(config *shared.Config, dataDir string) func(seeder.Definition) string {
	seed := config.Seed
	if dataDir != "" {
		seed.DataDir = dataDir
	}

	return func(def seeder.Definition) string {
		name := def.Fixture
		switch def.Name {
		case seeder.Modules.Name:
			name = orDefault(seed.ModulesFile, name)
		case seeder.Lessons.Name:
			name = orDefault(seed.LessonsFile, name)
		case seeder.Quizzes.Name:
			name = orDefault(seed.QuizzesFile, name)
		}
		return seed.FixturePath(name)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
