package platform

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	// Registers the generated OpenAPI document served under /swagger/.
	_ "github.com/EuPathDB/WSF/internal/apidocs"
	"github.com/EuPathDB/WSF/pkg/answer"
	anspg "github.com/EuPathDB/WSF/pkg/answer/postgres"
	"github.com/EuPathDB/WSF/pkg/api"
	"github.com/EuPathDB/WSF/pkg/audit"
	auditpg "github.com/EuPathDB/WSF/pkg/audit/postgres"
	"github.com/EuPathDB/WSF/pkg/auth"
	"github.com/EuPathDB/WSF/pkg/database/migrate"
	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/health"
	"github.com/EuPathDB/WSF/pkg/middleware"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/prompts"
	"github.com/EuPathDB/WSF/pkg/report"
	"github.com/EuPathDB/WSF/pkg/wsf"
)

const (
	openTimeout         = 30 * time.Second
	answerCleanupPeriod = time.Hour
	answerStoreDriver   = "postgres"
	auditCleanupPeriod  = time.Hour
	defaultListLimit    = 20
)

// Platform is the main platform facade.
type Platform struct {
	config    *Config
	lifecycle *Lifecycle
	health    *health.Checker

	// Core components
	platform  dbms.Platform
	model     *model.Model
	plugins   *wsf.Registry
	executor  *wsf.Executor
	reporters *answer.ReporterRegistry
	answers   *answer.Service
	answerDB  *sql.DB
	auditLog  audit.Logger
	login     *auth.LoginChecker

	// Surfaces
	apiHandler *api.Handler
	mcpServer  *mcp.Server
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	p := &Platform{
		config:    options.Config,
		lifecycle: NewLifecycle(),
		health:    health.NewChecker(),
	}

	if err := p.initializeComponents(options); err != nil {
		// Release whatever was opened before the failure.
		if stopErr := p.lifecycle.Stop(context.Background()); stopErr != nil {
			slog.Warn("releasing partially initialized platform", "error", stopErr)
		}
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initPlugins(opts); err != nil {
		return err
	}
	if err := p.initDatabase(opts); err != nil {
		return err
	}
	if err := p.initModel(opts); err != nil {
		return err
	}
	if err := p.initAnswers(opts); err != nil {
		return err
	}
	if err := p.initAudit(opts); err != nil {
		return err
	}
	if err := p.initAuth(); err != nil {
		return err
	}
	loaded := prompts.NewManager(prompts.Config{Dir: p.config.Server.PromptsDir})
	if err := loaded.Load(); err != nil {
		return err
	}
	p.finalizeSetup(loaded)
	return nil
}

// initPlugins creates the plugin registry and the executor plugin-backed
// queries invoke.
func (p *Platform) initPlugins(opts *Options) error {
	if opts.PluginRegistry != nil {
		p.plugins = opts.PluginRegistry
	} else {
		p.plugins = wsf.NewRegistry()
		wsf.RegisterBuiltinFactories(p.plugins)
	}

	names := make([]string, 0, len(p.config.Plugins.Definitions))
	for name := range p.config.Plugins.Definitions {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		def := p.config.Plugins.Definitions[name]
		if err := p.plugins.CreateAndRegister(wsf.Config{
			Kind:   def.Kind,
			Name:   name,
			Config: def.settings(),
		}); err != nil {
			return fmt.Errorf("creating plugin %s: %w", name, err)
		}
	}

	p.executor = wsf.NewExecutor(p.plugins, p.config.Plugins.ProjectID)
	return nil
}

// initDatabase opens the platform model SQL runs on.
func (p *Platform) initDatabase(opts *Options) error {
	if opts.Platform != nil {
		p.platform = opts.Platform
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()

		sp, err := dbms.Open(ctx, dbms.Options{
			Platform:        p.config.Database.Platform,
			DSN:             p.config.Database.DSN,
			MaxOpenConns:    p.config.Database.MaxOpenConns,
			ConnMaxLifetime: p.config.Database.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		p.platform = sp
		p.lifecycle.RegisterCloser("database", sp)
	}

	if pinger, ok := p.platform.(interface{ DB() *sql.DB }); ok {
		p.health.AddProbe("database", pinger.DB().PingContext)
	}
	return nil
}

// initModel loads the model definition.
func (p *Platform) initModel(opts *Options) error {
	if opts.Model != nil {
		p.model = opts.Model
		return nil
	}
	m, err := model.Load(p.config.Model.Path, p.platform, p.executor)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	p.model = m
	slog.Info("model loaded",
		"path", p.config.Model.Path,
		"questions", len(m.Questions()),
		"record_classes", len(m.RecordClasses()))
	return nil
}

// initAnswers creates the reporters, the answer factory and the service.
func (p *Platform) initAnswers(opts *Options) error {
	p.reporters = answer.NewReporterRegistry()
	if err := report.RegisterBuiltins(p.reporters); err != nil {
		return err
	}

	factory := opts.AnswerFactory
	if factory == nil {
		var err error
		if factory, err = p.createAnswerFactory(); err != nil {
			return fmt.Errorf("creating answer factory: %w", err)
		}
	}

	p.answers = answer.NewService(p.platform, factory, p.reporters)
	return nil
}

// createAnswerFactory creates the answer store based on config.
func (p *Platform) createAnswerFactory() (answer.Factory, error) {
	switch p.config.Answers.Store {
	case StorePostgres:
		db, err := sql.Open(answerStoreDriver, p.config.Answers.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening answer store: %w", err)
		}
		p.lifecycle.RegisterCloser("answer-db", db)
		p.answerDB = db
		p.health.AddProbe("answers", db.PingContext)

		if p.config.Answers.Migrate {
			if err := migrate.Run(db); err != nil {
				return nil, err
			}
		}

		store := anspg.New(db, anspg.Config{RetentionDays: p.config.Answers.RetentionDays})
		p.lifecycle.Add("answer-cleanup",
			func(_ context.Context) error {
				if p.config.Answers.RetentionDays > 0 {
					store.StartCleanupRoutine(answerCleanupPeriod)
				}
				return nil
			},
			func(_ context.Context) error { return store.Close() })
		return store, nil
	default:
		return answer.NewMemoryFactory(), nil
	}
}

// initAudit creates the tool call audit log when auditing is enabled.
func (p *Platform) initAudit(opts *Options) error {
	if opts.AuditLogger != nil {
		p.auditLog = opts.AuditLogger
		return nil
	}
	if !p.config.Audit.Enabled {
		return nil
	}

	switch p.config.Audit.Store {
	case StorePostgres:
		if p.answerDB == nil {
			return fmt.Errorf("audit store postgres requires the postgres answer store")
		}
		store := auditpg.New(p.answerDB, auditpg.Config{RetentionDays: p.config.Audit.RetentionDays})
		p.lifecycle.Add("audit-cleanup",
			func(_ context.Context) error {
				store.StartCleanupRoutine(auditCleanupPeriod)
				return nil
			},
			func(_ context.Context) error { return store.Close() })
		p.auditLog = store
	default:
		p.auditLog = audit.NewMemoryLogger(p.config.Audit.Capacity)
	}
	slog.Info("audit log enabled", "store", p.config.Audit.Store)
	return nil
}

// initAuth creates the login cookie checker when auth is enabled.
func (p *Platform) initAuth() error {
	if !p.config.Auth.Enabled {
		return nil
	}
	login, err := auth.NewLoginChecker(auth.LoginConfig{
		CookieName: p.config.Auth.CookieName,
		SigningKey: []byte(p.config.Auth.Secret),
		Issuer:     p.config.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("creating login checker: %w", err)
	}
	p.login = login
	return nil
}

// finalizeSetup builds the REST handler and the MCP server with its tools,
// resources and prompts.
func (p *Platform) finalizeSetup(loaded *prompts.Manager) {
	p.apiHandler = api.NewHandler(api.Deps{
		Model:   p.model,
		Answers: p.answers,
		Login:   p.login,
	})

	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, nil)
	p.mcpServer.AddReceivingMiddleware(middleware.MCPLoggingMiddleware(slog.Default()))
	if p.auditLog != nil {
		p.mcpServer.AddReceivingMiddleware(middleware.MCPAuditMiddleware(p.auditLog))
	}
	p.registerInfoTool()
	p.registerTools()
	p.registerResourceTemplates()
	p.registerPrompts(loaded)
}

// Start starts the platform.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return err
	}
	p.health.SetReady()
	return nil
}

// Stop stops the platform.
func (p *Platform) Stop(ctx context.Context) error {
	p.health.SetDraining()
	return p.lifecycle.Stop(ctx)
}

// Close releases all platform resources.
func (p *Platform) Close() error {
	if err := p.Stop(context.Background()); err != nil {
		return fmt.Errorf("errors closing platform: %w", err)
	}
	return nil
}

// HTTPHandler returns the HTTP surface: the REST API, its OpenAPI
// document, the MCP streamable endpoint and the health probes.
func (p *Platform) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/v1/", p.apiHandler)
	mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return p.mcpServer
	}, nil))
	mux.HandleFunc("GET /healthz", p.health.LivenessHandler())
	mux.HandleFunc("GET /readyz", p.health.ReadinessHandler())
	return mux
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Model returns the loaded model.
func (p *Platform) Model() *model.Model {
	return p.model
}

// Answers returns the answer service.
func (p *Platform) Answers() *answer.Service {
	return p.answers
}

// Executor returns the plugin executor.
func (p *Platform) Executor() *wsf.Executor {
	return p.executor
}

// Plugins returns the plugin registry.
func (p *Platform) Plugins() *wsf.Registry {
	return p.plugins
}

// Audit returns the tool call audit log, or nil when auditing is off.
func (p *Platform) Audit() audit.Logger {
	return p.auditLog
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// runner returns a page runner over the platform's model.
func (p *Platform) runner() *api.Runner {
	return &api.Runner{Model: p.model, Answers: p.answers}
}
