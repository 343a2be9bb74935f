package bootstrap

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/ai/docai"
	"legaldocs-backend/internal/ai/gemini"
	"legaldocs-backend/internal/ai/speech"
	"legaldocs-backend/internal/ai/translate"
	"legaldocs-backend/internal/analysis"
	"legaldocs-backend/internal/chat"
	"legaldocs-backend/internal/credentials"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/services/health"
	"legaldocs-backend/internal/shared/config"
	"legaldocs-backend/internal/shared/server"
	"legaldocs-backend/internal/shared/storage/db"
	"legaldocs-backend/internal/shared/telemetry"
	"legaldocs-backend/internal/transcribe"
	"legaldocs-backend/internal/translation"
	"legaldocs-backend/internal/validation"
)

// Deps lets callers inject alternative backends. Nil fields are filled from
// configuration, falling back to ai.Unconfigured so the service boots without
// credentials.
type Deps struct {
	Structurer ai.Structurer
	Completer  ai.Completer
	Translator ai.Translator
	Recognizer ai.Recognizer
	Tokens     ai.TokenSource
	Repo       documents.Repo
}

// App holds the wired application.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	Repo      documents.Repo
	Documents *documents.Service
}

// Build wires the application from configuration alone.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	return BuildWith(ctx, cfg, Deps{})
}

// BuildWith wires the application, honoring any injected dependencies.
func BuildWith(ctx context.Context, cfg config.Config, deps Deps) (*App, error) {
	app := &App{Config: cfg}

	healthSvc := health.NewService()

	tokens := deps.Tokens
	if tokens == nil && cfg.GoogleCredentialsFile != "" {
		cache, err := credentials.New(ctx, cfg.GoogleProjectID, cfg.GoogleCredentialsFile, cfg.ExternalTimeout)
		if err != nil {
			telemetry.Warn("bootstrap.credentials_unavailable", map[string]any{
				"error": err.Error(),
			})
		} else {
			tokens = cache
			healthSvc.Register("credentials", cache)
		}
	}

	fillClients(cfg, tokens, &deps)

	repo := deps.Repo
	if repo == nil {
		repo = buildRepo(ctx, cfg, app)
	}
	app.Repo = repo
	healthSvc.RegisterDB(app.DB)

	pipeline := &analysis.Pipeline{Structurer: deps.Structurer, Completer: deps.Completer}
	docSvc := &documents.Service{
		Repo:            repo,
		Analyzer:        pipeline,
		AnalysisTimeout: 3 * cfg.ExternalTimeout,
	}
	app.Documents = docSvc

	validator := &validation.Pipeline{
		Structurer:          deps.Structurer,
		Completer:           deps.Completer,
		MaxBytes:            cfg.MaxUploadBytes,
		ConfidenceThreshold: cfg.LegalConfidenceThreshold,
	}

	app.Router = server.NewRouter(server.Routes{
		Config:      cfg,
		Documents:   documents.NewHandler(docSvc, validator, cfg.MaxUploadBytes),
		Chat:        chat.NewHandler(&chat.Engine{Repo: repo, Completer: deps.Completer, ContextMaxBytes: cfg.ChatContextMaxBytes}),
		Translation: translation.NewHandler(&translation.Dispatcher{Translator: deps.Translator, Repo: repo}),
		Transcribe:  transcribe.NewHandler(&transcribe.Service{Recognizer: deps.Recognizer}),
		Health:      healthSvc,
	})

	return app, nil
}

// fillClients replaces nil backends with real clients when configuration and
// tokens allow, and with ai.Unconfigured otherwise.
func fillClients(cfg config.Config, tokens ai.TokenSource, deps *Deps) {
	timeout := cfg.ExternalTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if deps.Structurer == nil {
		if c, err := docai.NewClient(cfg.StructuringEndpoint, cfg.StructuringProcessor, tokens, timeout); err == nil {
			deps.Structurer = c
		} else {
			logUnconfigured("structuring", err)
			deps.Structurer = ai.Unconfigured{}
		}
	}
	if deps.Completer == nil {
		if c, err := gemini.NewClient(cfg.CompletionEndpoint, cfg.CompletionModel, tokens, timeout); err == nil {
			deps.Completer = c
		} else {
			logUnconfigured("completion", err)
			deps.Completer = ai.Unconfigured{}
		}
	}
	if deps.Translator == nil {
		if c, err := translate.NewClient(cfg.TranslationEndpoint, tokens, timeout); err == nil {
			deps.Translator = c
		} else {
			logUnconfigured("translation", err)
			deps.Translator = ai.Unconfigured{}
		}
	}
	if deps.Recognizer == nil {
		if c, err := speech.NewClient(cfg.SpeechEndpoint, tokens, timeout); err == nil {
			deps.Recognizer = c
		} else {
			logUnconfigured("speech", err)
			deps.Recognizer = ai.Unconfigured{}
		}
	}
}

func logUnconfigured(service string, err error) {
	telemetry.Info("bootstrap.service_unconfigured", map[string]any{
		"service": service,
		"error":   err.Error(),
	})
}

// buildRepo connects Postgres when configured and falls back to the in-memory
// store so dev environments run without a database.
func buildRepo(ctx context.Context, cfg config.Config, app *App) documents.Repo {
	if cfg.DatabaseURL == "" {
		return documents.NewMemoryRepo()
	}

	conn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		telemetry.Warn("bootstrap.db_unavailable", map[string]any{
			"error": err.Error(),
		})
		return documents.NewMemoryRepo()
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		telemetry.Warn("bootstrap.migrations_failed", map[string]any{
			"error": err.Error(),
		})
		conn.Close()
		return documents.NewMemoryRepo()
	}

	app.DB = conn
	return &documents.PGRepo{DB: conn}
}

// Close releases held resources.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
