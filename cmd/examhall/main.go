package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/examhall/examhall/internal/docstore"
	"github.com/examhall/examhall/internal/events"
	"github.com/examhall/examhall/internal/exam"
	"github.com/examhall/examhall/internal/handler"
	"github.com/examhall/examhall/internal/handoff"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/identity"
	"github.com/examhall/examhall/internal/ingest"
	"github.com/examhall/examhall/internal/llm"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/paper"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examhall",
		Short: "Approval-gated multiple-choice exam portal",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examhall --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam portal",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examhall.db", "SQLite database path")
	f.StringSliceP("papers", "p", nil, "Paths to question paper JSON files (repeatable)")
	f.String("redis-addr", "", "Redis address for the hand-off channel (empty = in-memory)")
	f.StringP("lang", "l", "en", "UI language (en, bn)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /exams)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("pending-notice-url", "", "Page embedded below the pending-approval notice")
	f.String("llm-url", "", "OpenAI-compatible API base URL for paper drafting (empty = disabled)")
	f.String("llm-key", "", "API key for the drafting LLM")
	f.String("llm-model", "llama3.2", "Drafting LLM model name")
	f.String("admin-email", "admin@localhost", "Initial admin email")
	f.String("admin-password", "", "Initial admin password (or set EXAMHALL_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored question papers as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examhall.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examhall")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examhall")
	v.AddConfigPath("/etc/examhall")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	store, err := docstore.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	bus := events.NewBus()
	defer bus.Close()

	gateway := identity.New(store, bus)
	papers := paper.NewRepository(store)

	if err := seedAdmin(gateway, v.GetString("admin-email"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := loadPapers(store, papers, v.GetStringSlice("papers")); err != nil {
		return fmt.Errorf("load papers: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Hand-off channel: Redis when configured, otherwise in-process.
	var channel handoff.Channel
	if addr := v.GetString("redis-addr"); addr != "" {
		channel, err = handoff.NewRedis(ctx, addr, handoff.DefaultTTL)
		if err != nil {
			return fmt.Errorf("hand-off channel: %w", err)
		}
		slog.Info("hand-off channel on Redis", "addr", addr)
	} else {
		channel = handoff.NewMemory(handoff.DefaultTTL)
	}
	defer channel.Close()

	// Drafting is optional; the admin console hides it when off.
	var llmClient *llm.Client
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		llmClient = llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"))
		if err := llmClient.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
	}

	examMgr := exam.NewManager()
	if err := examMgr.Watch(ctx, bus); err != nil {
		return fmt.Errorf("watch account events: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.AppConfig{
		BasePath:         basePath,
		SecureCookies:    v.GetBool("secure-cookies"),
		PendingNoticeURL: v.GetString("pending-notice-url"),
		DraftEnabled:     llmClient != nil,
	}

	h := handler.New(gateway, papers, examMgr, channel, llmClient, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"base_path", basePath,
		"redis", v.GetString("redis-addr") != "",
		"drafting", llmClient != nil,
	)
	return http.ListenAndServe(addr, r)
}

// paperExport is the shape `export` writes, one entry per stored paper.
// The entries are valid ingest input.
type paperExport struct {
	Title     string           `json:"title"`
	Questions []model.Question `json:"questions"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	store, err := docstore.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	papers := paper.NewRepository(store)
	entries, err := papers.List()
	if err != nil {
		return fmt.Errorf("list papers: %w", err)
	}

	export := make([]paperExport, 0, len(entries))
	for _, e := range entries {
		p, err := papers.Get(e.ID)
		if err != nil {
			return fmt.Errorf("load paper %s: %w", e.ID, err)
		}
		export = append(export, paperExport{Title: p.SubjectName, Questions: p.Questions})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}

// importRecord tracks which paper files were already ingested at startup.
type importRecord struct {
	Hash string `json:"hash"`
}

const importsCollection = "imports"

// loadPapers ingests paper files through the same validation as the admin
// console. Already-imported files are never re-read into the store; edits
// to a live paper go through the admin console.
func loadPapers(store *docstore.Store, papers *paper.Repository, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		var rec importRecord
		err = store.Get(importsCollection, path, &rec)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if rec.Hash == hash {
			slog.Info("paper file unchanged, skipping", "path", path)
			continue
		}
		if rec.Hash != "" {
			slog.Warn("paper file changed since import, skipping", "path", path)
			continue
		}

		pi, err := ingest.Parse(string(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		id, err := papers.Create(pi.Title, ingest.Questions(pi))
		if err != nil {
			return fmt.Errorf("store paper from %s: %w", path, err)
		}

		if err := store.Put(importsCollection, path, importRecord{Hash: hash}); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported paper", "path", path, "id", id, "questions", len(pi.Questions))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// seedAdmin creates the first admin account when the store is empty.
func seedAdmin(gateway *identity.Gateway, email, password string) error {
	count, err := gateway.AccountCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMHALL_ADMIN_PASSWORD env var")
	}

	if _, err := gateway.SeedAdmin(email, password, "admin"); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	slog.Info("seeded admin account", "email", email)
	return nil
}
