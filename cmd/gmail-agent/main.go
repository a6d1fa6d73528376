// Gmail agent: triages pushed Gmail messages, answers routine email
// automatically and hands the rest to the user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/people/v1"

	"github.com/hal9000y/gmail-agent/internal/agent"
	"github.com/hal9000y/gmail-agent/internal/api"
	"github.com/hal9000y/gmail-agent/internal/auth"
	"github.com/hal9000y/gmail-agent/internal/classify"
	"github.com/hal9000y/gmail-agent/internal/config"
	"github.com/hal9000y/gmail-agent/internal/draft"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/ingest"
	"github.com/hal9000y/gmail-agent/internal/llm"
	"github.com/hal9000y/gmail-agent/internal/store"
	"github.com/hal9000y/gmail-agent/internal/style"
	"github.com/hal9000y/gmail-agent/internal/tool"
)

const version = "1.0.0"

func main() {
	httpAddr := flag.String("http-addr", "localhost:8080", "HTTP server listen addr")
	oauthTokenFile := flag.String("oauth-token-file", "./data/gmail-agent-token.json", "Path to cache google oauth token, empty to avoid storing")
	oauthURLParam := flag.String("oauth-url", "", "OAuth URL")
	envFileParam := flag.String("env-file", "", "Path to env file")
	configParam := flag.String("config", "./config.yaml", "Path to user preferences file")
	dataDirParam := flag.String("data-dir", "", "Data directory (overrides DATA_DIR)")
	enableStdio := flag.Bool("mcp-stdio", false, "Serve the agent tools over MCP stdio transport")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	settings, err := config.LoadSettings(*envFileParam)
	if err != nil {
		panic(fmt.Errorf("config.LoadSettings failed: %w", err))
	}
	if *dataDirParam != "" {
		settings.DataDir = *dataDirParam
	}

	logger, persistLogs := setupLogger(settings.Debug, *enableStdio, *logFile)
	defer persistLogs()
	slog.SetDefault(logger)

	userCfg, err := config.LoadUserConfig(*configParam)
	if err != nil {
		panic(fmt.Errorf("config.LoadUserConfig failed: %w", err))
	}

	ln := mustListen(httpAddr)
	oauthCfg := mustCreateOauthCfg(ln.Addr().String(), oauthURLParam)

	tok, err := auth.NewToken(oauthCfg, *oauthTokenFile)
	if err != nil {
		panic(fmt.Errorf("auth.NewToken failed: %w", err))
	}

	defer func() {
		logger.Info("persisting token if exists")
		if err := tok.Persist(); err != nil {
			logger.Error("tok.Persist failed", "error", err)
		}
	}()

	db, err := store.Open(filepath.Join(settings.DataDir, "store"), logger)
	if err != nil {
		panic(fmt.Errorf("store.Open failed: %w", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("db.Close failed", "error", err)
		}
	}()

	contacts := store.NewContacts(db, logger)
	cursor := store.NewHistoryCursor(db)

	mailbox := gservice.NewGmail(oauthCfg, tok)
	labels := gservice.NewLabels(oauthCfg, tok, settings.LabelRespond, settings.LabelDone, settings.LabelPending, logger)
	calendarSvc := gservice.NewCalendar(oauthCfg, tok)
	peopleSvc := gservice.NewPeople(oauthCfg, tok)
	watch := gservice.NewWatch(oauthCfg, tok, labels, settings.PubSubTopic, logger)

	completer := llm.NewClient(settings.OpenAIAPIKey, settings.OpenAIModel, logger)

	classifier := classify.New(classify.Config{
		AlwaysNotifySenders: userCfg.Preferences.AlwaysNotifySenders,
		AutoRespondTypes:    userCfg.Preferences.AutoRespondTypes,
	}, logger)

	registry := tool.NewRegistry(logger)
	registry.Register(tool.NewCalendarCheck(calendarSvc, time.Now))
	registry.Register(tool.NewEmailSearch(mailbox, logger))
	registry.Register(tool.NewContactLookup(peopleSvc, logger))

	toneDetector := draft.NewToneDetector(completer, logger)
	generator := draft.NewGenerator(completer, toneDetector, contacts, draft.Options{
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}, logger)
	formatter := draft.NewFormatter(userCfg.User.Signature)
	learner := style.NewLearner(completer, contacts, logger)

	workflow := agent.NewWorkflow(agent.Deps{
		Classifier: classifier,
		Planner:    agent.NewPlanner(completer, registry, logger),
		Tools:      registry,
		Drafter:    generator,
		Formatter:  formatter,
		Sender:     mailbox,
		Labels:     labels,
		Learner:    learner,
		UserEmail:  userCfg.User.Email,
	}, logger)

	processor := ingest.NewProcessor(mailbox, labels, cursor, workflow, logger)

	apiCfg := api.Config{
		Processor:   processor,
		Drafter:     generator,
		Watch:       watch,
		Labels:      labels,
		PubSubTopic: settings.PubSubTopic,
		Version:     version,
		Debug:       settings.Debug,
	}
	if settings.WebhookToken != "" {
		apiCfg.Verifier = api.NewStaticTokenVerifier(settings.WebhookToken)
	}
	apiSrv := api.NewServer(apiCfg, logger)

	mux := http.NewServeMux()
	mux.Handle("/oauth", auth.NewHTTPHandler(tok))
	mux.Handle("/", apiSrv.Handler())

	srv := &http.Server{
		Handler: mux,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrTokenNotSet) {
		openBrowser(oauthCfg.RedirectURL, logger)
	}

	stopHTTP, errHTTPCh := serveHTTP(srv, ln, logger)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(tool.NewMCPServer(registry), logger)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		logger.Error("http server error", "error", err)
	case err := <-errStdioCh:
		logger.Error("stdio transport error", "error", err)
	case <-shutdown:
		logger.Info("shutdown signal received")
	}
}

func serveStdio(srv *mcp.Server, logger *slog.Logger) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		logger.Info("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			err = fmt.Errorf("srv.Run failed: %w", err)
			errStdioCh <- err
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		logger.Info("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener, logger *slog.Logger) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Info("starting http server", "addr", ln.Addr().String())

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.Serve failed: %w", err)
			logger.Error("http server failed", "error", err)
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("srv.Shutdown failed", "error", err)
		}

		<-errHTTPCh
		logger.Info("http server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr *string) net.Listener {
	if httpAddr == nil {
		panic("-http-addr must be provided")
	}

	ln, err := net.Listen("tcp", *httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func mustCreateOauthCfg(lnAddr string, oauthURLParam *string) *oauth2.Config {
	oauthClientID := os.Getenv("OAUTH_GOOGLE_CLIENT_ID")
	oauthClientSec := os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET")

	if oauthClientID == "" || oauthClientSec == "" {
		panic("Env variables OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET must be set")
	}

	oauthURL := fmt.Sprintf("http://%s/oauth", lnAddr)
	if oauthURLParam != nil && *oauthURLParam != "" {
		oauthURL = *oauthURLParam
	}

	return &oauth2.Config{
		ClientID:     oauthClientID,
		ClientSecret: oauthClientSec,
		RedirectURL:  oauthURL,
		Scopes: []string{
			gmail.GmailModifyScope,
			gmail.GmailSendScope,
			calendar.CalendarReadonlyScope,
			people.ContactsReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

func setupLogger(debug, stdio bool, logFile string) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}

		return slog.New(slog.NewTextHandler(f, opts)), func() {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("f.Close failed: %w", err))
			}
		}
	}

	// Stdio transport owns stdout; logs move to stderr there.
	out := os.Stdout
	if stdio {
		out = os.Stderr
	}

	return slog.New(slog.NewTextHandler(out, opts)), func() {}
}

func openBrowser(url string, logger *slog.Logger) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		logger.Warn("could not open browser automatically, open the link manually", "error", err, "url", url)
	}
}
