//go:build linux

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edirooss/streamrec/internal/config"
	"github.com/edirooss/streamrec/internal/http/handler"
	mw "github.com/edirooss/streamrec/internal/http/middleware"
	"github.com/edirooss/streamrec/internal/http/web"
	"github.com/edirooss/streamrec/internal/infrastructure/processmgr"
	"github.com/edirooss/streamrec/internal/repo"
	"github.com/edirooss/streamrec/internal/service"
	"github.com/edirooss/streamrec/pkg/capturecmd"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type flags struct {
	configPath string
	open       bool
}

func main() {
	f := parseFlags()

	// Read env
	isDev := os.Getenv("ENV") == "dev"

	// Load config
	cfg, err := config.Load(f.configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger(isDev)
	defer log.Sync()
	log = log.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	store := repo.NewRecordingStore(log, cfg.Root)
	var settings repo.SettingsStore
	var settingsFile string
	switch cfg.Settings.Backend {
	case "redis":
		rdb := repo.NewRedisClient(log, cfg.Settings.RedisAddr, cfg.Settings.RedisDB)
		defer rdb.Close()
		settings = repo.NewRedisSettings(log, rdb)
	default:
		settingsFile = cfg.Settings.Path
		if !filepath.IsAbs(settingsFile) {
			settingsFile = filepath.Join(cfg.Root, settingsFile)
		}
		fs, err := repo.NewFileSettings(log, settingsFile)
		if err != nil {
			log.Fatal("settings store creation failed", zap.Error(err))
		}
		settings = fs
	}

	// Processes
	logmngr := processmgr.NewLogManager()
	captureOpts := capturecmd.CaptureOptions{
		Binary:     cfg.Capture.Binary,
		StreamURL:  cfg.Capture.StreamURL,
		Quality:    cfg.Capture.Quality,
		DisableAds: cfg.Capture.DisableAds,
	}
	launcher := processmgr.NewCaptureLauncher(log, logmngr, func(channel, outputPath string) []string {
		return capturecmd.CaptureArgv(captureOpts, channel, outputPath)
	})

	rec := service.NewRecorder(log, service.RecorderDeps{
		Status: service.NewChannelStatusClient(log, service.ChannelStatusOptions{
			APIURL:       cfg.Upstream.APIURL,
			TokenURL:     cfg.Upstream.TokenURL,
			ClientID:     cfg.Upstream.ClientID,
			ClientSecret: cfg.Upstream.ClientSecret,
			Timeout:      cfg.Upstream.Timeout,
		}),
		Capture:    service.NewProcessSpawner(launcher),
		Transcoder: service.NewFFmpegTranscoder(processmgr.NewRunner(log), cfg.Transcode.Binary),
		Store:      store,
		Settings:   settings,
	}, service.RecorderOptions{
		StartWait:               cfg.Capture.StartWait,
		StartPoll:               cfg.Capture.StartPoll,
		StopGrace:               cfg.Capture.StopGrace,
		ReconcileInterval:       cfg.Reconcile.Interval,
		MinAge:                  cfg.Reconcile.MinAge,
		MaxConcurrentTranscodes: cfg.Transcode.MaxConcurrent,
	})
	defer rec.Close()

	// Hand edits to the settings file take effect without a restart.
	if settingsFile != "" && cfg.Settings.Watch {
		if err := service.StartSettingsWatch(ctx, log, settingsFile, 250*time.Millisecond, rec.SyncAutoProcess); err != nil {
			log.Warn("settings watch disabled", zap.Error(err))
		}
	}

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()
	r.SetHTMLTemplate(web.Templates())

	session, err := mw.Session(sessionOptions(log, cfg, isDev))
	if err != nil {
		log.Fatal("session middleware creation failed", zap.Error(err))
	}

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // Attach request ID for tracing; early in the chain so it's available everywhere

		if isDev { // Enable CORS for a local UI dev server
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"},
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders:    []string{"X-Request-ID", "X-Total-Count"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}))
		} else { // Possibly behind a TLS-terminating proxy
			r.SetTrustedProxies([]string{"127.0.0.1"})
			r.Use(secure.New(secure.Config{
				FrameDeny:          true,
				ContentTypeNosniff: true,
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https",
				},
			}))
		}

		r.Use(session)           // Flash messages for the UI
		r.Use(mw.AccessLog(log)) // Observability

		r.Use(func(c *gin.Context) {
			// Enforce a hard 1MB max request body.
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
			c.Next()
		})
	}

	// Register route handlers
	limitStarts := mw.LimitConcurrentRequests(cfg.Server.MaxStarts)
	{
		r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

		requireValidChannel := mw.RequireValidChannel()

		// --- Channels ---
		chnlhndlr := handler.NewChannelsHandler(log, rec, logmngr)
		r.GET("/api/channels", chnlhndlr.ListChannels)
		r.POST("/api/channels", limitStarts, chnlhndlr.StartChannels)
		r.DELETE("/api/channels/:channel", requireValidChannel, chnlhndlr.StopChannel)
		r.GET("/api/channels/:channel/logs", requireValidChannel, chnlhndlr.GetChannelLogs)

		// --- Recordings ---
		rechndlr := handler.NewRecordingsHandler(log, rec)
		r.GET("/api/recordings", rechndlr.ListRecordings)
		r.POST("/api/recordings/:channel/:file/process", requireValidChannel, rechndlr.ProcessRecording)
		r.DELETE("/api/recordings/:channel/:file", requireValidChannel, rechndlr.DeleteRecording)

		// --- Settings ---
		sethndlr := handler.NewSettingsHandler(log, rec, settings)
		r.GET("/api/settings", sethndlr.GetSettings)
		r.PATCH("/api/settings", sethndlr.PatchSettings)
		r.PUT("/api/settings/auto-process", sethndlr.SetAutoProcess)
		r.GET("/api/reconcile", sethndlr.GetReconcileStatus)

		// --- UI ---
		pages := handler.NewPagesHandler(log, rec)
		r.GET("/", pages.Status)
		r.GET("/recordings", pages.Recordings)
		r.GET("/settings", pages.Settings)
		r.POST("/settings", pages.SaveSettings)
		r.POST("/submit", limitStarts, pages.Submit)
		r.POST("/remove", pages.Remove)
		r.POST("/recording_action", pages.RecordingAction)
	}

	httpsrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		// Stop and Process run a whole transcode in-request.
		WriteTimeout:   30 * time.Minute,
		IdleTimeout:    60 * time.Second, // keep-alive cap
		MaxHeaderBytes: 1 << 20,          // 1MB cap
	}

	go func() {
		log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
		if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	if f.open {
		if err := browser.OpenURL("http://" + httpsrv.Addr + "/"); err != nil {
			log.Warn("failed to open browser", zap.Error(err))
		}
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpsrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server closed")
}

// parseFlags handles -config and --open, and prints build metadata and exits
// when -v/--version is provided.
func parseFlags() flags {
	var f flags
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.StringVar(&f.configPath, "config", "streamrec.yaml", "path to the config file")
	flag.BoolVar(&f.open, "open", false, "open the UI in a browser once the server is up")
	flag.Parse()

	if *v {
		fmt.Printf("streamrec %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
	return f
}

// sessionOptions derives the UI session setup. Without a configured secret a
// random one is generated, so sessions do not survive a restart.
func sessionOptions(log *zap.Logger, cfg *config.Config, isDev bool) mw.SessionOptions {
	opts := mw.SessionOptions{
		Secret: cfg.Server.SessionSecret,
		Secure: !isDev && cfg.Server.Address != "127.0.0.1" && cfg.Server.Address != "localhost",
	}
	if opts.Secret == "" {
		buf := make([]byte, 32)
		rand.Read(buf)
		opts.Secret = hex.EncodeToString(buf)
		log.Warn("server.session_secret not set; using an ephemeral secret")
	}
	if cfg.Server.SessionBackend == "redis" {
		opts.RedisAddr = cfg.Settings.RedisAddr
		opts.RedisDB = cfg.Settings.RedisDB
	}
	return opts
}

// helpers

func buildLogger(isDev bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if isDev {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}
