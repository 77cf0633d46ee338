package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/golden-hour/backend/internal/config"
	"github.com/zhouzirui/golden-hour/backend/internal/handler"
	"github.com/zhouzirui/golden-hour/backend/internal/service/ai"
	"github.com/zhouzirui/golden-hour/backend/internal/service/recorder"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
	"github.com/zhouzirui/golden-hour/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize chat model
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing without AI triage - 请检查 Ark 模型相关环境变量")
			chatModel = nil
		}
	} else {
		log.Println("Ark 凭证未配置，分诊将使用关键词回退")
	}

	services := handler.Services{
		Language:    cfg.Pipeline.SourceLanguage,
		QuietPeriod: cfg.Pipeline.DebounceQuiet,
	}

	if chatModel != nil && cfg.AI.TriageEnabled {
		triageSvc, err := ai.NewTriageService(ctx, chatModel)
		if err != nil {
			log.Printf("warning: failed to initialize triage service: %v", err)
		} else {
			services.Triager = triageSvc
			log.Println("AI triage service initialized successfully")
		}
	} else if chatModel != nil {
		log.Println("AI triage disabled by configuration")
	}

	services.Translator = newTranslator(ctx, cfg, chatModel)

	store, err := storage.Open(ctx, cfg.Store.Options())
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()
	log.Printf("session store backend=%s", cfg.Store.Backend)

	services.Recorder = recorder.NewService(store)

	router := handler.NewRouter(services)

	startServer(ctx, cfg.Server, router)
}

func newTranslator(ctx context.Context, cfg *config.Config, chatModel model.ChatModel) translate.Translator {
	switch cfg.Translate.Provider {
	case config.TranslateProviderArk:
		if chatModel == nil {
			log.Println("Ark 翻译需要可用的模型配置，翻译功能不可用")
			return translate.Unavailable{}
		}
		translator, err := ai.NewTranslator(ctx, chatModel)
		if err != nil {
			log.Printf("warning: failed to initialize ark translator: %v", err)
			return translate.Unavailable{}
		}
		log.Println("Ark translator initialized successfully")
		return translator
	default:
		if !cfg.Translate.Enabled() {
			log.Println("SARVAM_API_KEY 未配置，翻译功能不可用")
			return translate.Unavailable{}
		}
		log.Println("Sarvam translator initialized successfully")
		return translate.NewSarvamClient(translate.SarvamConfig{
			APIKey:  cfg.Translate.SarvamAPIKey,
			BaseURL: cfg.Translate.SarvamBaseURL,
			Timeout: cfg.Translate.Timeout,
		})
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Golden Hour backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
