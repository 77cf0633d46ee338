package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/golden-hour/backend/internal/config"
	"github.com/zhouzirui/golden-hour/backend/internal/service/ai"
	"github.com/zhouzirui/golden-hour/backend/internal/service/recorder"
	"github.com/zhouzirui/golden-hour/backend/internal/service/translate"
	"github.com/zhouzirui/golden-hour/backend/internal/service/triage"
	"github.com/zhouzirui/golden-hour/backend/internal/storage"
)

// app 持有命令行工具依赖，测试中可直接注入。
type app struct {
	triager    triage.Triager
	translator translate.Translator
	recorder   *recorder.Service
	close      func() error
}

func newRootCmd(injected *app) *cobra.Command {
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "triagectl",
		Short:         "Golden Hour triage tools: run triage and inspect recorded sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 45*time.Second, "请求超时时间")

	loader := func(ctx context.Context) (*app, error) {
		if injected != nil {
			return injected, nil
		}
		return wireApp(ctx)
	}

	rootCmd.AddCommand(
		newTriageCmd(loader, &timeout),
		newSessionsCmd(loader),
	)
	return rootCmd
}

type appLoader func(ctx context.Context) (*app, error)

// wireApp 按环境变量组装与 API 服务相同的依赖。
func wireApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{translator: translate.Unavailable{}}

	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("[WARN] 模型初始化失败，使用关键词回退: %v", err)
		} else {
			if cfg.AI.TriageEnabled {
				svc, err := ai.NewTriageService(ctx, chatModel)
				if err != nil {
					return nil, fmt.Errorf("init triage service: %w", err)
				}
				a.triager = svc
			}
			if cfg.Translate.Provider == config.TranslateProviderArk {
				translator, err := ai.NewTranslator(ctx, chatModel)
				if err != nil {
					return nil, fmt.Errorf("init translator: %w", err)
				}
				a.translator = translator
			}
		}
	}
	if cfg.Translate.Enabled() {
		a.translator = translate.NewSarvamClient(translate.SarvamConfig{
			APIKey:  cfg.Translate.SarvamAPIKey,
			BaseURL: cfg.Translate.SarvamBaseURL,
			Timeout: cfg.Translate.Timeout,
		})
	}

	store, err := storage.Open(ctx, cfg.Store.Options())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.recorder = recorder.NewService(store)
	a.close = store.Close
	return a, nil
}

func (a *app) Close() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		log.Printf("[WARN] close store: %v", err)
	}
}
