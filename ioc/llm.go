package ioc

import (
	"context"
	"log/slog"

	"github.com/KNICEX/quantflow/internal/service/llm"
	"github.com/KNICEX/quantflow/internal/service/llm/gemini"
	"github.com/KNICEX/quantflow/internal/service/strategy"
	"github.com/google/generative-ai-go/genai"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

type geminiConfig struct {
	ApiKey      []string `mapstructure:"api_key"`
	Model       string   `mapstructure:"model"`
	Temperature float32  `mapstructure:"temperature"`
}

func loadGeminiConfig() geminiConfig {
	cfg := geminiConfig{Temperature: 0.7}
	if err := viper.UnmarshalKey("llm.gemini", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// InitGeminiCli returns nil when no api key is configured.
func InitGeminiCli() *genai.Client {
	cfg := loadGeminiConfig()
	if len(cfg.ApiKey) == 0 {
		slog.Warn("no gemini api key set, code generation disabled")
		return nil
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	return cli
}

func InitCodeGenerator(cli *genai.Client) *strategy.Generator {
	if cli == nil {
		return nil
	}
	cfg := loadGeminiConfig()
	var opts []gemini.Option
	if cfg.Model != "" {
		opts = append(opts, gemini.WithModel(cfg.Model))
	}
	opts = append(opts,
		gemini.WithTemperature(cfg.Temperature),
		gemini.WithSystemInstruction(strategy.CodegenInstruction),
	)
	var svc llm.Service = gemini.NewService(cli, opts...)
	return strategy.NewGenerator(svc)
}
