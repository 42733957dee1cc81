package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KNICEX/quantflow/internal/service/llm"
)

// CodegenInstruction 生成策略代码的系统提示词
const CodegenInstruction = `你是一个专业的量化交易策略编写助手。
请根据用户的描述，生成可执行的 JavaScript 交易策略代码。
运行环境提供以下全局函数:
- onTick(ticker): 必须定义, 每个周期调用一次, ticker 包含 symbol, last, bid, ask, timestamp
- buy(symbol, amount) / sell(symbol, amount): 市价下单, 失败返回 null
- log(...args), console.log / console.error: 写日志
- sleep(ms), now()
代码应该包含详细的中文注释，解释策略逻辑。
只返回代码，不要包含 Markdown 格式化符号。`

type Generator struct {
	llm llm.Service
}

func NewGenerator(svc llm.Service) *Generator {
	return &Generator{llm: svc}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.llm == nil {
		return "", ErrGeneratorDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidArgument)
	}
	ans, err := g.llm.AskOnce(ctx, llm.Question{Content: prompt})
	if err != nil {
		return "", fmt.Errorf("generate strategy code: %w", err)
	}
	slog.Info("strategy code generated", "input_tokens", ans.InputToken, "output_tokens", ans.OutputToken)
	code := stripFences(ans.Content)
	if code == "" {
		return "", fmt.Errorf("generate strategy code: empty answer")
	}
	return code, nil
}

// stripFences 去掉模型偶尔带上的 ``` 代码块标记
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
