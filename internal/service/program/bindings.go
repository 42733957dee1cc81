package program

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/KNICEX/quantflow/pkg/decimalx"
	"github.com/dop251/goja"
	"github.com/shopspring/decimal"
)

// bind defines the host globals as read-only properties.
func (p *Program) bind(rt *goja.Runtime) error {
	console := rt.NewObject()
	consoleFns := map[string]journal.Level{
		"log":   journal.LevelInfo,
		"info":  journal.LevelInfo,
		"warn":  journal.LevelWarn,
		"error": journal.LevelError,
	}
	for name, level := range consoleFns {
		if err := readOnly(console, name, rt.ToValue(p.logFunc(level))); err != nil {
			return err
		}
	}

	globals := map[string]any{
		"log":     p.logFunc(journal.LevelInfo),
		"console": console,
		"sleep":   p.sleep,
		"now":     p.now,
		"buy":     p.orderFunc(rt, exchange.Buy),
		"sell":    p.orderFunc(rt, exchange.Sell),
	}
	global := rt.GlobalObject()
	for name, v := range globals {
		if err := readOnly(global, name, rt.ToValue(v)); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}

func readOnly(obj *goja.Object, name string, v goja.Value) error {
	return obj.DefineDataProperty(name, v, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (p *Program) logFunc(level journal.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		msg := strings.Join(parts, " ")
		p.request(func(ctx context.Context) any {
			p.host.Log(ctx, level, msg)
			return nil
		})
		return goja.Undefined()
	}
}

// sleep(ms) 在 worker 侧等待, worker 停止时立即返回
func (p *Program) sleep(ms int64) {
	if ms <= 0 {
		return
	}
	d := time.Duration(ms) * time.Millisecond
	p.request(func(ctx context.Context) any {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
		return nil
	})
}

func (p *Program) now() int64 {
	v := p.request(func(context.Context) any {
		return p.host.Now()
	})
	return v.(time.Time).UnixMilli()
}

type orderReply struct {
	res exchange.OrderResult
	err error
}

func (p *Program) orderFunc(rt *goja.Runtime, side exchange.Side) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		symbol := call.Argument(0).String()
		if goja.IsUndefined(call.Argument(0)) || goja.IsNull(call.Argument(0)) || symbol == "" {
			panic(rt.NewTypeError("%s: symbol is required", side))
		}
		amount, err := toAmount(call.Argument(1))
		if err != nil {
			panic(rt.NewTypeError("%s: %v", side, err))
		}

		v := p.request(func(ctx context.Context) any {
			res, err := p.host.Order(ctx, side, symbol, amount)
			return orderReply{res: res, err: err}
		})
		reply := v.(orderReply)
		if reply.err != nil {
			return goja.Null()
		}
		return rt.ToValue(orderObject(reply.res))
	}
}

func toAmount(v goja.Value) (decimal.Decimal, error) {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	var amount decimal.Decimal
	switch raw := v.Export().(type) {
	case string:
		d, err := decimalx.Parse(raw)
		if err != nil {
			return decimal.Zero, err
		}
		amount = d
	default:
		d, ok := decimalx.FromFloat(v.ToFloat())
		if !ok {
			return decimal.Zero, fmt.Errorf("amount must be a finite number")
		}
		amount = d
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", amount)
	}
	return amount, nil
}

func orderObject(res exchange.OrderResult) map[string]any {
	return map[string]any{
		"id":     res.Id,
		"symbol": res.Symbol,
		"side":   string(res.Side),
		"type":   string(res.Type),
		"amount": res.Amount.InexactFloat64(),
		"price":  res.Price.InexactFloat64(),
		"status": res.Status,
	}
}
