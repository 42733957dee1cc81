package program

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/dop251/goja"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/panics"
)

// EntryPoint is the global function every strategy must define.
const EntryPoint = "onTick"

// Host is what a strategy may reach outside its runtime. Every method runs
// on the goroutine that called Compile or Invoke, never on the runtime's.
type Host interface {
	Log(ctx context.Context, level journal.Level, msg string)
	Order(ctx context.Context, side exchange.Side, symbol string, amount decimal.Decimal) (exchange.OrderResult, error)
	Now() time.Time
}

type options struct {
	tickTimeout time.Duration
}

type Option func(*options)

// WithTickTimeout bounds a single compile or invocation. Zero disables it.
func WithTickTimeout(d time.Duration) Option {
	return func(o *options) {
		o.tickTimeout = d
	}
}

// call is a host request sent from the runtime goroutine.
type call struct {
	fn    func(ctx context.Context) any
	reply chan callResult
}

type callResult struct {
	value any
	err   error
}

// Program 一个策略的沙箱运行时, goja.Runtime 只在自己的 goroutine 上使用
type Program struct {
	name  string
	host  Host
	opts  options
	rt    *goja.Runtime
	entry goja.Callable

	jobs  chan func()
	calls chan call
	quit  chan struct{}
	done  chan struct{}
	seq   atomic.Uint64

	closeOnce sync.Once
}

// Compile loads source into a fresh runtime and resolves its entry point.
func Compile(ctx context.Context, name, source string, host Host, opts ...Option) (*Program, error) {
	compiled, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, &CompileError{Name: name, Cause: err}
	}

	p := &Program{
		name:  name,
		host:  host,
		rt:    goja.New(),
		jobs:  make(chan func()),
		calls: make(chan call),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	go p.loop()

	err = p.exec(ctx, func(rt *goja.Runtime) error {
		if err := p.bind(rt); err != nil {
			return err
		}
		if _, err := rt.RunProgram(compiled); err != nil {
			return err
		}
		entry, ok := p.lookupEntry(rt)
		if !ok {
			return ErrMissingEntryPoint
		}
		p.entry = entry
		return nil
	})
	if err != nil {
		p.Close()
		return nil, &CompileError{Name: name, Cause: err}
	}
	return p, nil
}

func (p *Program) lookupEntry(rt *goja.Runtime) (goja.Callable, bool) {
	if fn, ok := goja.AssertFunction(rt.Get(EntryPoint)); ok {
		return fn, true
	}
	// let/const 声明不在 global object 上
	v, err := rt.RunString("typeof " + EntryPoint + " === 'function' ? " + EntryPoint + " : undefined")
	if err != nil {
		return nil, false
	}
	return goja.AssertFunction(v)
}

func (p *Program) Name() string {
	return p.name
}

// Invoke calls the entry point once with the ticker. Exceptions come back
// as *RuntimeError.
func (p *Program) Invoke(ctx context.Context, tk exchange.Ticker) error {
	err := p.exec(ctx, func(rt *goja.Runtime) error {
		_, err := p.entry(goja.Undefined(), rt.ToValue(tickerObject(tk)))
		return err
	})
	if err == nil || errors.Is(err, ErrClosed) {
		return err
	}
	return &RuntimeError{Name: p.name, Cause: err}
}

// Close stops the runtime goroutine. Safe to call more than once.
func (p *Program) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		<-p.done
	})
}

func (p *Program) loop() {
	defer close(p.done)
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.quit:
			return
		}
	}
}

// exec runs fn on the runtime goroutine and serves host calls until it
// returns.
func (p *Program) exec(ctx context.Context, fn func(rt *goja.Runtime) error) error {
	serveCtx := ctx
	seq := p.seq.Add(1)
	if p.opts.tickTimeout > 0 {
		var cancel context.CancelFunc
		serveCtx, cancel = context.WithTimeout(ctx, p.opts.tickTimeout)
		defer cancel()
		timer := time.AfterFunc(p.opts.tickTimeout, func() {
			if p.seq.Load() == seq {
				p.rt.Interrupt(ErrTickTimeout)
			}
		})
		defer timer.Stop()
	}

	result := make(chan error, 1)
	job := func() {
		p.rt.ClearInterrupt()
		var err error
		if r := panics.Try(func() { err = fn(p.rt) }); r != nil {
			err = r.AsError()
		}
		result <- unwrapInterrupt(err)
	}
	select {
	case p.jobs <- job:
	case <-p.done:
		return ErrClosed
	}

	for {
		select {
		case c := <-p.calls:
			c.reply <- serve(serveCtx, c)
		case err := <-result:
			return err
		}
	}
}

// serve runs a host call. A panic becomes an error reply so the runtime
// goroutine is never left waiting.
func serve(ctx context.Context, c call) (res callResult) {
	if r := panics.Try(func() { res.value = c.fn(ctx) }); r != nil {
		return callResult{err: r.AsError()}
	}
	return res
}

// request is called from the runtime goroutine while exec is serving. A
// failed host call is thrown into the script as an exception.
func (p *Program) request(fn func(ctx context.Context) any) any {
	reply := make(chan callResult, 1)
	p.calls <- call{fn: fn, reply: reply}
	res := <-reply
	if res.err != nil {
		panic(p.rt.NewGoError(res.err))
	}
	return res.value
}

func unwrapInterrupt(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return err
}

func tickerObject(tk exchange.Ticker) map[string]any {
	return map[string]any{
		"symbol":    tk.Symbol,
		"last":      tk.Last.InexactFloat64(),
		"bid":       tk.Bid.InexactFloat64(),
		"ask":       tk.Ask.InexactFloat64(),
		"timestamp": tk.Timestamp.UnixMilli(),
	}
}
