package binance

import (
	"context"
	"net/http"
	"sync"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

const (
	futuresTestnetURL = "https://testnet.binancefuture.com"

	defaultRateLimit = 10
	defaultBurst     = 10
)

var _ exchange.Adapter = (*Adapter)(nil)

// Adapter U本位合约实盘适配器
type Adapter struct {
	cli     *futures.Client
	limiter *rate.Limiter

	mu      sync.RWMutex
	markets map[string]futures.Symbol
}

type options struct {
	baseURL    string
	httpClient *http.Client
	limit      rate.Limit
	burst      int
}

type Option func(*options)

// WithBaseURL overrides the REST endpoint, testnet included.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

func WithHTTPClient(cli *http.Client) Option {
	return func(o *options) {
		o.httpClient = cli
	}
}

// WithRateLimit sets the maximum REST requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.limit = rate.Limit(perSecond)
		o.burst = burst
	}
}

func NewAdapter(cli *futures.Client, opts ...Option) *Adapter {
	o := applyOptions(opts)
	return &Adapter{
		cli:     cli,
		limiter: rate.NewLimiter(o.limit, o.burst),
		markets: map[string]futures.Symbol{},
	}
}

func applyOptions(opts []Option) options {
	o := options{limit: defaultRateLimit, burst: defaultBurst}
	for _, opt := range opts {
		opt(&o)
	}
	if o.burst <= 0 {
		o.burst = 1
	}
	return o
}

// Dial builds a futures client from creds, loads market metadata and, when
// creds are present, checks them with one signed call. Any failure is
// reported as an *exchange.Error with Op "connect".
func Dial(ctx context.Context, creds exchange.Credentials, opts ...Option) (*Adapter, error) {
	o := applyOptions(opts)
	cli := futures.NewClient(creds.ApiKey, creds.SecretKey)
	if creds.Testnet {
		cli.BaseURL = futuresTestnetURL
	}
	if o.baseURL != "" {
		cli.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cli.HTTPClient = o.httpClient
	}
	a := NewAdapter(cli, opts...)
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	// exchangeInfo 是公开接口, 不校验 key
	if creds.Present() {
		if _, err := a.account(ctx, "connect"); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Adapter) Name() string {
	return "binanceusdm"
}

func (a *Adapter) wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *Adapter) Close() error {
	if a.cli.HTTPClient != nil && a.cli.HTTPClient != http.DefaultClient {
		a.cli.HTTPClient.CloseIdleConnections()
	}
	return nil
}
