// Package dependency wires the sakit API clients, tools and scheduler using
// go.uber.org/dig.
package dependency

import (
	"log/slog"
	"time"

	"go.uber.org/dig"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/birdeye"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/cron"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/dflow"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/search"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/tools"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/vybe"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	registry *tools.Registry
	cronSvc  *cron.Service
}

func (c *Container) Registry() *tools.Registry { return c.registry }
func (c *Container) Scheduler() *cron.Service  { return c.cronSvc }

// CronStorePath is a named string type so dig can tell the job store path
// apart from other strings.
type CronStorePath string

// clientsIn gathers every API client for the tool set.
type clientsIn struct {
	dig.In

	Birdeye    *birdeye.Client
	Vybe       *vybe.Client
	Ultra      *jupiter.Ultra
	Trigger    *jupiter.Trigger
	Swap       *dflow.Swap
	Prediction *dflow.Prediction
	Relay      *solana.Relay
	Search     search.Provider
	Privy      *tools.PrivyWallets
}

// New builds and wires all services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func() CronStorePath { return CronStorePath(cfg.CronStorePath()) },
		newBirdeye,
		newVybe,
		newUltra,
		newTrigger,
		newSwap,
		newPrediction,
		newRelay,
		newSearch,
		newPrivyWallets,
		newRegistry,
		newCronService,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(reg *tools.Registry, cronSvc *cron.Service) {
		result = &Container{registry: reg, cronSvc: cronSvc}
	})
	return result, err
}

func newBirdeye(cfg *config.Config) *birdeye.Client {
	b := cfg.Tools.Birdeye
	return birdeye.New(b.APIKey, b.Chain, b.RequestsPerSecond)
}

func newVybe(cfg *config.Config) *vybe.Client {
	v := cfg.Tools.Vybe
	return vybe.New(v.APIKey, time.Duration(v.CacheTTLSeconds)*time.Second)
}

func newUltra(cfg *config.Config) *jupiter.Ultra {
	return jupiter.NewUltra(cfg.Tools.Jupiter.APIKey)
}

func newTrigger(cfg *config.Config) *jupiter.Trigger {
	return jupiter.NewTrigger(cfg.Tools.Jupiter.APIKey)
}

func newSwap() *dflow.Swap {
	return dflow.NewSwap()
}

func newPrediction(cfg *config.Config) *dflow.Prediction {
	d := cfg.Tools.DFlow
	return dflow.NewPrediction(dflow.Filters{
		MinVolumeUSD:    d.MinVolumeUSD,
		MinLiquidityUSD: d.MinLiquidityUSD,
		IncludeRisky:    d.IncludeRisky,
	})
}

// newRelay returns nil when no RPC endpoint is configured; the trading
// tools report that to the caller.
func newRelay(cfg *config.Config) *solana.Relay {
	s := cfg.Solana
	if s.RPCURL == "" {
		return nil
	}
	return solana.NewRelay(solana.NewRPCClient(s.RPCURL, s.Commitment), solana.RelayOptions{
		WSURL:          s.WSURL,
		ConfirmTimeout: time.Duration(s.ConfirmTimeout) * time.Second,
		MaxAttempts:    s.MaxSendAttempts,
	})
}

func newSearch(cfg *config.Config) search.Provider {
	p, err := search.New(cfg.Tools.Search)
	if err != nil {
		slog.Warn("search_internet disabled", "err", err)
		return nil
	}
	return p
}

func newPrivyWallets(cfg *config.Config) *tools.PrivyWallets {
	return tools.NewPrivyWallets(cfg.Tools.Privy)
}

func newRegistry(cfg *config.Config, in clientsIn) *tools.Registry {
	b := tools.NewRegistryBuilder()
	for _, t := range tools.Builtin(cfg, tools.Clients{
		Birdeye:    in.Birdeye,
		Vybe:       in.Vybe,
		Ultra:      in.Ultra,
		Trigger:    in.Trigger,
		Swap:       in.Swap,
		Prediction: in.Prediction,
		Relay:      in.Relay,
		Search:     in.Search,
		Privy:      in.Privy,
	}) {
		b.WithTool(t)
	}
	return b.Without(cfg.Tools.Disabled...).Build()
}

func newCronService(path CronStorePath, reg *tools.Registry) *cron.Service {
	return cron.NewService(string(path), reg)
}
