// churnctl 是流失专家的命令行入口：
//
//	churnctl -config churnkit.yaml predict -features '{"tenure": 2, "monthly_charges": 95}'
//	churnctl explain -vector 10,0 -top-k 1
//	churnctl explain-local -customer 7590-VHVEG
//	churnctl context -context "month-to-month electronic check"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/expert"
	"github.com/rushteam/churnkit/feature"
)

func main() {
	// JSON in production, text otherwise.
	var logger *slog.Logger
	if os.Getenv("CHURN_ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(logger)

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type request struct {
	command  string
	features string
	vector   string
	customer string
	context  string
	topK     int
}

func run(logger *slog.Logger, args []string) error {
	global := flag.NewFlagSet("churnctl", flag.ContinueOnError)
	configPath := global.String("config", "", "path to YAML config")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errors.New("usage: churnctl [-config path] <predict|explain|explain-local|context> [flags]")
	}

	req := request{command: global.Arg(0)}
	cmd := flag.NewFlagSet(req.command, flag.ContinueOnError)
	cmd.StringVar(&req.features, "features", "", "features as a JSON object")
	cmd.StringVar(&req.vector, "vector", "", "comma-separated feature vector")
	cmd.StringVar(&req.customer, "customer", "", "customer id to look up in Feast")
	cmd.StringVar(&req.context, "context", "", "free-text context")
	cmd.IntVar(&req.topK, "top-k", -1, "number of contributions or documents")
	if err := cmd.Parse(global.Args()[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "backend", cfg.Generation.Backend, "model", cfg.Generation.Model,
		"retrieval", cfg.Retrieval.Enabled(), "scorer", cfg.Scorer.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []expert.Option{
		expert.WithLogger(logger),
		expert.WithMetrics(expert.NewMetrics(prometheus.DefaultRegisterer)),
	}
	lazy := expert.NewLazy(expert.Build(cfg, opts...), opts...)
	defer lazy.Close()
	orchestrator := expert.NewOrchestrator(lazy, opts...)

	result, err := dispatch(ctx, orchestrator, cfg, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func dispatch(ctx context.Context, o *expert.Orchestrator, cfg *config.Config, req request) (any, error) {
	if req.command == "context" {
		topK := req.topK
		if topK < 0 {
			topK = cfg.Retrieval.TopK
		}
		docs, err := o.Context(ctx, req.context, topK)
		if err != nil {
			return nil, err
		}
		return map[string]any{"documents": docs}, nil
	}

	dict, vector, err := readFeatures(ctx, cfg, req)
	if err != nil {
		return nil, err
	}
	topK := req.topK
	if topK < 0 {
		topK = cfg.Explain.TopK
	}

	switch req.command {
	case "predict":
		p, err := o.PredictProbability(ctx, dict, vector, req.context)
		if err != nil {
			return nil, err
		}
		return map[string]any{"churn_proba": p}, nil
	case "explain":
		return o.Explain(ctx, dict, vector, topK, req.context)
	case "explain-local":
		return o.ExplainLocal(ctx, dict, vector, topK)
	default:
		return nil, fmt.Errorf("unknown command %q", req.command)
	}
}

func readFeatures(ctx context.Context, cfg *config.Config, req request) (feature.Dict, []float64, error) {
	switch {
	case req.features != "":
		var dict feature.Dict
		if err := json.Unmarshal([]byte(req.features), &dict); err != nil {
			return nil, nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "parse -features", err)
		}
		return dict, nil, nil
	case req.vector != "":
		vector, err := parseVector(req.vector)
		return nil, vector, err
	case req.customer != "":
		if cfg.Feast.Host == "" {
			return nil, nil, errors.New("-customer requires feast.host")
		}
		lookup, err := feature.NewFeastLookup(cfg.Feast.Host, cfg.Feast.Port, cfg.Feast.Project, cfg.Feast.Features)
		if err != nil {
			return nil, nil, err
		}
		dict, err := lookup.Lookup(ctx, req.customer)
		return dict, nil, err
	default:
		return nil, nil, nil
	}
}

func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vector := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = errors.New("value is not finite")
		}
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("parse -vector element %q", p), err)
		}
		vector = append(vector, v)
	}
	return vector, nil
}
