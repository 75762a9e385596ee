package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/config"
	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/health"
	"github.com/BaSui01/crewflow/internal/metrics"
	"github.com/BaSui01/crewflow/internal/telemetry"
	"github.com/BaSui01/crewflow/persistence"
	"github.com/BaSui01/crewflow/registry"
)

// localClient fabricates completions so crews can be exercised end to end
// without a model provider wired in. Each completion restates the task in
// the assigned member's voice.
type localClient struct{}

func (localClient) Complete(_ context.Context, req crew.CompletionRequest) (*crew.CompletionResponse, error) {
	var sb strings.Builder
	sb.WriteString("[" + req.System + "]\n")
	sb.WriteString(req.Prompt)
	return &crew.CompletionResponse{
		Output: sb.String(),
		Tokens: len(req.Prompt) / 4,
	}, nil
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	crewPath := fs.String("crew", "", "Path to crew definition file")
	save := fs.Bool("save", false, "Persist the run snapshot")
	fs.Parse(args)

	if *crewPath == "" {
		fmt.Fprintln(os.Stderr, "run: --crew is required")
		os.Exit(1)
	}

	cfg, logger := loadConfig(*configPath)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelProviders.Shutdown(ctx)
	}()

	cf, err := config.LoadCrewFile(*crewPath)
	if err != nil {
		logger.Fatal("invalid crew definition", zap.Error(err))
	}

	reg := registry.NewAgentTypeRegistry(logger)
	for _, def := range registry.BuiltinDefinitions() {
		if regErr := reg.Register(def); regErr != nil {
			logger.Fatal("failed to register builtin agent type", zap.Error(regErr))
		}
	}

	sup := health.NewSupervisor(cfg.Health.Policy(), events.NopSink{}, logger)

	coord, err := crew.NewCoordinator(
		cf.Crew(logger), reg, sup,
		&crew.ModelExecutor{Client: localClient{}},
		cfg.Coordinator.CrewConfig(), logger,
	)
	if err != nil {
		logger.Fatal("failed to build coordinator", zap.Error(err))
	}
	if err := coord.Initialize(); err != nil {
		logger.Fatal("failed to initialize crew", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)
	defer sup.Stop()

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector("crewflow", logger)
		go collector.Watch(ctx, coord.Bus().Events())

		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: promhttp.Handler()}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(serveErr))
			}
		}()
		defer srv.Close()
	}

	res, runErr := coord.Kickoff(ctx, cf.TaskList())

	if *save && res != nil {
		saveSnapshot(cfg, cf.Name, res, reg, coord, logger)
	}

	printResult(res)

	if runErr != nil {
		logger.Error("crew run failed", zap.Error(runErr))
		os.Exit(1)
	}
	if res != nil && !res.Success {
		os.Exit(1)
	}
}

// saveSnapshot persists the finished run. It uses its own context so a
// cancelled run can still be archived.
func saveSnapshot(cfg *config.Config, crewName string, res *crew.CrewResult, reg *registry.AgentTypeRegistry, coord *crew.Coordinator, logger *zap.Logger) {
	store, err := persistence.NewSnapshotStore(cfg.Store.StoreConfig())
	if err != nil {
		logger.Error("failed to open snapshot store", zap.Error(err))
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = store.Save(ctx, &persistence.RunState{
		RunID:    res.RunID,
		CrewID:   res.CrewID,
		CrewName: crewName,
		Registry: reg.Snapshot(),
		Graph:    coord.Graph().Snapshot(),
		SavedAt:  time.Now(),
	})
	if err != nil {
		logger.Error("failed to persist run snapshot", zap.Error(err))
		return
	}
	logger.Info("run snapshot persisted", zap.String("run_id", res.RunID))
}

// printResult writes a run summary to stdout as indented JSON.
func printResult(res *crew.CrewResult) {
	if res == nil {
		return
	}
	summary := map[string]any{
		"run_id":       res.RunID,
		"success":      res.Success,
		"metrics":      res.Metrics,
		"failed_tasks": res.FailedTasks,
	}
	outputs := make(map[string]any, len(res.TaskResults))
	for id, r := range res.TaskResults {
		outputs[id] = r.Output
	}
	summary["outputs"] = outputs

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	crewPath := fs.String("crew", "", "Path to crew definition file")
	fs.Parse(args)

	if *crewPath == "" {
		fmt.Fprintln(os.Stderr, "validate: --crew is required")
		os.Exit(1)
	}

	cf, err := config.LoadCrewFile(*crewPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: crew %q, process %s, %d members, %d tasks\n",
		cf.Name, cf.Process, len(cf.Members), len(cf.Tasks))
}

func runList(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, logger := loadConfig(*configPath)
	defer logger.Sync()

	store, err := persistence.NewSnapshotStore(cfg.Store.StoreConfig())
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := store.List(ctx)
	if err != nil {
		logger.Fatal("failed to list runs", zap.Error(err))
	}
	if len(ids) == 0 {
		fmt.Println("no persisted runs")
		return
	}
	for _, id := range ids {
		fmt.Println(id)
	}
}

func runCleanup(args []string) {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, logger := loadConfig(*configPath)
	defer logger.Sync()

	store, err := persistence.NewSnapshotStore(cfg.Store.StoreConfig())
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := store.Cleanup(ctx, cfg.Store.ArchiveAfter)
	if err != nil {
		logger.Fatal("cleanup failed", zap.Error(err))
	}
	fmt.Printf("removed %d snapshots\n", removed)
}
