// Package cli wires the orchestration core into an interactive terminal
// session and an HTTP serving mode.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/config"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/coordinator"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/display"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/listener"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/llm"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/planner"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/registry"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/server"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/storage"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/tools"
)

type app struct {
	cfg     config.Config
	store   *mission.Store
	sup     *coordinator.Supervisor
	planner *planner.Generator
	workers *registry.Registry
	saver   *storage.Saver
}

func buildApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	client, err := llm.New(llm.Config{Backend: cfg.LLMBackend, Model: cfg.LLMModel, OllamaHost: cfg.OllamaHost})
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	workers, err := registry.LoadOrDefault(cfg.WorkerRegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load worker registry: %w", err)
	}

	store := mission.NewStore(nil)
	store.SuccessFraction = cfg.SuccessFraction

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open mission database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate mission database: %w", err)
	}
	if purged, err := db.PurgeOldMissions(cfg.MissionRetention); err != nil {
		logger.Log.Printf("[storage] purge old missions: %v", err)
	} else if purged > 0 {
		logger.Log.Printf("[storage] purged %d mission(s) older than %s", purged, cfg.MissionRetention)
	}
	saver := storage.NewSaver(db)
	store.SetSaver(saver)

	engine := tools.BuildDefaultEngine(ctx, store, client, cfg.ToolTimeout)
	gen := planner.NewGenerator(client, cfg.LLMModel)
	coord := coordinator.New(coordinator.Params{
		Store:       store,
		Workers:     workers,
		Planner:     gen,
		Engine:      engine,
		Client:      client,
		Model:       cfg.LLMModel,
		MaxParallel: cfg.MaxParallel,
		MaxTurns:    cfg.MaxTurns,
		PlanTimeout: cfg.PlanTimeout,
	})
	sup := coordinator.NewSupervisor(coord, store)
	sup.Start(ctx)

	return &app{cfg: cfg, store: store, sup: sup, planner: gen, workers: workers, saver: saver}, nil
}

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "A mission orchestration core for AI worker teams",
	Long:  `Submits free-text requests as missions: classifies them, plans subtasks, delegates to AI workers and executes with live status tracking.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			fmt.Println("Startup failed:", err)
			os.Exit(1)
		}
		defer a.saver.Close()

		if err := listener.Init(); err != nil {
			fmt.Println("Failed to init terminal input:", err)
			os.Exit(1)
		}
		defer listener.Close()

		go printResults(a)
		go printTaskEvents(a)

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			fmt.Println("\nGoodbye!")
			cancel()
			a.saver.Close()
			os.Exit(0)
		}()

		listener.AsyncPrintln("Describe a mission, or use: status <id>, history, cancel [id], plan <request>, exit")

		for {
			input := listener.GetInput()
			switch {
			case input == "":
				continue
			case input == "exit" || input == "quit":
				fmt.Println("Goodbye!")
				return
			case input == "cancel":
				id, err := a.sup.CancelMostRecent()
				if err != nil {
					listener.AsyncPrintln(fmt.Sprintf("[Cancel] %v", err))
				} else {
					listener.AsyncPrintln(fmt.Sprintf("[Mission %s] cancellation requested", id))
				}
			case strings.HasPrefix(input, "cancel "):
				id := strings.TrimSpace(strings.TrimPrefix(input, "cancel "))
				if err := a.sup.Cancel(id); err != nil {
					listener.AsyncPrintln(fmt.Sprintf("[Cancel] %v", err))
				} else {
					listener.AsyncPrintln(fmt.Sprintf("[Mission %s] cancellation requested", id))
				}
			case input == "history":
				printHistory(a)
			case strings.HasPrefix(input, "status "):
				id := strings.TrimSpace(strings.TrimPrefix(input, "status "))
				if m, ok := a.store.Mission(id); ok {
					listener.AsyncPrintln(display.FormatMissionSummary(m, a.store.Tasks(id)))
					continue
				}
				// Missions from earlier sessions live only in storage.
				m, tasks, err := a.saver.LoadMission(id)
				if err != nil {
					listener.AsyncPrintln(fmt.Sprintf("[Status] unknown mission %s", id))
					continue
				}
				listener.AsyncPrintln(display.FormatMissionSummary(m, tasks))
			case strings.HasPrefix(input, "plan "):
				previewPlan(a, strings.TrimSpace(strings.TrimPrefix(input, "plan ")))
			default:
				id := a.sup.Submit(input)
				listener.AsyncPrintln(fmt.Sprintf("[Mission %s] submitted", id))
			}
		}
	},
}

// previewPlan generates and prints a plan without executing it.
func previewPlan(a *app, request string) {
	if request == "" {
		listener.AsyncPrintln("[Plan] usage: plan <request>")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PlanTimeout)
	defer cancel()
	plan, err := a.planner.GeneratePlan(ctx, 1, request, a.workers.Summary(), nil)
	if err != nil {
		listener.AsyncPrintln(fmt.Sprintf("[Plan generation FAILED] %v", err))
		return
	}
	listener.AsyncPrintln(display.FormatPlan(plan))
}

// printHistory lists recent missions from storage, including ones run in
// earlier sessions.
func printHistory(a *app) {
	missions, err := a.saver.RecentMissions(10)
	if err != nil {
		listener.AsyncPrintln(fmt.Sprintf("[History] %v", err))
		return
	}
	if len(missions) == 0 {
		listener.AsyncPrintln("[History] no missions yet")
		return
	}
	var sb strings.Builder
	sb.WriteString("Recent missions:")
	for _, m := range missions {
		sb.WriteString(fmt.Sprintf("\n  %s  %-10s  %s", m.ID, m.Status, m.Request))
	}
	listener.AsyncPrintln(sb.String())
}

// printResults reports finished missions above the prompt.
func printResults(a *app) {
	for result := range a.sup.Results {
		switch result.Status {
		case mission.MissionCompleted:
			listener.AsyncPrintln(fmt.Sprintf("[Mission %s COMPLETED]", result.MissionID))
			if result.Output != "" {
				listener.AsyncPrintln(result.Output)
			}
		case mission.MissionCancelled:
			listener.AsyncPrintln(fmt.Sprintf("[Mission %s CANCELLED]", result.MissionID))
		default:
			listener.AsyncPrintln(fmt.Sprintf("[Mission %s FAILED] %s", result.MissionID, result.Error))
		}
		if result.Metrics != nil {
			listener.AsyncPrintln(display.FormatMissionMetrics(result.Metrics))
		}
	}
}

// printTaskEvents surfaces task transitions live so long missions show
// progress.
func printTaskEvents(a *app) {
	events, unsubscribe := a.store.Emitter().Subscribe(128)
	defer unsubscribe()
	for ev := range events {
		if ev.EntityType != "task" {
			continue
		}
		listener.AsyncPrintln(display.FormatStatusEvent(ev))
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mission API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			fmt.Println("Startup failed:", err)
			os.Exit(1)
		}
		defer a.saver.Close()

		go drainResults(a)

		srv := server.New(a.store, a.sup, a.saver)
		if err := srv.ListenAndServe(a.cfg.ListenAddr); err != nil {
			logger.Log.Printf("[serve] %v", err)
			os.Exit(1)
		}
	},
}

// drainResults keeps the supervisor's result channel flowing in serve mode;
// clients follow missions through the event stream instead.
func drainResults(a *app) {
	for result := range a.sup.Results {
		logger.Log.Printf("[serve] mission %s finished: status=%s duration=%dms",
			result.MissionID, result.Status, durationMs(result))
	}
}

func durationMs(r coordinator.MissionResult) int64 {
	if r.Metrics == nil {
		return 0
	}
	return r.Metrics.DurationMs
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
