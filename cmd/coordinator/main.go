// Command coordinator runs the review analysis workflow: it either
// fans department analysis out in-process or across independently
// hosted Agent Services, then synthesizes a master analysis and
// business recommendation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/aixgo-dev/reviewmesh/internal/a2a"
	"github.com/aixgo-dev/reviewmesh/internal/coordinator"
	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/observability"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/pkg/config"
	metricsobs "github.com/aixgo-dev/reviewmesh/pkg/observability"
	"github.com/aixgo-dev/reviewmesh/pkg/scrape"
)

// ServiceVersion is reported by /health and the agent card.
const ServiceVersion = "0.1.0"

var (
	configPath string
	port       int
	pidFile    string
)

func main() {
	root := &cobra.Command{Use: "coordinator", Short: "Run the review analysis coordinator"}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_FILE", "config/reviewmesh.yaml"), "configuration file")
	root.PersistentFlags().IntVar(&port, "port", envOrInt("PORT", 8000), "HTTP port")
	root.PersistentFlags().StringVar(&pidFile, "pid-file", "", "optional pid file written on run, read on stop")

	root.AddCommand(runCmd(), healthCheckCmd(), stopCmd(), interactiveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCoordinator(cfg *config.Config) (coordinator.Coordinator, error) {
	p, err := provider.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}
	return coordinator.BuildFromConfig(cfg, p), nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve /rpc and start the optional review-scrape poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			coord, err := buildCoordinator(cfg)
			if err != nil {
				return err
			}

			if err := observability.InitFromEnv(); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			_ = observability.InitLangfuse()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				observability.Shutdown(ctx)
			}()

			metricsobs.InitMetrics()
			checker := metricsobs.InitHealthChecker()
			checker.RegisterCheck(metricsobs.PingCheck())

			mux := http.NewServeMux()
			mux.HandleFunc("/rpc", rpcHandler(coord, cfg))
			mux.HandleFunc("/health", healthHandler)
			mux.HandleFunc("/.well-known/agent.json", agentCardHandler(filepath.Join(cfg.AgentCardDir, "coordinator.json")))
			mux.Handle("/metrics", metricsobs.MetricsHandler())

			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			var poller *scrape.Poller
			if cfg.Scrape.Enabled {
				poller = scrape.NewPoller(scrape.MockSource{}, coord, cfg.Scrape.ProductID, cfg.Scrape.MaxItemsPerRun, sentiment.AnalyzerParams{ProductCategory: cfg.ProductCategory}, nil)
				if err := poller.Start(cfg.Scrape.Schedule); err != nil {
					return fmt.Errorf("start scrape poller: %w", err)
				}
				defer poller.Stop()
			}

			if pidFile != "" {
				if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
					return fmt.Errorf("write pid file: %w", err)
				}
				defer os.Remove(pidFile)
			}

			errChan := make(chan error, 1)
			go func() {
				fmt.Printf("coordinator (%s) listening on :%d\n", cfg.Coordinator.Strategy, port)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errChan <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errChan:
				return err
			case <-quit:
				fmt.Println("shutting down coordinator...")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}
}

// rpcHandler serves the same tasks/send A2A envelope every Agent
// Service serves (§6 of the wire protocol applies to "all services",
// not just department agents), so the coordinator can be called the
// same way a department is: the message text is the review, and
// product_id is the request's task id. enable_scraping/sources/
// product_name are recognized coordinator metadata keys per the wire
// protocol, but live per-request scraping across named sources is out
// of scope here — only the config-level scheduled poller
// (pkg/scrape.Poller, started when scrape.enabled is set) performs
// scraping, always against the mock source.
func rpcHandler(coord coordinator.Coordinator, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req a2a.RpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRPC(w, a2a.NewErrorResponse("", a2a.CodeInvalidParams, "malformed JSON-RPC request"))
			return
		}

		if errResp := a2a.Validate(req); errResp != nil {
			writeRPC(w, *errResp)
			return
		}

		reviewText, _ := a2a.ExtractText(req.Params.Message)
		params := sentiment.AnalyzerParams{ProductCategory: cfg.ProductCategory}
		if req.Params.Metadata != nil {
			if cat, ok := req.Params.Metadata["product_category"].(string); ok && cat != "" {
				params.ProductCategory = cat
			}
			if tokens, ok := req.Params.Metadata["max_tokens_per_agent"].(float64); ok {
				params.MaxTokens = int(tokens)
			}
		}

		result := coord.Analyze(r.Context(), reviewText, req.Params.ID, params)

		outputText, err := json.Marshal(result)
		if err != nil {
			writeRPC(w, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, "failed to encode workflow result"))
			return
		}

		sessionID := fmt.Sprintf("coordinator-session-%s", shortID(req.Params.ID))
		resp := a2a.NewA2AResponse(req.ID, req.Params.ID, string(outputText), sessionID, map[string]interface{}{
			"strategy":          cfg.Coordinator.Strategy,
			"consensus_reached": result.Metadata.ConsensusReached,
			"discussion_rounds": result.Metadata.DiscussionRounds,
		})
		writeRPC(w, resp)
	}
}

func writeRPC(w http.ResponseWriter, resp a2a.RpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"agent":   "coordinator",
		"version": ServiceVersion,
	})
}

// agentCardHandler serves the static card at cardPath, read fresh on
// every request (the file changes only between deploys, never at
// runtime, so the cost is negligible and there is nothing to
// invalidate). Missing file is a 404; unreadable or non-JSON content
// is a 500, matching the Agent Service's own card handler.
func agentCardHandler(cardPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(cardPath)
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		if err != nil || !json.Valid(data) {
			http.Error(w, "agent card unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func healthCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health-check",
		Short: "Check whether the coordinator at --port is healthy, exiting 0/1",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health", port))
			if err != nil || resp.StatusCode != http.StatusOK {
				os.Exit(1)
			}
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Send SIGTERM to the process recorded in --pid-file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pidFile == "" {
				return fmt.Errorf("--pid-file is required")
			}
			data, err := os.ReadFile(pidFile)
			if err != nil {
				return fmt.Errorf("read pid file: %w", err)
			}
			pid, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("parse pid file: %w", err)
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return err
			}
			return proc.Signal(syscall.SIGTERM)
		},
	}
}

func interactiveCmd() *cobra.Command {
	var productID string
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Submit ad-hoc review text to the full workflow from a console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			coord, err := buildCoordinator(cfg)
			if err != nil {
				return err
			}

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			fmt.Println("coordinator console. Enter review text, Ctrl-D to quit.")
			for {
				text, err := line.Prompt("review> ")
				if err != nil {
					return nil
				}
				line.AppendHistory(text)

				result := coord.Analyze(context.Background(), text, productID, sentiment.AnalyzerParams{ProductCategory: cfg.ProductCategory})
				out, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(out))
			}
		},
	}
	cmd.Flags().StringVar(&productID, "product-id", "console", "product ID attached to interactive submissions")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
