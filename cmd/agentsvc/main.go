// Command agentsvc runs a single department Agent Service: one
// sentiment analyzer hosted behind the A2A JSON-RPC protocol.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/aixgo-dev/reviewmesh/internal/agentsvc"
	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/observability"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/pkg/config"
	metricsobs "github.com/aixgo-dev/reviewmesh/pkg/observability"
	"github.com/aixgo-dev/reviewmesh/pkg/session"

	"github.com/redis/go-redis/v9"
)

var (
	configPath string
	agentType  string
	port       int
	pidFile    string
)

func main() {
	root := &cobra.Command{Use: "agentsvc", Short: "Run a single department sentiment Agent Service"}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_FILE", "config/reviewmesh.yaml"), "configuration file")
	root.PersistentFlags().StringVar(&agentType, "agent-type", envOr("AGENT_TYPE", "quality"), "department agent type this process hosts")
	root.PersistentFlags().IntVar(&port, "port", envOrInt("PORT", 8001), "HTTP port")
	root.PersistentFlags().StringVar(&pidFile, "pid-file", "", "optional pid file written on run, read on stop")

	root.AddCommand(runCmd(), healthCheckCmd(), stopCmd(), interactiveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Agent Service and serve until signaled to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			p, err := provider.FromConfig(cfg)
			if err != nil {
				return fmt.Errorf("build provider: %w", err)
			}

			analyzer := sentiment.NewAnalyzerForType(agentType, p, cfg.DefaultModel)

			limiter := buildLimiter(cfg)

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

			srv := agentsvc.New(agentsvc.Config{
				Port:            port,
				Analyzer:        analyzer,
				Limiter:         limiter,
				AgentCardPath:   filepath.Join(cfg.AgentCardDir, agentType+".json"),
				DefaultCategory: cfg.ProductCategory,
			})

			if pidFile != "" {
				if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
					return fmt.Errorf("write pid file: %w", err)
				}
				defer os.Remove(pidFile)
			}

			errChan := make(chan error, 1)
			go func() {
				fmt.Printf("agentsvc[%s] listening on :%d\n", agentType, port)
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errChan <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errChan:
				return err
			case <-quit:
				fmt.Println("shutting down agentsvc...")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func healthCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health-check",
		Short: "Check whether the Agent Service at --port is healthy, exiting 0/1",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health", port))
			if err != nil {
				os.Exit(1)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				os.Exit(1)
			}
			io.Copy(os.Stdout, resp.Body)
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
	return &cobra.Command{
		Use:   "interactive",
		Short: "Analyze review text from an interactive console, without starting the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p, err := provider.FromConfig(cfg)
			if err != nil {
				return fmt.Errorf("build provider: %w", err)
			}
			analyzer := sentiment.NewAnalyzerForType(agentType, p, cfg.DefaultModel)

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			fmt.Printf("%s agent console. Enter review text, Ctrl-D to quit.\n", agentType)
			for {
				text, err := line.Prompt("review> ")
				if err != nil {
					return nil
				}
				line.AppendHistory(text)

				record := analyzer.Analyze(context.Background(), text, sentiment.AnalyzerParams{ProductCategory: cfg.ProductCategory})
				out, _ := json.MarshalIndent(record, "", "  ")
				fmt.Println(string(out))
			}
		},
	}
}

func buildLimiter(cfg *config.Config) agentsvc.Limiter {
	if cfg.Redis.Addr == "" {
		return agentsvc.NewInProcessLimiter(10, 20)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	return agentsvc.NewRedisLimiter(session.NewRedisLimiter(client, 600, time.Minute))
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
