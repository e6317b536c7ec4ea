// Command stack launches an entire reviewmesh deployment from a single
// config file: one agentsvc process per configured department plus
// master/advisor agent, phased by internal/graph's dependency levels,
// followed by the coordinator process. stack itself acts as the
// supervisor described by the wire protocol's startup surface: --stop
// and --health-check act on every service it manages, not just itself,
// which means run persists one pidfile per child under --pid-dir so a
// later, separate stop/health-check invocation can find them.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aixgo-dev/reviewmesh/internal/graph"
	"github.com/aixgo-dev/reviewmesh/pkg/config"
)

var configPath string

func main() {
	root := &cobra.Command{Use: "stack", Short: "Launch an entire reviewmesh deployment"}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_FILE", "config/reviewmesh.yaml"), "configuration file")
	root.AddCommand(runCmd(), healthCheckCmd(), stopCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// process tracks one child process this binary launched, so it can be
// terminated during shutdown.
type process struct {
	name string
	cmd  *exec.Cmd
}

const defaultPidDir = ".reviewmesh/stack"

func runCmd() *cobra.Command {
	var pidDir string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start every agent service and the coordinator, phased by startup dependency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			if err := checkPortsFree(stackPorts(cfg)); err != nil {
				return err
			}

			if err := os.MkdirAll(pidDir, 0755); err != nil {
				return fmt.Errorf("create pid dir: %w", err)
			}
			if err := clearPidDir(pidDir); err != nil {
				return fmt.Errorf("clear stale pid dir: %w", err)
			}

			g := graph.NewDependencyGraph()
			for _, d := range cfg.Departments {
				g.AddNode(d.AgentType, nil)
			}
			g.AddNode(cfg.Coordinator.MasterAgentType, cfg.DepartmentAgentTypes())
			g.AddNode(cfg.Coordinator.AdvisorAgentType, []string{cfg.Coordinator.MasterAgentType})
			g.AddNode("coordinator", []string{cfg.Coordinator.AdvisorAgentType})

			levels, err := g.TopologicalLevels()
			if err != nil {
				return fmt.Errorf("compute startup order: %w", err)
			}

			var procs []*process
			for _, level := range levels {
				for _, name := range level {
					p, err := launch(cfg, name)
					if err != nil {
						stopAll(procs)
						return fmt.Errorf("start %s: %w", name, err)
					}
					if p != nil {
						procs = append(procs, p)
						fmt.Printf("started %s (pid %d)\n", name, p.cmd.Process.Pid)
						if err := writePidFile(pidDir, name, p.cmd.Process.Pid); err != nil {
							stopAll(procs)
							return fmt.Errorf("persist pidfile for %s: %w", name, err)
						}
					}
				}
				time.Sleep(2 * time.Second)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			fmt.Println("stack received shutdown signal, stopping children...")

			stopAll(procs)
			clearPidDir(pidDir)

			if sig == syscall.SIGINT {
				os.Exit(130)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pidDir, "pid-dir", envOr("STACK_PID_DIR", defaultPidDir), "directory to persist child pidfiles, so a separate stop/health-check invocation can find them")
	return cmd
}

// healthCheckCmd probes every managed service's /health, exiting 0 iff
// all of them answer 200. It reads ports from --config rather than the
// pid directory, since a service's health endpoint is addressable by
// port regardless of which process started it.
func healthCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health-check",
		Short: "Probe every managed service's /health, exiting 0 iff all are healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			endpoints := allEndpoints(cfg)
			unhealthy := 0
			for name, port := range endpoints {
				ok := probeHealth(port)
				status := "healthy"
				if !ok {
					status = "UNHEALTHY"
					unhealthy++
				}
				fmt.Printf("%-20s :%d  %s\n", name, port, status)
			}

			if unhealthy > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
}

func probeHealth(port int) bool {
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// allEndpoints maps every managed service name to its configured port.
func allEndpoints(cfg *config.Config) map[string]int {
	endpoints := map[string]int{
		"coordinator":                    cfg.Coordinator.Port,
		cfg.Coordinator.MasterAgentType:  cfg.Coordinator.MasterPort,
		cfg.Coordinator.AdvisorAgentType: cfg.Coordinator.AdvisorPort,
	}
	for _, d := range cfg.Departments {
		endpoints[d.AgentType] = d.Port
	}
	return endpoints
}

// stopCmd terminates every service previously started by run, reading
// pidfiles persisted under --pid-dir. This necessarily runs as a
// separate process from run, so there is no in-memory []*process to
// reuse; the pidfiles are the only record that survives across
// invocations.
func stopCmd() *cobra.Command {
	var pidDir string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Terminate every service previously started by run, via --pid-dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readPidFiles(pidDir)
			if err != nil {
				return fmt.Errorf("read pid dir: %w", err)
			}
			if len(entries) == 0 {
				return fmt.Errorf("no running services found under %s", pidDir)
			}

			for name, pid := range entries {
				proc, err := os.FindProcess(pid)
				if err != nil {
					continue
				}
				if err := proc.Signal(syscall.SIGTERM); err != nil {
					fmt.Printf("%s (pid %d): %v\n", name, pid, err)
					continue
				}
				fmt.Printf("stopped %s (pid %d)\n", name, pid)
			}

			return clearPidDir(pidDir)
		},
	}
	cmd.Flags().StringVar(&pidDir, "pid-dir", envOr("STACK_PID_DIR", defaultPidDir), "directory run persisted child pidfiles under")
	return cmd
}

// launch starts the child process hosting name (a department, the
// master analyst, the advisor, or the coordinator). name "coordinator"
// starts cmd/coordinator; every other name starts cmd/agentsvc
// --agent-type=name on the port configured for it.
func launch(cfg *config.Config, name string) (*process, error) {
	if name == "coordinator" {
		c := exec.Command(self(), "coordinator", "run", "--config", configPath, "--port", strconv.Itoa(cfg.Coordinator.Port))
		c.Stdout, c.Stderr = os.Stdout, os.Stderr
		if err := c.Start(); err != nil {
			return nil, err
		}
		return &process{name: name, cmd: c}, nil
	}

	port := portFor(cfg, name)
	if port == 0 {
		return nil, fmt.Errorf("no port configured for agent type %q", name)
	}

	c := exec.Command(self(), "agentsvc", "run", "--config", configPath, "--agent-type", name, "--port", strconv.Itoa(port))
	c.Stdout, c.Stderr = os.Stdout, os.Stderr
	if err := c.Start(); err != nil {
		return nil, err
	}
	return &process{name: name, cmd: c}, nil
}

func portFor(cfg *config.Config, agentType string) int {
	for _, d := range cfg.Departments {
		if d.AgentType == agentType {
			return d.Port
		}
	}
	if agentType == cfg.Coordinator.MasterAgentType {
		return cfg.Coordinator.MasterPort
	}
	if agentType == cfg.Coordinator.AdvisorAgentType {
		return cfg.Coordinator.AdvisorPort
	}
	return 0
}

func stackPorts(cfg *config.Config) []int {
	ports := []int{cfg.Coordinator.Port, cfg.Coordinator.MasterPort, cfg.Coordinator.AdvisorPort}
	for _, d := range cfg.Departments {
		ports = append(ports, d.Port)
	}
	return ports
}

// checkPortsFree fails fast with a clear error rather than letting
// every child process crash independently on the same bind conflict.
func checkPortsFree(ports []int) error {
	for _, port := range ports {
		if port == 0 {
			continue
		}
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return fmt.Errorf("port %d is already in use: %w", port, err)
		}
		ln.Close()
	}
	return nil
}

func stopAll(procs []*process) {
	for i := len(procs) - 1; i >= 0; i-- {
		p := procs[i]
		if p.cmd.Process == nil {
			continue
		}
		p.cmd.Process.Signal(syscall.SIGTERM)
	}
	for _, p := range procs {
		done := make(chan error, 1)
		go func(c *exec.Cmd) { done <- c.Wait() }(p.cmd)
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			p.cmd.Process.Kill()
		}
	}
}

// writePidFile persists one pid per managed service, named after the
// service, under dir.
func writePidFile(dir, name string, pid int) error {
	return os.WriteFile(filepath.Join(dir, name+".pid"), []byte(strconv.Itoa(pid)), 0644)
}

// readPidFiles loads every *.pid file under dir into a name->pid map.
func readPidFiles(dir string) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pids := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pid") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		pids[strings.TrimSuffix(e.Name(), ".pid")] = pid
	}
	return pids, nil
}

// clearPidDir removes every persisted pidfile once its process has
// been stopped, so a stale directory doesn't describe processes that
// no longer exist.
func clearPidDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".pid") {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

// self returns the path to this binary, so stack can exec the same
// executable under its agentsvc/coordinator subcommands.
func self() string {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
