package coordinator

import (
	"time"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/pkg/config"
)

// BuildFromConfig constructs the coordinator strategy named by
// cfg.Coordinator.Strategy. EnableConsensusDebate=false disables the
// discussion loop entirely by capping its round budget at zero, rather
// than threading a separate flag through Engine: zero rounds already
// guarantees current_round stays 0 and discussion_messages stays empty.
func BuildFromConfig(cfg *config.Config, p provider.Provider) Coordinator {
	maxRounds := cfg.Coordinator.MaxDiscussionRounds
	if cfg.Coordinator.EnableConsensusDebate != nil && !*cfg.Coordinator.EnableConsensusDebate {
		maxRounds = 0
	}

	switch cfg.Coordinator.Strategy {
	case "parallel":
		endpoints := make([]DepartmentEndpoint, len(cfg.Departments))
		for i, d := range cfg.Departments {
			endpoints[i] = DepartmentEndpoint{AgentType: d.AgentType, Endpoint: d.Endpoint}
		}
		master := sentiment.NewAnalyzerForType(cfg.Coordinator.MasterAgentType, p, cfg.DefaultModel)
		advisor := sentiment.NewAnalyzerForType(cfg.Coordinator.AdvisorAgentType, p, cfg.DefaultModel)
		timeout := time.Duration(cfg.Coordinator.AgentTimeoutSeconds) * time.Second
		return NewParallel(endpoints, master, advisor, timeout, maxRounds, cfg.Coordinator.DisagreementThreshold)
	default:
		return NewSequential(cfg.DepartmentAgentTypes(), cfg.Coordinator.MasterAgentType, cfg.Coordinator.AdvisorAgentType, p, cfg.DefaultModel, maxRounds, cfg.Coordinator.DisagreementThreshold)
	}
}
