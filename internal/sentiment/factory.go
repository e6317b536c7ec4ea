package sentiment

import "github.com/aixgo-dev/reviewmesh/internal/llm/provider"

// AvailableAgentTypes returns every agent_type this package knows how to
// construct an analyzer for, departments first, then master and advisor.
func AvailableAgentTypes() []string {
	return []string{
		"quality", "experience", "user_experience", "business", "technical",
		"master_analyst", "business_advisor",
	}
}

// NewAnalyzerForType constructs the correct concrete Analyzer for
// agentType, dispatching to the master/advisor specializations where
// applicable and to the generic department analyzer otherwise.
func NewAnalyzerForType(agentType string, p provider.Provider, model string) Analyzer {
	switch agentType {
	case "master_analyst":
		return NewMasterAnalyzer(p, model)
	case "business_advisor":
		return NewAdvisorAnalyzer(p, model)
	default:
		return NewAnalyzer(agentType, p, model)
	}
}

// BuildTeam constructs one analyzer per requested agent type, in order.
func BuildTeam(agentTypes []string, p provider.Provider, model string) []Analyzer {
	team := make([]Analyzer, len(agentTypes))
	for i, t := range agentTypes {
		team[i] = NewAnalyzerForType(t, p, model)
	}
	return team
}
