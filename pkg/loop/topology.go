package loop

import "github.com/metaygn/aletheia/pkg/models"

// Topology categorises which subset of the pipeline runs. The key insight is
// that skipping unnecessary stages is what matters: a trivial task should
// run 4 stages, not 12.
type Topology string

const (
	// TopologySingle is the minimal 4-stage pipeline for trivial tasks.
	TopologySingle Topology = "Single"
	// TopologyVertical is the sequential pipeline (full 12 or the slim
	// research variant).
	TopologyVertical Topology = "Vertical"
	// TopologyHorizontal appends a second verify+calibrate pass (14 stages).
	TopologyHorizontal Topology = "Horizontal"
)

// AllStages lists the 12 stage names in default pipeline order. Must match
// each Stage.Name() in runner.go.
var AllStages = []string{
	"classify",
	"assess",
	"competence",
	"tool_need",
	"budget",
	"strategy",
	"act",
	"verify",
	"calibrate",
	"compact",
	"decide",
	"learn",
}

// ExecutionPlan is an ordered stage subset plus the rationale for choosing it.
type ExecutionPlan struct {
	Topology  Topology `json:"topology"`
	Stages    []string `json:"stages"`
	Rationale string   `json:"rationale"`
}

// Plan selects an execution plan from task characteristics:
//
//	Security task (any risk)        -> Horizontal (14 stages)
//	Research task                   -> slim Vertical (6 stages)
//	High risk                       -> Horizontal (14 stages)
//	Low risk and difficulty < 0.2   -> Single (4 stages)
//	otherwise                       -> full Vertical (12 stages)
func Plan(risk models.RiskLevel, difficulty float64, taskType models.TaskType) ExecutionPlan {
	// Security always gets maximum scrutiny, regardless of risk.
	if taskType == models.TaskSecurity {
		return ExecutionPlan{
			Topology:  TopologyHorizontal,
			Stages:    horizontalStages(),
			Rationale: "Security tasks always receive double verification (Horizontal topology)",
		}
	}

	// Research tasks skip heavy verification stages.
	if taskType == models.TaskResearch {
		return ExecutionPlan{
			Topology:  TopologyVertical,
			Stages:    []string{"classify", "assess", "competence", "strategy", "act", "learn"},
			Rationale: "Research tasks use a slim 6-stage pipeline, skipping verification overhead",
		}
	}

	if risk == models.RiskHigh {
		return ExecutionPlan{
			Topology:  TopologyHorizontal,
			Stages:    horizontalStages(),
			Rationale: "High-risk tasks receive double verify+calibrate pass (Horizontal topology)",
		}
	}

	if risk == models.RiskLow && difficulty < 0.2 {
		return TrivialPlan()
	}

	return FullPlan()
}

// FullPlan returns the standard full 12-stage sequential pipeline.
func FullPlan() ExecutionPlan {
	stages := make([]string, len(AllStages))
	copy(stages, AllStages)
	return ExecutionPlan{
		Topology:  TopologyVertical,
		Stages:    stages,
		Rationale: "Standard full 12-stage sequential pipeline",
	}
}

// TrivialPlan returns the minimal 4-stage pipeline for trivial tasks.
func TrivialPlan() ExecutionPlan {
	return ExecutionPlan{
		Topology:  TopologySingle,
		Stages:    []string{"classify", "assess", "act", "decide"},
		Rationale: "Trivial task: skip unnecessary overhead, 4 stages only",
	}
}

// horizontalStages appends a second verify+calibrate pass to the full list.
func horizontalStages() []string {
	stages := make([]string, 0, len(AllStages)+2)
	stages = append(stages, AllStages...)
	return append(stages, "verify", "calibrate")
}
