package loop

import (
	"log/slog"
	"strings"

	"github.com/metaygn/aletheia/pkg/models"
)

// competenceStage (stage 3) self-assesses competence for the classified task
// type, discounted for unfamiliar domains.
type competenceStage struct{}

func (competenceStage) Name() string { return "competence" }

var unfamiliarDomains = []string{
	"kernel", "driver", "gpu", "cuda", "fpga",
	"assembly", "verilog", "quantum", "blockchain",
}

func (s competenceStage) Run(ctx *Context) StageResult {
	ctx.Competence = baseCompetence(ctx.TaskType)

	prompt := strings.ToLower(ctx.Input.Prompt)
	for _, kw := range unfamiliarDomains {
		if strings.Contains(prompt, kw) {
			ctx.Competence -= 0.1
		}
	}
	if ctx.Competence < 0 {
		ctx.Competence = 0
	}

	slog.Debug("assessed competence", "stage", s.Name(), "competence", ctx.Competence)
	return Continue()
}

// baseCompetence returns the default competence by task type. Security and
// architecture are harder; bugfix and refactor are familiar territory.
func baseCompetence(taskType models.TaskType) float64 {
	switch taskType {
	case models.TaskBugfix:
		return 0.8
	case models.TaskFeature:
		return 0.7
	case models.TaskRefactor:
		return 0.8
	case models.TaskArchitecture:
		return 0.5
	case models.TaskSecurity:
		return 0.4
	case models.TaskResearch:
		return 0.6
	case models.TaskRelease:
		return 0.7
	default:
		return 0.5
	}
}
