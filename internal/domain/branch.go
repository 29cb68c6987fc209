package domain

// Stage ordering for branches, promotions, and deployments.
const (
	StageMain    = "main"
	StageDev     = "dev"
	StageQA      = "qa"
	StageStaging = "staging"
	StageProd    = "prod"
)

// stageRank orders stages for promotion-gate comparisons. Main is not part
// of the promotion ladder; it ranks below dev so any dev/qa/staging/prod
// comparison against it is always "ahead".
var stageRank = map[string]int{
	StageMain:    0,
	StageDev:     1,
	StageQA:      2,
	StageStaging: 3,
	StageProd:    4,
}

// StageRank returns the ordinal rank of a stage, or -1 if unknown.
func StageRank(stage string) int {
	if rank, ok := stageRank[stage]; ok {
		return rank
	}
	return -1
}

// Branch is a mutable pointer identifying a (project, name, stage) lineage
// of immutable Version nodes.
type Branch struct {
	ID             string
	ProjectID      string
	Name           string
	Stage          string
	ParentBranchID *string
	IsDefault      bool
}
