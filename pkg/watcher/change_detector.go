package watcher

// ChangeAnalysis describes what changed and whether the graph must be rebuilt
type ChangeAnalysis struct {
	NeedReload   bool
	Reason       string
	ChangedFiles []string
}

// AnalyzeChanges determines what a batch of changes means for the pipeline
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeOutline:
		// The outline is re-parsed from scratch
		analysis.NeedReload = true
		analysis.Reason = "outline changed"

	case ChangeTypePicture:
		// Picture rows are part of the node labels
		analysis.NeedReload = true
		analysis.Reason = "profile pictures changed"
	}

	return analysis
}
