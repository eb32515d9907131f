package domain

// ReviewArtifact is a completed local review ready to be written to disk.
type ReviewArtifact struct {
	OutputDir    string
	Repository   string
	SourceBranch string
	TargetBranch string
	Provider     string
	Model        string
	Verdict      Verdict
	Fingerprint  ChangeFingerprint
	Body         string
}
