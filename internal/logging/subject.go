package logging

import "strings"

// FormatSubject builds the job/shot/stage subject string used in console output.
func FormatSubject(jobID, shotID, stage string) string {
	jobID = strings.TrimSpace(jobID)
	shotID = strings.TrimSpace(shotID)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if jobID != "" {
		parts = append(parts, "Job "+jobID)
	}
	switch {
	case shotID != "" && stage != "":
		parts = append(parts, shotID+" ("+stage+")")
	case shotID != "":
		parts = append(parts, shotID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}
