package logging

import "strings"

// FormatSubject builds the file/stage subject shown in console output.
func FormatSubject(file, stage string) string {
	file = strings.TrimSpace(file)
	stage = strings.TrimSpace(stage)
	switch {
	case file != "" && stage != "":
		return file + " · " + stage
	case file != "":
		return file
	default:
		return stage
	}
}
