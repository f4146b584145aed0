package generation

import (
	"fmt"
	"strings"
)

// buildVideoPrompt assembles the synthesis prompt. The stylized frame rides
// along as the opening-frame reference, so the prompt pins the model to it.
func buildVideoPrompt(description, stylePrompt string) string {
	var sb strings.Builder
	sb.WriteString("Use the reference image as the opening frame of the video, fully retaining its visual texture.\n")
	sb.WriteString("Scene: " + strings.TrimSpace(description) + "\n")
	sb.WriteString("Style: " + strings.TrimSpace(stylePrompt) + "\n")
	sb.WriteString("Camera: slow cinematic push-in.\n")
	return sb.String()
}

// buildStylizePrompt assembles the image-edit prompt for one frame. The
// first attached image is always the frame to restyle; any further images
// are entity references whose appearance must carry over.
func buildStylizePrompt(stylePrompt, description string, referenceCount int) string {
	var sb strings.Builder
	sb.WriteString("Restyle the first image. Target style: " + strings.TrimSpace(stylePrompt) + ".\n")
	sb.WriteString("Preserve the composition exactly: subject placement, framing, and camera angle must not change.\n")
	if desc := strings.TrimSpace(description); desc != "" {
		sb.WriteString("Scene content: " + desc + "\n")
	}
	if referenceCount > 0 {
		fmt.Fprintf(&sb, "The %d additional image(s) are character/object references; keep their appearance consistent in the restyled frame.\n", referenceCount)
	}
	sb.WriteString("Return the restyled frame as an image.")
	return sb.String()
}

// describeSystemPrompt instructs the chat model when annotating shot frames
// at decomposition time.
const describeSystemPrompt = `You are annotating shots cut from a single source video.
For every frame you are given, write one short English sentence describing the visible scene: subjects, setting, and action.
Return a JSON array of strings, one per frame, in the order the frames were given.
Return only JSON.`
