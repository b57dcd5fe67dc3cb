package constant

const (
	DefaultFoundationPrompt        = "Create a comprehensive educational lesson from the provided PDF content."
	DefaultFoundationPromptVersion = "1.0"
	AdditionalInstructionsHeader   = "\n\nAdditional Instructions:\n"
)

// Progress messages.
const (
	MsgUploaded          = "PDF uploaded successfully"
	MsgAnalyzing         = "Analyzing PDF content..."
	MsgNarrating         = "Generating audio narration script..."
	MsgExtractingKeys    = "Extracting keywords..."
	MsgKeywordsFallback  = "Keywords extracted (fallback)"
	MsgSearchingVideos   = "Searching for relevant videos..."
	MsgVideosFallback    = "Video search completed (0 found or error)"
	MsgSynthesizing      = "Generating audio narration file..."
	MsgAudioFallback     = "Audio generation failed"
	MsgReady             = "Lesson ready for video selection"
	MsgCancelled         = "Lesson generation cancelled by user"
	MsgAnalysisFailed    = "AI content analysis failed: "
	MsgNarrationFailed   = "Audio narration script generation failed: "
	MsgGenerationStarted = "PDF processing started"
)

// Keyword fallback seeds; the lowercased title is appended.
var FallbackKeywords = []string{"education", "learning"}

// Topics and subjects.
const (
	ArtifactCleanupTopic = "ARTIFACT_CLEANUP"
	VideoSearchLimit     = 10
)
