package gemini

const NarrationPrompt = "Convert the following lesson content into a clear, engaging narration suitable for audio. " +
	"The narration must sound like a human teacher talking. Talk in a way that attracts attention and is easy to understand. " +
	"AVOID USING asterisks or similar symbols outside math/scientific expressions or for intonation or emphasis. Only use newline characters. " +
	"Focus on clarity, flow, and engagement, ensuring it sounds natural when spoken and is suitable for text-to-speech conversion. " +
	"For any math expressions, spell them out in English words as they would be spoken (e.g., 'x squared plus y equals 10'). " +
	"Ensure that the narration when spoken won't exceed 10 minutes. Output only the narration text.\n\nLesson content:\n"

const KeywordsPrompt = "Given the following lesson content, extract 3-5 relevant search keywords as a JSON array of strings. " +
	"Output only the JSON array.\n\nLesson content:\n"
