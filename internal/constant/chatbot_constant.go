package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// Chat modes. Unknown modes use the default prompt.
const (
	ChatModeDefault     = "default"
	ChatModeQuiz        = "quiz_mode"
	ChatModeExplanation = "explanation"
)

const (
	ChatSystemPromptDefault     = "You are an AI teaching assistant for an educational platform. Help students understand lesson content, answer questions, and provide study guidance."
	ChatSystemPromptQuiz        = "You are creating practice questions based on lesson content. Generate relevant questions to test student understanding."
	ChatSystemPromptExplanation = "You are explaining complex concepts in simple terms. Break down difficult topics into easy-to-understand explanations."
)

// DefaultChatSystemPrompts is used when no prompts file is configured.
func DefaultChatSystemPrompts() map[string]string {
	return map[string]string{
		ChatModeDefault:     ChatSystemPromptDefault,
		ChatModeQuiz:        ChatSystemPromptQuiz,
		ChatModeExplanation: ChatSystemPromptExplanation,
	}
}

const ChatFallbackReply = "I'm sorry, I'm having trouble processing your request right now. Could you please try rephrasing your question?"

const (
	ChatTypingMessage    = "AI is thinking..."
	ChatRecentTurns      = 5
	ChatRelatedLessons   = 3
	ChatMaxSuggestions   = 3
	ChatMissingFieldsMsg = "Missing message content or lesson_id"
)

var (
	ChatFallbackSuggestions = []string{
		"Can you explain this concept further?",
		"What are the key points?",
	}
	ChatQuizSuggestions = []string{
		"Can you create another practice question?",
		"Explain the answer to this question",
		"What's a common mistake for this topic?",
	}
	ChatExplainSuggestions = []string{
		"Can you provide an example?",
		"How does this relate to other concepts?",
		"What are the practical applications?",
	}
	ChatSummarySuggestions = []string{
		"Can you create practice questions?",
		"What should I focus on studying?",
		"Are there related lessons?",
	}
	ChatDefaultSuggestions = []string{
		"Can you explain this concept further?",
		"Create a practice question about this",
		"What are the key takeaways?",
		"How can I apply this knowledge?",
	}
)
