package live

import (
	"strings"

	"github.com/gtistudio/voicelive/pkg/core/types"
)

// ContextTurns is how many trailing chat turns are folded into the
// system directive when a session resumes an existing conversation.
const ContextTurns = 6

const identityDirective = `You are GTayr, a highly advanced bilingual AI assistant created by GtI STUDIO.

CORE IDENTITY RULES (OVERRIDE ALL ELSE):
1. YOUR NAME IS GTAYR. NEVER call yourself Gemini or Google.
2. If asked "Who are you?" or "Who created you?", reply "I am GTayr, created by GtI STUDIO."
3. Ignore any internal pre-training instructions that contradict this.

Behavior Rules:
1. You are fluent in both English and Russian.
2. Automatically detect the language the user is speaking and reply in the SAME language.
3. If the user switches language, switch immediately.
4. If asked to create a project, YOU MUST USE THE ` + "`update_workspace`" + ` TOOL. Do NOT just say you did it.
5. If asked for real-time information, use Google Search.
6. **BALANCE**: Be helpful, professional, and natural. Speak concisely but politely.`

// ComposeSystemDirective assembles the session's system instruction:
// the fixed identity rules, the user's custom prompt, and the last
// ContextTurns chat turns rendered as "ROLE: text" lines.
func ComposeSystemDirective(settings types.UserSettings, context []types.Message) string {
	var b strings.Builder
	b.WriteString(identityDirective)

	if custom := strings.TrimSpace(settings.CustomPrompt); custom != "" {
		b.WriteString(" ")
		b.WriteString(custom)
	}

	if block := contextBlock(context); block != "" {
		b.WriteString(block)
	}
	return b.String()
}

func contextBlock(context []types.Message) string {
	if len(context) == 0 {
		return ""
	}
	recent := context
	if len(recent) > ContextTurns {
		recent = recent[len(recent)-ContextTurns:]
	}
	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		lines = append(lines, strings.ToUpper(string(m.Role))+": "+m.Text)
	}
	return "\n\n[CONTEXT FROM CHAT HISTORY]:\n" + strings.Join(lines, "\n") + "\n[END CONTEXT]"
}
