// Package llmkw implements the generative extraction path: prompt
// construction for the completion engine, the HTTP engine client, and the
// recovery parser that turns unreliable free-form model output into a clean
// keyword list.
package llmkw

import (
	"fmt"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// systemZH instructs the model to extract the three term categories from a
// Chinese statement and reply with a bare JSON array.
const systemZH = `你是一名专业的自然语言处理助手。任务：从给定“陈述”中抽取全部的以下三类词：
- 名词
- 形容词
- 动词名词化
硬性要求：
- 只输出 JSON 数组，例如：["词1","词2"]，不要输出任何解释、前后缀或 Markdown。
- 去重，避免同义重复。
- 保留必要专有名词/缩写。
如果无法抽取，输出 []。
`

// systemEN is the English counterpart of systemZH.
const systemEN = `You are a professional natural language processing assistant. Task: extract ALL words/phrases in the three types below from the given Statement.
- Nouns
- Adjectives
- Nominalised verbs
Hard requirements:
- Output ONLY a JSON array, e.g. ["word/phrase 1","word/phrase 2"]. No extra text, no Markdown.
- Deduplicate.
- Keep proper nouns/acronyms.
If unsure, output [].
`

// BuildPrompt renders the extraction prompt for one answer text.  The
// system block and the user instruction are selected by language; the
// engine's chat templating is not applied here because the completion
// endpoint receives plain prompts.
func BuildPrompt(answer string, lang record.Language) string {
	if lang == record.LangEN {
		user := fmt.Sprintf("Statement: \n%s\n\nExtract words/phrases from the Statement.", answer)
		return systemEN + "\n" + user + "\n"
	}
	user := fmt.Sprintf("陈述：\n%s\n\n请从这段陈述中抽取。", answer)
	return systemZH + "\n" + user + "\n"
}
