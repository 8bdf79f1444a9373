package analysis

import (
	"cmp"
	"fmt"
	"strings"
)

const maxPromptEvents = 15

const systemPrompt = "你是严谨的活动分析助手，结论要可执行并避免夸张。"

// Event is the subset of an event the client sends for analysis.
type Event struct {
	Title       string `json:"title"`
	Platform    string `json:"platform"`
	Summary     string `json:"summary"`
	SourceURL   string `json:"sourceUrl"`
	PublishedAt string `json:"publishedAt"`
}

func buildPrompt(events []Event, note string) string {
	events = events[:min(len(events), maxPromptEvents)]

	items := make([]string, 0, len(events))
	for i, e := range events {
		items = append(items, fmt.Sprintf("%d. [%s] %s | %s\n摘要: %s\n链接: %s",
			i+1, e.Platform, e.Title, cmp.Or(e.PublishedAt, "未知时间"), e.Summary, e.SourceURL))
	}

	list := strings.Join(items, "\n\n")
	if list == "" {
		list = "暂无活动"
	}

	return strings.Join([]string{
		"你是红包活动分析助手。请基于以下活动信息给出简明分析。",
		"用户附加关注点: " + cmp.Or(strings.TrimSpace(note), "无"),
		"输出格式必须包含以下4段：",
		"1) 今日重点活动（最多5条）",
		"2) 参与优先级建议（高/中/低）",
		"3) 风险提醒（例如钓鱼链接、过期活动、门槛过高）",
		"4) 行动清单（下一步怎么做）",
		"",
		"活动列表：",
		list,
	}, "\n")
}
