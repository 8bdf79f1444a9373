package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptCapsEvents(t *testing.T) {
	events := make([]Event, 20)
	for i := range events {
		events[i] = Event{Title: fmt.Sprintf("活动%d", i+1), Platform: "元宝"}
	}

	prompt := buildPrompt(events, "")

	assert.Contains(t, prompt, "15. [元宝] 活动15 | 未知时间")
	assert.NotContains(t, prompt, "16. [元宝]")
	assert.Contains(t, prompt, "用户附加关注点: 无")
}

func TestBuildPromptWithoutEvents(t *testing.T) {
	prompt := buildPrompt(nil, "  ")

	assert.True(t, strings.HasSuffix(prompt, "活动列表：\n暂无活动"))
	assert.Contains(t, prompt, "输出格式必须包含以下4段：")
}
