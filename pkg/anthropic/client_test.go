package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "SELECT 1"},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: " FROM dim_period"},
		},
	}
	assert.Equal(t, "SELECT 1 FROM dim_period", resp.Text())
}

func TestMessageResponse_Text_Empty(t *testing.T) {
	resp := &MessageResponse{}
	assert.Empty(t, resp.Text())
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
	})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}
