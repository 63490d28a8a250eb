package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:         "msg_test_123",
		Model:      "claude-sonnet-4-5-20250929",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `{"targets":`},
			{Type: "text", Text: `[]}`},
		},
		Usage: sdk.Usage{InputTokens: 100, OutputTokens: 50},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "claude-sonnet-4-5-20250929", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, `{"targets":[]}`, resp.Text())
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	assert.Equal(t, int64(50), resp.Usage.OutputTokens)
}

func TestFromSDKMessage_EmptyContent(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Content)
	assert.Empty(t, resp.Text())
	assert.Equal(t, "max_tokens", resp.StopReason)
}

func TestMessageResponse_TextSkipsNonText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "thinking", Text: "hidden"},
		{Type: "text", Text: "shown"},
	}}
	assert.Equal(t, "shown", resp.Text())
}

func TestToSDKMessages(t *testing.T) {
	assert.Empty(t, toSDKMessages(nil))

	msgs := []Message{
		{Role: "user", Content: "Question"},
		{Role: "assistant", Content: "Answer"},
		{Role: "unknown", Content: "defaults to user"},
	}
	require.Len(t, toSDKMessages(msgs), 3)
}

func TestToSDKSystemBlocks(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{{Text: "First"}, {Text: "Second"}})
	require.Len(t, blocks, 2)
	assert.Equal(t, "First", blocks[0].Text)
	assert.Equal(t, "Second", blocks[1].Text)
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	client := NewClient("test-api-key")
	require.NotNil(t, client)
}

func TestTokenUsage_Log(t *testing.T) {
	// Just verify it doesn't panic.
	TokenUsage{InputTokens: 1, OutputTokens: 2}.Log("claude-sonnet-4-5-20250929", "plan")
}
