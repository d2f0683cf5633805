package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestBedrockCompleteSendsToolsAndParsesToolUse(t *testing.T) {
	api := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role: brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: "Vou agendar."},
				&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String("tool-1"),
					Name:      aws.String(ToolBookAppointment),
					Input:     document.NewLazyDocument(map[string]any{"customerName": "Carlos"}),
				}},
			},
		}},
		StopReason: brtypes.StopReasonToolUse,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(5), TotalTokens: aws.Int32(15)},
	}}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System: []string{"prompt"},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "Oi"},
			{Role: ChatRoleAssistant, Content: "Olá"},
			{Role: ChatRoleUser, Content: "Agendar"},
		},
		Tools:       Tools(),
		MaxTokens:   256,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Vou agendar.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ToolBookAppointment, resp.ToolCalls[0].Name)
	assert.Equal(t, "tool-1", resp.ToolCalls[0].ID)
	assert.Equal(t, "Carlos", resp.ToolCalls[0].Args["customerName"])
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.Equal(t, int32(15), resp.Usage.TotalTokens)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.Messages, 3)
	require.NotNil(t, api.input.ToolConfig)
	require.Len(t, api.input.ToolConfig.Tools, 2)
	spec, ok := api.input.ToolConfig.Tools[1].(*brtypes.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, ToolBookAppointment, aws.ToString(spec.Value.Name))
}

func TestBedrockCompleteRequiresModel(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverse{}, "")
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Oi"}}})
	require.Error(t, err)
}

func TestBedrockCompleteWrapsThrottling(t *testing.T) {
	api := &fakeConverse{err: &brtypes.ThrottlingException{Message: aws.String("rate exceeded")}}
	client := NewBedrockLLMClient(api, "model")

	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Oi"}}})
	require.Error(t, err)
	var throttled *brtypes.ThrottlingException
	assert.True(t, errors.As(err, &throttled))
	assert.True(t, IsRateLimited(err))
}

func TestBedrockCompleteRejectsUnknownRole(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverse{}, "model")
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	require.Error(t, err)
}

func TestBedrockToolConfigEmpty(t *testing.T) {
	assert.Nil(t, bedrockToolConfig(nil))
}
