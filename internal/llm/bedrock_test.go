package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverseAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(4),
			TotalTokens:  aws.Int32(14),
		},
	}
}

func TestBedrockClientMapsRolesAndSystem(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("  reply  ")}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), Request{
		Model:  "anthropic.claude",
		System: []string{"persona", " "},
		Messages: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi there"},
			{Role: RoleUser, Content: "   "},
			{Role: RoleUser, Content: "how are you"},
		},
		MaxTokens:   64,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "reply", resp.Text)
	assert.Equal(t, int32(14), resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 1)
	require.Len(t, api.input.Messages, 3)
	assert.Equal(t, brtypes.ConversationRoleUser, api.input.Messages[0].Role)
	assert.Equal(t, brtypes.ConversationRoleAssistant, api.input.Messages[1].Role)
	last := api.input.Messages[2].Content[0].(*brtypes.ContentBlockMemberText)
	assert.Equal(t, "how are you", last.Value)
	assert.Equal(t, int32(64), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
}

func TestBedrockClientSendsImageBlocks(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("Amoxicillin 500mg")}
	client := NewBedrockClient(api)

	_, err := client.Complete(context.Background(), Request{
		Model: "m",
		Messages: []Message{{
			Role:   RoleUser,
			Images: []Image{{Format: ImageFormatJPEG, Data: []byte{0xff, 0xd8}}},
		}},
		Temperature: -1,
	})
	require.NoError(t, err)

	require.Len(t, api.input.Messages, 1)
	require.Len(t, api.input.Messages[0].Content, 1)
	img, ok := api.input.Messages[0].Content[0].(*brtypes.ContentBlockMemberImage)
	require.True(t, ok)
	assert.Equal(t, brtypes.ImageFormatJpeg, img.Value.Format)
	assert.Nil(t, api.input.InferenceConfig)
}

func TestBedrockClientRejectsUnknownRole(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: textOutput("x")})
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: "tool", Content: "x"}},
	})
	assert.Error(t, err)
}

func TestBedrockClientRequiresModel(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: textOutput("x")})
	_, err := client.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestBedrockClientPropagatesAPIError(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{err: errors.New("throttling")})
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	assert.EqualError(t, err, "throttling")
}

func TestBedrockClientRejectsEmptyOutput(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: &bedrockruntime.ConverseOutput{}})
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestBedrockClientKeepsAlternationWithBlankHistoryTurn(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("welcome back")}
	gen := NewGenerator(NewBedrockClient(api), GeneratorConfig{Model: "m"})

	_, err := gen.Generate(context.Background(), GenerationRequest{
		Op:           "reply",
		Instructions: "persona",
		History: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: ""},
		},
		NewUserText: "again",
	})
	require.NoError(t, err)

	require.Len(t, api.input.Messages, 1)
	assert.Equal(t, brtypes.ConversationRoleUser, api.input.Messages[0].Role)
	text := api.input.Messages[0].Content[0].(*brtypes.ContentBlockMemberText)
	assert.Equal(t, "hi\n\nagain", text.Value)
}

func TestBedrockClientStartsWithUserTurn(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("ok")}
	client := NewBedrockClient(api)

	_, err := client.Complete(context.Background(), Request{
		Model: "m",
		Messages: []Message{
			{Role: RoleUser, Content: " "},
			{Role: RoleAssistant, Content: "Hello, how can I help?"},
			{Role: RoleUser, Content: "my pills"},
		},
	})
	require.NoError(t, err)

	require.Len(t, api.input.Messages, 1)
	assert.Equal(t, brtypes.ConversationRoleUser, api.input.Messages[0].Role)
}
