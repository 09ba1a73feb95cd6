package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"transgate/internal/model"
)

// EinoProvider 基于 eino ChatModel 的上游实现（openai / azure / ark）
type EinoProvider struct {
	name      string
	modelName string
	apiKey    string
	chatModel einomodel.BaseChatModel
}

// NewEinoProvider 创建 eino Provider
// apiKey 为空时 ChatModel 可以为 nil，调用时直接返回 ConfigError
func NewEinoProvider(name, modelName, apiKey string, chatModel einomodel.BaseChatModel) *EinoProvider {
	return &EinoProvider{
		name:      name,
		modelName: modelName,
		apiKey:    apiKey,
		chatModel: chatModel,
	}
}

func (p *EinoProvider) Name() string  { return p.name }
func (p *EinoProvider) Model() string { return p.modelName }
func (p *EinoProvider) Mode() string  { return model.ModeAPI }

// Chat 同步调用 ChatModel.Generate
func (p *EinoProvider) Chat(ctx context.Context, req *Request) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}

	resp, err := p.chatModel.Generate(ctx, toSchemaMessages(req.Messages))
	if err != nil {
		return "", classifyError(err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// ChatStream 流式调用 ChatModel.Stream
func (p *EinoProvider) ChatStream(ctx context.Context, req *Request) (Stream, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	reader, err := p.chatModel.Stream(ctx, toSchemaMessages(req.Messages))
	if err != nil {
		return nil, classifyError(err)
	}
	return &einoStream{reader: reader}, nil
}

func (p *EinoProvider) ready() error {
	if p.apiKey == "" || p.chatModel == nil {
		return configError()
	}
	return nil
}

func toSchemaMessages(messages []model.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		role := schema.User
		switch m.Role {
		case model.RoleSystem:
			role = schema.System
		case model.RoleAssistant:
			role = schema.Assistant
		}
		out = append(out, &schema.Message{Role: role, Content: m.Content})
	}
	return out
}

// einoStream 适配 schema.StreamReader
type einoStream struct {
	reader   *schema.StreamReader[*schema.Message]
	fragment string
	err      error
	done     bool
}

func (s *einoStream) Next() bool {
	for !s.done {
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			s.err = classifyError(err)
			break
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		s.fragment = msg.Content
		return true
	}
	s.fragment = ""
	return false
}

func (s *einoStream) Fragment() string { return s.fragment }
func (s *einoStream) Err() error       { return s.err }

func (s *einoStream) Close() error {
	s.reader.Close()
	return nil
}
