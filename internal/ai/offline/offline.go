// Package offline 离线词典翻译（无需 API 密钥）
//
// 只覆盖少量中英常用词，其余语言对返回带标记的原文。中文输入先用 gse 分词再逐词替换。
package offline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
	"github.com/rs/zerolog/log"

	"transgate/internal/ai"
	"transgate/internal/config"
	"transgate/internal/model"
)

// ModelName 离线模式在记录和响应中使用的模型名
const ModelName = "离线模式"

// UnsupportedPrefix 不支持的语言对返回原文时的前缀
const UnsupportedPrefix = "[离线翻译模式] "

var zhToEn = map[string]string{
	"你好": "Hello",
	"世界": "World",
	"翻译": "Translation",
	"软件": "Software",
	"语言": "Language",
	"谢谢": "Thank you",
	"中文": "Chinese",
	"英语": "English",
}

// 多词短语在前，保证优先匹配
var enToZh = []string{
	"Thank you", "谢谢",
	"Hello", "你好",
	"World", "世界",
	"Translation", "翻译",
	"Software", "软件",
	"Language", "语言",
	"Chinese", "中文",
	"English", "英语",
}

// Provider 离线词典翻译
type Provider struct {
	once      sync.Once
	seg       gse.Segmenter
	segErr    error
	zhReplace *strings.Replacer
	enReplace *strings.Replacer
}

// New 创建离线 Provider，分词词典在首次翻译中文时加载
func New() *Provider {
	pairs := make([]string, 0, len(zhToEn)*2)
	for zh, en := range zhToEn {
		pairs = append(pairs, zh, en)
	}
	return &Provider{
		zhReplace: strings.NewReplacer(pairs...),
		enReplace: strings.NewReplacer(enToZh...),
	}
}

func (p *Provider) Name() string  { return config.ProviderOffline }
func (p *Provider) Model() string { return ModelName }
func (p *Provider) Mode() string  { return model.ModeOffline }

// Chat 同步翻译
func (p *Provider) Chat(ctx context.Context, req *ai.Request) (string, error) {
	pieces, err := p.translate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.Join(pieces, ""), nil
}

// ChatStream 逐词产出翻译结果
func (p *Provider) ChatStream(ctx context.Context, req *ai.Request) (ai.Stream, error) {
	pieces, err := p.translate(ctx, req)
	if err != nil {
		return nil, err
	}
	return &sliceStream{ctx: ctx, pieces: pieces, pos: -1}, nil
}

// translate 返回拼接后即为译文的片段序列
func (p *Provider) translate(ctx context.Context, req *ai.Request) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Translation == nil {
		return nil, errors.New("offline provider requires the translation request")
	}

	tr := req.Translation
	switch {
	case tr.SourceLang == "zh" && tr.TargetLang == "en":
		return p.translateChinese(tr.Text), nil
	case tr.SourceLang == "en" && tr.TargetLang == "zh":
		return splitWords(p.enReplace.Replace(tr.Text)), nil
	default:
		return []string{UnsupportedPrefix + tr.Text}, nil
	}
}

func (p *Provider) translateChinese(text string) []string {
	p.once.Do(func() {
		p.segErr = p.seg.LoadDictEmbed()
		if p.segErr != nil {
			log.Warn().Err(p.segErr).Msg("failed to load gse dictionary, falling back to plain replacement")
		}
	})
	if p.segErr != nil {
		return splitWords(p.zhReplace.Replace(text))
	}

	var (
		pieces   []string
		prevWord bool // 上一个片段以英文单词结尾
	)
	for _, token := range p.seg.Cut(text, true) {
		en, ok := zhToEn[token]
		if !ok {
			pieces = append(pieces, token)
			prevWord = endsWithLetter(token)
			continue
		}
		if prevWord {
			en = " " + en
		}
		pieces = append(pieces, en)
		prevWord = true
	}
	return pieces
}

// splitWords 按空白切分并保留空白，保证拼接后与原文一致
func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, " ")
}

func endsWithLetter(s string) bool {
	r := []rune(s)
	return len(r) > 0 && r[len(r)-1] < unicode.MaxASCII && unicode.IsLetter(r[len(r)-1])
}

// sliceStream 预先计算好的片段流
type sliceStream struct {
	ctx    context.Context
	pieces []string
	pos    int
	err    error
}

func (s *sliceStream) Next() bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	for s.pos+1 < len(s.pieces) {
		s.pos++
		if s.pieces[s.pos] != "" {
			return true
		}
	}
	return false
}

func (s *sliceStream) Fragment() string {
	if s.pos < 0 || s.pos >= len(s.pieces) {
		return ""
	}
	return s.pieces[s.pos]
}

func (s *sliceStream) Err() error   { return s.err }
func (s *sliceStream) Close() error { return nil }
