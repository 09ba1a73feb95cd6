package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TranslationRequest 翻译请求
type TranslationRequest struct {
	Text       string `json:"text"`                  // 待翻译文本（必填，非空）
	SourceLang string `json:"source_lang,omitempty"` // 源语言代码，默认 auto
	TargetLang string `json:"target_lang,omitempty"` // 目标语言代码，默认取配置
}

// TranslationResult 非流式翻译响应
type TranslationResult struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
	Mode           string `json:"mode"`   // api / offline
	Stored         bool   `json:"stored"` // 是否已写入持久化服务
}

// 翻译模式
const (
	ModeAPI     = "api"
	ModeOffline = "offline"
)

// ChatRole 消息角色
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage 发送给上游的对话消息
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// TranslationRecord 翻译记录
// JSON 字段与持久化服务约定一致（驼峰命名），本地备份文件使用同样的格式
type TranslationRecord struct {
	ID             primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	OriginalText   string             `json:"originalText" bson:"original_text"`
	TranslatedText string             `json:"translatedText" bson:"translated_text"`
	SourceLang     string             `json:"sourceLang" bson:"source_lang"`
	TargetLang     string             `json:"targetLang" bson:"target_lang"`
	IPAddress      string             `json:"ipAddress" bson:"ip_address"`
	Model          string             `json:"model" bson:"model"`
	CreatedAt      time.Time          `json:"-" bson:"created_at"`
}

// Collection 返回集合名称
func (r *TranslationRecord) Collection() string {
	return "translation_records"
}

// EnsureIndexes 创建和维护索引
func (r *TranslationRecord) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(r.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
		{
			Keys:    bson.D{{Key: "source_lang", Value: 1}, {Key: "target_lang", Value: 1}},
			Options: options.Index().SetName("idx_lang_pair"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// NewTranslationRecord 根据请求和翻译结果创建记录
func NewTranslationRecord(req *TranslationRequest, translated, clientIP, modelName string) *TranslationRecord {
	return &TranslationRecord{
		OriginalText:   req.Text,
		TranslatedText: translated,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		IPAddress:      clientIP,
		Model:          modelName,
	}
}

// TranslationStats 翻译次数统计
type TranslationStats struct {
	TotalTranslations int64 `json:"totalTranslations"`
	TodayTranslations int64 `json:"todayTranslations"`
}
