package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"transgate/internal/model"
)

// 历史查询的默认和最大条数
const (
	DefaultListLimit int64 = 20
	MaxListLimit     int64 = 100
)

// RecordRepo 翻译记录仓库
type RecordRepo struct {
	collection *mongo.Collection
}

// NewRecordRepo 创建翻译记录仓库
func NewRecordRepo(db *mongo.Database) *RecordRepo {
	return &RecordRepo{
		collection: db.Collection((&model.TranslationRecord{}).Collection()),
	}
}

// Create 写入一条翻译记录
func (r *RecordRepo) Create(ctx context.Context, record *model.TranslationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid
	}
	return nil
}

// ListRecent 按创建时间倒序查询最近的记录
func (r *RecordRepo) ListRecent(ctx context.Context, limit int64) ([]*model.TranslationRecord, error) {
	limit = clampLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, recentOptions(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]*model.TranslationRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// Count 统计 since 之后的记录数，since 为零值时统计全部
func (r *RecordRepo) Count(ctx context.Context, since time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, sinceFilter(since))
}

func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func recentOptions(limit int64) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(limit)
}

func sinceFilter(since time.Time) bson.M {
	filter := bson.M{}
	if !since.IsZero() {
		filter["created_at"] = bson.M{"$gte": since}
	}
	return filter
}
