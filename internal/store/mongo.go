package store

import (
	"context"
	"errors"

	"github.com/devfolio/portfolio-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores a collection in MongoDB. Records carry their numeric id in an
// "id" field; ids come from a shared "counters" collection.
type Mongo[E any, P models.Ptr[E]] struct {
	name     string
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewMongo[E any, P models.Ptr[E]](ctx context.Context, db *mongo.Database, name string) (*Mongo[E, P], error) {
	col := db.Collection(name)
	// ensure an index on "id" for fast lookups (id is unique per collection)
	idxModel := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idxModel); err != nil {
		return nil, err
	}
	return &Mongo[E, P]{name: name, col: col, counters: db.Collection("counters")}, nil
}

func (m *Mongo[E, P]) List(ctx context.Context) ([]E, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []E{}
	for cur.Next(ctx) {
		var e E
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (m *Mongo[E, P]) Get(ctx context.Context, id int64) (E, error) {
	var e E
	err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return e, ErrNotFound
		}
		return e, err
	}
	return e, nil
}

func (m *Mongo[E, P]) Insert(ctx context.Context, e E) (E, error) {
	id, err := m.nextID(ctx)
	if err != nil {
		return e, err
	}
	e = withID[E, P](e, id)
	if _, err := m.col.InsertOne(ctx, e); err != nil {
		return e, err
	}
	return e, nil
}

func (m *Mongo[E, P]) Update(ctx context.Context, id int64, e E) (E, error) {
	e = withID[E, P](e, id)
	res, err := m.col.ReplaceOne(ctx, bson.M{"id": id}, e)
	if err != nil {
		return e, err
	}
	if res.MatchedCount == 0 {
		var zero E
		return zero, ErrNotFound
	}
	return e, nil
}

func (m *Mongo[E, P]) Delete(ctx context.Context, id int64) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo[E, P]) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx, bson.M{"_id": m.name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// NewMongoSet opens the four collections in db.
func NewMongoSet(ctx context.Context, db *mongo.Database) (*Set, error) {
	messages, err := NewMongo[models.Message](ctx, db, Messages)
	if err != nil {
		return nil, err
	}
	ratings, err := NewMongo[models.Rating](ctx, db, Ratings)
	if err != nil {
		return nil, err
	}
	posts, err := NewMongo[models.BlogPost](ctx, db, BlogPosts)
	if err != nil {
		return nil, err
	}
	projects, err := NewMongo[models.Project](ctx, db, Projects)
	if err != nil {
		return nil, err
	}
	return &Set{Messages: messages, Ratings: ratings, BlogPosts: posts, Projects: projects, Backend: "mongo"}, nil
}
