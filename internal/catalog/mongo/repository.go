// Package mongo implements the catalog repository on MongoDB.
//
// Stock adjustments are single atomic document updates: the filter carries
// the stock precondition and the update is an aggregation pipeline, so the
// decrement and the availability flip happen in one step with no
// read-modify-write window. Two concurrent orders for the last unit of a
// product cannot both win.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovenworks/bakehouse/internal/catalog"
	"github.com/ovenworks/bakehouse/internal/catalog/domain"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

const collectionName = "products"

type productDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	Name            string             `bson:"name"`
	Description     string             `bson:"description,omitempty"`
	Price           float64            `bson:"price"`
	Category        string             `bson:"category,omitempty"`
	Stock           int                `bson:"stock"`
	IsAvailable     bool               `bson:"isAvailable"`
	PreparationTime int                `bson:"preparationTime,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

type Repository struct {
	col *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{col: db.Collection(collectionName)}
}

// EnsureIndexes creates the catalog indexes. Call once at startup.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "isAvailable", Value: 1}}},
	})
	return err
}

func (r *Repository) Create(ctx context.Context, p *domain.Product) error {
	doc := toDoc(p)
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return apperror.Internal("insert product", err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("product %s not found", id)
	}
	if err != nil {
		return nil, apperror.Internal("find product", err)
	}
	return fromDoc(&doc), nil
}

func (r *Repository) List(ctx context.Context, f catalog.ListFilter) ([]domain.Product, int64, error) {
	filter := bson.M{}
	if f.AvailableOnly {
		filter["isAvailable"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Internal("count products", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperror.Internal("list products", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, apperror.Internal("decode product", err)
		}
		out = append(out, *fromDoc(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, apperror.Internal("iterate products", err)
	}
	return out, total, nil
}

func (r *Repository) Reserve(ctx context.Context, id string, qty int) (*domain.Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	// Pipeline stages run in order, so the availability stage sees the
	// already-decremented stock value.
	filter := bson.M{"_id": oid, "stock": bson.M{"$gte": qty}}
	update := bson.A{
		bson.M{"$set": bson.M{"stock": bson.M{"$subtract": bson.A{"$stock", qty}}}},
		bson.M{"$set": bson.M{
			"isAvailable": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$stock", 0}}, false, "$isAvailable",
			}},
			"updatedAt": "$$NOW",
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Precondition failed: distinguish a missing product from an
		// out-of-stock one for the caller's error taxonomy.
		existing, findErr := r.FindByID(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		return nil, apperror.InsufficientStock(id, existing.Name)
	}
	if err != nil {
		return nil, apperror.Internal("reserve stock", err)
	}
	return fromDoc(&doc), nil
}

func (r *Repository) Release(ctx context.Context, id string, qty int) (*domain.Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("product %s not found", id)
	}
	if err != nil {
		return nil, apperror.Internal("release stock", err)
	}
	return fromDoc(&doc), nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("invalid product id %q", id)
	}
	return oid, nil
}

func toDoc(p *domain.Product) *productDoc {
	return &productDoc{
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		Category:        p.Category,
		Stock:           p.Stock,
		IsAvailable:     p.IsAvailable,
		PreparationTime: p.PreparationTime,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromDoc(doc *productDoc) *domain.Product {
	return &domain.Product{
		ID:              doc.ID.Hex(),
		Name:            doc.Name,
		Description:     doc.Description,
		Price:           doc.Price,
		Category:        doc.Category,
		Stock:           doc.Stock,
		IsAvailable:     doc.IsAvailable,
		PreparationTime: doc.PreparationTime,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
