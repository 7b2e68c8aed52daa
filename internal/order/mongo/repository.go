// Package mongo implements the order repository on MongoDB. Orders are
// stored as single documents with items, payment, and delivery embedded, so
// the placement workflow's reservation step never needs a secondary fetch.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovenworks/bakehouse/internal/order"
	"github.com/ovenworks/bakehouse/internal/order/domain"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

const collectionName = "orders"

type itemDoc struct {
	ProductID   primitive.ObjectID `bson:"product"`
	ProductName string             `bson:"productName"`
	Quantity    int                `bson:"quantity"`
	Price       float64            `bson:"price"`
	Subtotal    float64            `bson:"subtotal"`
	Notes       string             `bson:"notes,omitempty"`
}

type addressDoc struct {
	Street     string `bson:"street"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postalCode"`
	Country    string `bson:"country"`
}

type paymentDoc struct {
	Method        string     `bson:"method"`
	Status        string     `bson:"status"`
	TransactionID string     `bson:"transactionId,omitempty"`
	PaidAmount    float64    `bson:"paidAmount,omitempty"`
	PaidAt        *time.Time `bson:"paidAt,omitempty"`
}

type deliveryDoc struct {
	Address        addressDoc `bson:"address"`
	Instructions   string     `bson:"instructions,omitempty"`
	EstimatedTime  *time.Time `bson:"estimatedTime,omitempty"`
	ActualTime     *time.Time `bson:"actualDeliveryTime,omitempty"`
	TrackingNumber string     `bson:"trackingNumber,omitempty"`
}

type orderDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	OrderNumber string             `bson:"orderNumber"`
	UserID      string             `bson:"user"`
	Items       []itemDoc          `bson:"items"`
	Subtotal    float64            `bson:"subtotal"`
	Tax         float64            `bson:"tax"`
	Discount    float64            `bson:"discount"`
	DeliveryFee float64            `bson:"deliveryFee"`
	TotalAmount float64            `bson:"totalAmount"`
	Status      string             `bson:"status"`
	Payment     paymentDoc         `bson:"payment"`
	Delivery    deliveryDoc        `bson:"delivery"`
	Notes       string             `bson:"notes,omitempty"`

	EstimatedPreparationMinutes int        `bson:"estimatedPreparationTime,omitempty"`
	PreparationStartedAt        *time.Time `bson:"preparationStartedAt,omitempty"`
	PreparationCompletedAt      *time.Time `bson:"preparationCompletedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Repository struct {
	col *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{col: db.Collection(collectionName)}
}

// EnsureIndexes creates the order indexes, including the unique orderNumber
// index the number-generation retry relies on. Call once at startup.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

func (r *Repository) Create(ctx context.Context, o *domain.Order) error {
	doc, err := toDoc(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateOrderNumber
		}
		return apperror.Internal("insert order", err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperror.Internal("delete order", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("order %s not found", id)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("order %s not found", id)
	}
	if err != nil {
		return nil, apperror.Internal("find order", err)
	}
	return fromDoc(&doc), nil
}

func (r *Repository) List(ctx context.Context, f order.ListFilter) ([]domain.Order, int64, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user"] = f.UserID
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Internal("count orders", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperror.Internal("list orders", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Order
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, apperror.Internal("decode order", err)
		}
		out = append(out, *fromDoc(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, apperror.Internal("iterate orders", err)
	}
	return out, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (*domain.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	// The status guard in the filter makes the transition atomic: a
	// concurrent transition that got there first leaves nothing to match.
	filter := bson.M{"_id": oid, "status": string(from)}
	update := bson.M{"$set": bson.M{
		"status":    string(to),
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDoc
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Guard failed: report not-found for a missing order, otherwise the
		// stored status has moved on.
		current, findErr := r.FindByID(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		return nil, apperror.InvalidTransition(string(current.Status), string(to))
	}
	if err != nil {
		return nil, apperror.Internal("update order status", err)
	}
	return fromDoc(&doc), nil
}

func (r *Repository) StatsByStatus(ctx context.Context, userID string) ([]order.StatusStat, error) {
	pipeline := mongo.Pipeline{}
	if userID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "user", Value: userID}}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$status"},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "totalAmount", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
	}}})

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperror.Internal("aggregate order stats", err)
	}
	defer cursor.Close(ctx)

	var stats []order.StatusStat
	for cursor.Next(ctx) {
		var row struct {
			Status      string  `bson:"_id"`
			Count       int64   `bson:"count"`
			TotalAmount float64 `bson:"totalAmount"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, apperror.Internal("decode stats row", err)
		}
		stats = append(stats, order.StatusStat{
			Status:      domain.Status(row.Status),
			Count:       row.Count,
			TotalAmount: row.TotalAmount,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, apperror.Internal("iterate stats", err)
	}
	return stats, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("invalid order id %q", id)
	}
	return oid, nil
}

func toDoc(o *domain.Order) (*orderDoc, error) {
	items := make([]itemDoc, len(o.Items))
	for i, it := range o.Items {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, apperror.Validation("invalid product id %q", it.ProductID)
		}
		items[i] = itemDoc{
			ProductID:   pid,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal,
			Notes:       it.Notes,
		}
	}
	return &orderDoc{
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       items,
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Discount:    o.Discount,
		DeliveryFee: o.DeliveryFee,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		Payment: paymentDoc{
			Method:        string(o.Payment.Method),
			Status:        string(o.Payment.Status),
			TransactionID: o.Payment.TransactionID,
			PaidAmount:    o.Payment.PaidAmount,
			PaidAt:        o.Payment.PaidAt,
		},
		Delivery: deliveryDoc{
			Address: addressDoc{
				Street:     o.Delivery.Address.Street,
				City:       o.Delivery.Address.City,
				State:      o.Delivery.Address.State,
				PostalCode: o.Delivery.Address.PostalCode,
				Country:    o.Delivery.Address.Country,
			},
			Instructions:   o.Delivery.Instructions,
			EstimatedTime:  o.Delivery.EstimatedTime,
			ActualTime:     o.Delivery.ActualTime,
			TrackingNumber: o.Delivery.TrackingNumber,
		},
		Notes:                       o.Notes,
		EstimatedPreparationMinutes: o.EstimatedPreparationMinutes,
		PreparationStartedAt:        o.PreparationStartedAt,
		PreparationCompletedAt:      o.PreparationCompletedAt,
		CreatedAt:                   o.CreatedAt,
		UpdatedAt:                   o.UpdatedAt,
	}, nil
}

func fromDoc(doc *orderDoc) *domain.Order {
	items := make([]domain.OrderItem, len(doc.Items))
	for i, it := range doc.Items {
		items[i] = domain.OrderItem{
			ProductID:   it.ProductID.Hex(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal,
			Notes:       it.Notes,
		}
	}
	return &domain.Order{
		ID:          doc.ID.Hex(),
		OrderNumber: doc.OrderNumber,
		UserID:      doc.UserID,
		Items:       items,
		Subtotal:    doc.Subtotal,
		Tax:         doc.Tax,
		Discount:    doc.Discount,
		DeliveryFee: doc.DeliveryFee,
		TotalAmount: doc.TotalAmount,
		Status:      domain.Status(doc.Status),
		Payment: domain.Payment{
			Method:        domain.PaymentMethod(doc.Payment.Method),
			Status:        domain.PaymentStatus(doc.Payment.Status),
			TransactionID: doc.Payment.TransactionID,
			PaidAmount:    doc.Payment.PaidAmount,
			PaidAt:        doc.Payment.PaidAt,
		},
		Delivery: domain.Delivery{
			Address: domain.Address{
				Street:     doc.Delivery.Address.Street,
				City:       doc.Delivery.Address.City,
				State:      doc.Delivery.Address.State,
				PostalCode: doc.Delivery.Address.PostalCode,
				Country:    doc.Delivery.Address.Country,
			},
			Instructions:   doc.Delivery.Instructions,
			EstimatedTime:  doc.Delivery.EstimatedTime,
			ActualTime:     doc.Delivery.ActualTime,
			TrackingNumber: doc.Delivery.TrackingNumber,
		},
		Notes:                       doc.Notes,
		EstimatedPreparationMinutes: doc.EstimatedPreparationMinutes,
		PreparationStartedAt:        doc.PreparationStartedAt,
		PreparationCompletedAt:      doc.PreparationCompletedAt,
		CreatedAt:                   doc.CreatedAt,
		UpdatedAt:                   doc.UpdatedAt,
	}
}
