package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type itemDocument struct {
	ItemID      string               `bson:"item_id"`
	DisplayName string               `bson:"display_name"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	Quantity    int                  `bson:"quantity"`
}

type vendorCartDocument struct {
	VendorID   string         `bson:"vendor_id"`
	VendorName string         `bson:"vendor_name"`
	Items      []itemDocument `bson:"items"`
}

type cartDocument struct {
	UserID         string               `bson:"user_id"`
	ActiveVendorID string               `bson:"active_vendor_id"`
	Carts          []vendorCartDocument `bson:"carts"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("cart_states"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*d.CartState, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromDocument(doc)
}

func (m *MongoRepository) UpsertCart(ctx context.Context, state *d.CartState) error {
	doc, err := toDocument(state)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()

	filter := bson.M{"user_id": state.UserID}
	update := bson.M{
		"$set": bson.M{
			"active_vendor_id": doc.ActiveVendorID,
			"carts":            doc.Carts,
			"updated_at":       doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": doc.UpdatedAt},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60), // abandoned carts expire after 30 days
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func toDocument(state *d.CartState) (cartDocument, error) {
	doc := cartDocument{
		UserID:         state.UserID,
		ActiveVendorID: state.ActiveVendorID,
		Carts:          make([]vendorCartDocument, 0, len(state.Carts)),
	}
	for _, vc := range state.Carts {
		cd := vendorCartDocument{VendorID: vc.VendorID, VendorName: vc.VendorName, Items: make([]itemDocument, 0, len(vc.Items))}
		for _, item := range vc.Items {
			price, err := primitive.ParseDecimal128(item.UnitPrice.String())
			if err != nil {
				return cartDocument{}, fmt.Errorf("encode price of %s: %w", item.ItemID, err)
			}
			cd.Items = append(cd.Items, itemDocument{
				ItemID:      item.ItemID,
				DisplayName: item.DisplayName,
				UnitPrice:   price,
				Quantity:    item.Quantity,
			})
		}
		doc.Carts = append(doc.Carts, cd)
	}
	return doc, nil
}

func fromDocument(doc cartDocument) (*d.CartState, error) {
	state := &d.CartState{
		UserID:         doc.UserID,
		ActiveVendorID: doc.ActiveVendorID,
		Carts:          make([]d.VendorCart, 0, len(doc.Carts)),
		UpdatedAt:      doc.UpdatedAt,
	}
	for _, cd := range doc.Carts {
		vc := d.VendorCart{VendorID: cd.VendorID, VendorName: cd.VendorName, Items: make([]d.LineItem, 0, len(cd.Items))}
		for _, item := range cd.Items {
			price, err := decimal.NewFromString(item.UnitPrice.String())
			if err != nil {
				return nil, fmt.Errorf("decode price of %s: %w", item.ItemID, err)
			}
			vc.Items = append(vc.Items, d.LineItem{
				ItemID:      item.ItemID,
				DisplayName: item.DisplayName,
				UnitPrice:   price,
				Quantity:    item.Quantity,
				VendorID:    cd.VendorID,
				VendorName:  cd.VendorName,
			})
		}
		state.Carts = append(state.Carts, vc)
	}
	return state, nil
}
