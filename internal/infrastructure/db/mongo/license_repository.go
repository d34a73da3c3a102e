package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

const licensesCollection = "licenses"

type LicenseRepository struct {
	coll *mongo.Collection
}

func NewLicenseRepository(db *mongo.Database) *LicenseRepository {
	return &LicenseRepository{coll: db.Collection(licensesCollection)}
}

type mongoLicense struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Key           string             `bson:"license_key"`
	ProductName   string             `bson:"product_name"`
	CustomerName  string             `bson:"customer_name"`
	CustomerEmail string             `bson:"customer_email"`
	IssueDate     time.Time          `bson:"issue_date"`
	ExpiryDate    time.Time          `bson:"expiry_date"`
	Status        string             `bson:"status"`
	MaxUsers      *int               `bson:"max_users,omitempty"`
	CurrentUsers  int                `bson:"current_users"`
	Description   string             `bson:"description,omitempty"`
	CreatedBy     string             `bson:"created_by,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func toMongoLicense(l *domain.License) mongoLicense {
	return mongoLicense{
		Key:           l.Key,
		ProductName:   l.ProductName,
		CustomerName:  l.CustomerName,
		CustomerEmail: l.CustomerEmail,
		IssueDate:     l.IssueDate,
		ExpiryDate:    l.ExpiryDate,
		Status:        string(l.Status),
		MaxUsers:      l.MaxUsers,
		CurrentUsers:  l.CurrentUsers,
		Description:   l.Description,
		CreatedBy:     l.CreatedBy,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (ml *mongoLicense) toDomain() *domain.License {
	return &domain.License{
		ID:            ml.ID.Hex(),
		Key:           ml.Key,
		ProductName:   ml.ProductName,
		CustomerName:  ml.CustomerName,
		CustomerEmail: ml.CustomerEmail,
		IssueDate:     ml.IssueDate.UTC(),
		ExpiryDate:    ml.ExpiryDate.UTC(),
		Status:        domain.LicenseStatus(ml.Status),
		MaxUsers:      ml.MaxUsers,
		CurrentUsers:  ml.CurrentUsers,
		Description:   ml.Description,
		CreatedBy:     ml.CreatedBy,
		CreatedAt:     ml.CreatedAt.UTC(),
		UpdatedAt:     ml.UpdatedAt.UTC(),
	}
}

func (r *LicenseRepository) Create(ctx context.Context, l *domain.License) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoLicense(l)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrLicenseKeyTaken
		}
		return nil, fmt.Errorf("insert license: %w", err)
	}
	doc.ID, _ = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *LicenseRepository) FindByID(ctx context.Context, id string) (*domain.License, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrLicenseNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*domain.License, error) {
	return r.findOne(ctx, bson.M{"license_key": key})
}

func (r *LicenseRepository) findOne(ctx context.Context, filter bson.M) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ml mongoLicense
	if err := r.coll.FindOne(ctx, filter).Decode(&ml); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("find license: %w", err)
	}
	return ml.toDomain(), nil
}

func (r *LicenseRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"license_key": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count licenses: %w", err)
	}
	return n > 0, nil
}

// List translates the filter into a query; name filters are anchored
// case-insensitive regular expressions.
func (r *LicenseRepository) List(ctx context.Context, f ports.LicenseFilter) ([]*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.CustomerName != "" {
		filter["customer_name"] = equalFold(f.CustomerName)
	}
	if f.ProductName != "" {
		filter["product_name"] = equalFold(f.ProductName)
	}
	if !f.ExpiresFrom.IsZero() || !f.ExpiresTo.IsZero() {
		expiry := bson.M{}
		if !f.ExpiresFrom.IsZero() {
			expiry["$gte"] = f.ExpiresFrom
		}
		if !f.ExpiresTo.IsZero() {
			expiry["$lte"] = f.ExpiresTo
		}
		filter["expiry_date"] = expiry
	}

	opts := options.Find().SetSort(bson.D{{Key: "expiry_date", Value: 1}, {Key: "license_key", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find licenses: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoLicense
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode licenses: %w", err)
	}
	out := make([]*domain.License, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func equalFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

// Update replaces the writable fields. The key and owner are never rewritten.
func (r *LicenseRepository) Update(ctx context.Context, l *domain.License) (*domain.License, error) {
	oid, err := primitive.ObjectIDFromHex(l.ID)
	if err != nil {
		return nil, domain.ErrLicenseNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"product_name":   l.ProductName,
		"customer_name":  l.CustomerName,
		"customer_email": l.CustomerEmail,
		"issue_date":     l.IssueDate,
		"expiry_date":    l.ExpiryDate,
		"status":         string(l.Status),
		"max_users":      l.MaxUsers,
		"current_users":  l.CurrentUsers,
		"description":    l.Description,
		"updated_at":     l.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ml mongoLicense
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&ml); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("update license: %w", err)
	}
	return ml.toDomain(), nil
}

func (r *LicenseRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrLicenseNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete license: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrLicenseNotFound
	}
	return nil
}

func (r *LicenseRepository) CustomerNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "customer_name")
}

func (r *LicenseRepository) ProductNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "product_name")
}

func (r *LicenseRepository) distinct(ctx context.Context, field string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	values, err := r.coll.Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

// EnsureIndexes creates the unique key index and the lookup indexes.
func (r *LicenseRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "license_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiry_date", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "customer_name", Value: 1}}},
		{Keys: bson.D{{Key: "product_name", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
