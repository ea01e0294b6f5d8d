package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	FirstName    string               `bson:"first_name"`
	LastName     string               `bson:"last_name"`
	Email        string               `bson:"email"`
	PasswordHash string               `bson:"password_hash"`
	Role         domain.Role          `bson:"role"`
	Phone        string               `bson:"phone,omitempty"`
	Address      domain.Address       `bson:"address"`
	BusinessInfo *domain.BusinessInfo `bson:"business_info,omitempty"`
	IsActive     bool                 `bson:"is_active"`
	IsVerified   bool                 `bson:"is_verified"`
	Rating       domain.Rating        `bson:"rating"`
	ProfileImage *domain.Image        `bson:"profile_image,omitempty"`
	LastLogin    *time.Time           `bson:"last_login,omitempty"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Phone:        u.Phone,
		Address:      u.Address,
		BusinessInfo: u.BusinessInfo,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		Rating:       u.Rating,
		ProfileImage: u.ProfileImage,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID.Hex(),
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		Phone:        m.Phone,
		Address:      m.Address,
		BusinessInfo: m.BusinessInfo,
		IsActive:     m.IsActive,
		IsVerified:   m.IsVerified,
		Rating:       m.Rating,
		ProfileImage: m.ProfileImage,
		LastLogin:    m.LastLogin,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for _, d := range docs {
		out[d.ID.Hex()] = d.toDomain()
	}
	return out, nil
}

// Update sets only the fields named in changes, leaving concurrent writes to
// other fields intact.
func (r *UserRepository) Update(ctx context.Context, id string, changes ports.UserChanges) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	set := userChangeSet(changes)
	if len(set) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddRating recomputes the running mean server side so concurrent ratings
// are never lost.
func (r *UserRepository) AddRating(ctx context.Context, id string, value int) (domain.Rating, error) {
	oid, err := objectID(id)
	if err != nil {
		return domain.Rating{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"rating": 1})
	var doc mongoUser
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, ratingPipeline(value), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Rating{}, domain.ErrUserNotFound
		}
		return domain.Rating{}, fmt.Errorf("add rating: %w", err)
	}
	return doc.Rating, nil
}

func userChangeSet(ch ports.UserChanges) bson.M {
	set := bson.M{}
	if ch.FirstName != nil {
		set["first_name"] = *ch.FirstName
	}
	if ch.LastName != nil {
		set["last_name"] = *ch.LastName
	}
	if ch.Phone != nil {
		set["phone"] = *ch.Phone
	}
	if ch.Address != nil {
		set["address"] = *ch.Address
	}
	if ch.BusinessInfo != nil {
		set["business_info"] = *ch.BusinessInfo
	}
	if ch.ProfileImage != nil {
		set["profile_image"] = *ch.ProfileImage
	}
	if ch.PasswordHash != nil {
		set["password_hash"] = *ch.PasswordHash
	}
	if ch.IsActive != nil {
		set["is_active"] = *ch.IsActive
	}
	if ch.LastLogin != nil {
		set["last_login"] = *ch.LastLogin
	}
	if !ch.UpdatedAt.IsZero() {
		set["updated_at"] = ch.UpdatedAt
	}
	return set
}

// ratingPipeline folds value into rating.average and rating.count. Both
// expressions read the pre-update document.
func ratingPipeline(value int) mongo.Pipeline {
	count := bson.M{"$ifNull": bson.A{"$rating.count", 0}}
	average := bson.M{"$ifNull": bson.A{"$rating.average", 0}}
	next := bson.M{"$add": bson.A{count, 1}}
	return mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "rating.count", Value: next},
		{Key: "rating.average", Value: bson.M{"$divide": bson.A{
			bson.M{"$add": bson.A{bson.M{"$multiply": bson.A{average, count}}, value}},
			next,
		}}},
	}}}}
}

func (r *UserRepository) ListVendors(ctx context.Context, q ports.VendorQuery) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, total, err := findPage[mongoUser](ctx, r.col, vendorFilter(q), pageOptions(q.Page, q.Limit, vendorSort(q.SortBy, q.Ascending)))
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, total, nil
}

func vendorFilter(q ports.VendorQuery) bson.M {
	filter := bson.M{"role": domain.RoleSeller, "is_active": true}

	var and []bson.M
	if q.Search != "" {
		and = append(and, anyFieldMatches(q.Search,
			"business_info.business_name", "business_info.business_description", "first_name", "last_name"))
	}
	if q.Location != "" {
		and = append(and, anyFieldMatches(q.Location, "address.city", "address.state"))
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	if q.MinRating > 0 {
		filter["rating.average"] = bson.M{"$gte": q.MinRating}
	}
	if q.VerifiedOnly {
		filter["is_verified"] = true
	}
	return filter
}

func vendorSort(by string, ascending bool) bson.D {
	dir := -1
	if ascending {
		dir = 1
	}
	switch by {
	case "name":
		return bson.D{{Key: "business_info.business_name", Value: dir}, {Key: "_id", Value: 1}}
	case "newest":
		return bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "rating.average", Value: dir}, {Key: "rating.count", Value: -1}, {Key: "_id", Value: 1}}
	}
}

// anyFieldMatches builds a case-insensitive literal substring match over fields.
func anyFieldMatches(term string, fields ...string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make([]bson.M, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}
