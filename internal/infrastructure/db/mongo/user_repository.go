package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopsence/user-service/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository stores accounts in the users collection.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email,omitempty"`
	PhoneNo      string             `bson:"phone_no,omitempty"`
	FullName     string             `bson:"full_name"`
	About        string             `bson:"about"`
	AvatarURL    string             `bson:"avatar_url"`
	AvatarID     string             `bson:"avatar_id"`
	PasswordHash string             `bson:"password_hash"`
	RefreshToken string             `bson:"refresh_token,omitempty"`
	IsVerified   bool               `bson:"is_verified"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		Username:     u.Username,
		Email:        u.Email,
		PhoneNo:      u.PhoneNo,
		FullName:     u.FullName,
		About:        u.About,
		AvatarURL:    u.AvatarURL,
		AvatarID:     u.AvatarID,
		PasswordHash: u.PasswordHash,
		RefreshToken: u.RefreshToken,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID.Hex(),
		Username:     m.Username,
		Email:        m.Email,
		PhoneNo:      m.PhoneNo,
		FullName:     m.FullName,
		About:        m.About,
		AvatarURL:    m.AvatarURL,
		AvatarID:     m.AvatarID,
		PasswordHash: m.PasswordHash,
		RefreshToken: m.RefreshToken,
		IsVerified:   m.IsVerified,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrInvalidID
	}
	return oid, nil
}

// Create inserts a new user. A unique index violation maps to domain.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(u)
	doc.ID = primitive.NewObjectID()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

// FindByUsernameOrContact matches on username or any non-empty contact field.
func (r *UserRepository) FindByUsernameOrContact(ctx context.Context, c domain.IdentityCandidates) (*domain.User, error) {
	or := bson.A{bson.M{"username": c.Username}}
	if c.Email != "" {
		or = append(or, bson.M{"email": c.Email})
	}
	if c.PhoneNo != "" {
		or = append(or, bson.M{"phone_no": c.PhoneNo})
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// UpdateFields applies patch and returns the document after the update.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, p domain.UserPatch) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, patchUpdate(p), domain.ErrUserNotFound)
}

// SwapRefreshToken sets next only while the stored token still equals
// current. The filter and the write are a single document operation.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, current, next string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid, "refresh_token": current}
	update := bson.M{"$set": bson.M{"refresh_token": next, "updated_at": time.Now().UTC()}}
	return r.findOneAndUpdate(ctx, filter, update, domain.ErrStaleRefresh)
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, notFound error) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mu mongoUser
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

// Delete removes the user and returns the deleted document.
func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return mu.toDomain(), nil
}

func patchUpdate(p domain.UserPatch) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.FullName != nil {
		set["full_name"] = *p.FullName
	}
	if p.About != nil {
		set["about"] = *p.About
	}
	if p.PasswordHash != nil {
		set["password_hash"] = *p.PasswordHash
	}
	if p.AvatarURL != nil {
		set["avatar_url"] = *p.AvatarURL
	}
	if p.AvatarID != nil {
		set["avatar_id"] = *p.AvatarID
	}
	if p.IsVerified != nil {
		set["is_verified"] = *p.IsVerified
	}

	update := bson.M{"$set": set}
	switch {
	case p.ClearRefreshToken:
		update["$unset"] = bson.M{"refresh_token": ""}
	case p.RefreshToken != nil:
		set["refresh_token"] = *p.RefreshToken
	}
	return update
}

// EnsureIndexes creates the uniqueness indexes on the users collection. Email
// and phone are sparse so accounts may omit either one.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "phone_no", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "full_name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
