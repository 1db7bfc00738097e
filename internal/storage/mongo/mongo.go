// Package mongo provides a MongoDB-backed implementation of the
// storage.Storage interface using the official mongo-driver.
//
// Users live in a single collection and are told apart by their "role"
// field. Every query projects only the fields the service reads, so large
// profile sub-documents never cross the wire.
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

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/storage"
	"github.com/aanand-mishra/alumni-match-api/internal/types"
)

// Store is the concrete implementation of storage.Storage.
// *mongo.Client is a connection pool and is safe for concurrent use.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ storage.Storage = (*Store)(nil)

// userDocument mirrors the subset of the users collection we read.
type userDocument struct {
	ID             primitive.ObjectID `bson:"_id"`
	FirstName      string             `bson:"firstName"`
	LastName       string             `bson:"lastName"`
	Email          string             `bson:"email"`
	Role           string             `bson:"role"`
	CollegeCode    string             `bson:"collegeCode"`
	ApprovalStatus string             `bson:"approvalStatus"`
	Profile        profileDocument    `bson:"profile"`
}

type profileDocument struct {
	Resume    *string  `bson:"resume"`
	Skills    []string `bson:"skills"`
	Interests []string `bson:"interests"`
}

var userProjection = bson.D{
	{Key: "firstName", Value: 1},
	{Key: "lastName", Value: 1},
	{Key: "email", Value: 1},
	{Key: "role", Value: 1},
	{Key: "collegeCode", Value: 1},
	{Key: "approvalStatus", Value: 1},
	{Key: "profile.resume", Value: 1},
	{Key: "profile.skills", Value: 1},
	{Key: "profile.interests", Value: 1},
}

// hasResume matches documents whose profile.resume exists and is not null.
var hasResume = bson.M{"$exists": true, "$ne": nil}

// New connects to the server at cfg.URI, verifies the connection with a
// ping, and returns a Store bound to cfg.Database / cfg.Collection.
func New(ctx context.Context, cfg config.Mongo) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo.New: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.New: ping: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// NewWithCollection wraps an existing collection. The caller keeps
// ownership of the underlying client; Close is a no-op.
func NewWithCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) StudentsWithResume(ctx context.Context) ([]types.User, error) {
	users, err := s.find(ctx, bson.M{
		"role":           types.RoleStudent,
		"profile.resume": hasResume,
	})
	if err != nil {
		return nil, fmt.Errorf("StudentsWithResume: %w", err)
	}
	return users, nil
}

func (s *Store) StudentWithResume(ctx context.Context, id string) (types.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.findOne(ctx, bson.M{
		"_id":            oid,
		"role":           types.RoleStudent,
		"profile.resume": hasResume,
	})
	if err != nil {
		return types.User{}, fmt.Errorf("StudentWithResume: %w", err)
	}
	return user, nil
}

func (s *Store) Student(ctx context.Context, id string) (types.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.findOne(ctx, bson.M{"_id": oid, "role": types.RoleStudent})
	if err != nil {
		return types.User{}, fmt.Errorf("Student: %w", err)
	}
	return user, nil
}

func (s *Store) ApprovedAlumni(ctx context.Context) ([]types.User, error) {
	users, err := s.find(ctx, bson.M{
		"role":           types.RoleAlumni,
		"approvalStatus": types.ApprovalApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("ApprovedAlumni: %w", err)
	}
	return users, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]types.User, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetProjection(userProjection))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]types.User, 0)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		users = append(users, doc.toUser())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}

	return users, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var doc userDocument
	err := s.coll.FindOne(ctx, filter, options.FindOne().SetProjection(userProjection)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.User{}, storage.ErrNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("find one: %w", err)
	}
	return doc.toUser(), nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return oid, nil
}

func (d userDocument) toUser() types.User {
	return types.User{
		ID:             d.ID.Hex(),
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		Role:           d.Role,
		CollegeCode:    d.CollegeCode,
		ApprovalStatus: d.ApprovalStatus,
		Profile: types.Profile{
			Resume:    d.Profile.Resume,
			Skills:    types.NonNil(d.Profile.Skills),
			Interests: types.NonNil(d.Profile.Interests),
		},
	}
}
