package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ventamovil/session-core/internal/core/domain"
)

const (
	accountsCollection  = "accounts"
	defaultMongoTimeout = 10 * time.Second
)

// MongoConfig captures the minimal settings required to establish a MongoDB
// connection for the account directory.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// ConnectMongo establishes a MongoDB client, verifies connectivity with a
// ping, and returns both the client and the selected database. A default
// timeout is applied when none is provided.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// MongoRepository persists accounts in MongoDB, for stub deployments that
// should keep their directory across restarts.
type MongoRepository struct {
	coll *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(accountsCollection)}
}

type mongoAccount struct {
	ID           string            `bson:"_id"`
	Email        string            `bson:"email"`
	PasswordHash string            `bson:"password_hash"`
	FullName     string            `bson:"full_name"`
	Phone        string            `bson:"phone,omitempty"`
	Address      string            `bson:"address,omitempty"`
	NationalID   string            `bson:"national_id,omitempty"`
	BirthDate    string            `bson:"birth_date,omitempty"`
	Status       string            `bson:"status"`
	Roles        []mongoRole       `bson:"roles"`
	LinkedID     string            `bson:"linked_account_id,omitempty"`
	CreatedAt    int64             `bson:"created_at"`
}

type mongoRole struct {
	ID   int    `bson:"id"`
	Name string `bson:"name"`
}

func (r *MongoRepository) Create(ctx context.Context, account *Account) (*Account, error) {
	id := account.ID
	if id == "" {
		id = uuid.NewString()
	}

	doc := mongoAccount{
		ID:           id,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		FullName:     account.Profile.FullName,
		Phone:        account.Profile.Phone,
		Address:      account.Profile.Address,
		NationalID:   account.Profile.NationalID,
		BirthDate:    account.Profile.BirthDate,
		Status:       account.Profile.Status,
		Roles:        toMongoRoles(account.Profile.Roles),
		LinkedID:     account.Profile.LinkedAccountID,
		CreatedAt:    time.Now().UTC().Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	return &Account{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Profile: domain.UserProfile{
			ID:              doc.ID,
			FullName:        doc.FullName,
			Email:           doc.Email,
			Phone:           doc.Phone,
			Address:         doc.Address,
			NationalID:      doc.NationalID,
			BirthDate:       doc.BirthDate,
			Status:          doc.Status,
			Roles:           fromMongoRoles(doc.Roles),
			LinkedAccountID: doc.LinkedID,
		},
	}, nil
}

func toMongoRoles(roles []domain.RoleAssignment) []mongoRole {
	out := make([]mongoRole, 0, len(roles))
	for _, role := range roles {
		out = append(out, mongoRole{ID: role.ID, Name: role.Name})
	}
	return out
}

func fromMongoRoles(roles []mongoRole) []domain.RoleAssignment {
	out := make([]domain.RoleAssignment, 0, len(roles))
	for _, role := range roles {
		out = append(out, domain.RoleAssignment{ID: role.ID, Name: role.Name})
	}
	return out
}
