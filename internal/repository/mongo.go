package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/spendlog/spendlog-go/internal/model"
)

// MongoStore is a Store over a MongoDB database with users and expenses
// collections.
type MongoStore struct {
	client   *mongo.Client
	users    *MongoUserRepository
	expenses *MongoExpenseRepository
}

// OpenMongo connects, pings the primary and ensures the indexes exist.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	users := db.Collection("users")
	expenses := db.Collection("expenses")

	_, err = users.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create users email index: %w", err)
	}

	_, err = expenses.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create expenses owner index: %w", err)
	}

	return &MongoStore{
		client:   client,
		users:    &MongoUserRepository{coll: users},
		expenses: &MongoExpenseRepository{coll: expenses},
	}, nil
}

func (s *MongoStore) Users() UserStore       { return s.users }
func (s *MongoStore) Expenses() ExpenseStore { return s.expenses }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoTime is t at the precision BSON dates keep.
func mongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d userDocument) model() *model.User {
	return &model.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// MongoUserRepository handles user persistence in MongoDB.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	now := mongoTime(time.Now())
	doc := userDocument{
		ID:           uuid.NewString(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	user.ID = doc.ID
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return doc.model(), nil
}

type expenseDocument struct {
	ID          string    `bson:"_id"`
	Owner       string    `bson:"owner"`
	Description string    `bson:"description"`
	AmountCents int64     `bson:"amount_cents"`
	Category    string    `bson:"category"`
	Date        time.Time `bson:"date"`
	Notes       string    `bson:"notes"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d expenseDocument) model() *model.Expense {
	return &model.Expense{
		ID:          d.ID,
		Owner:       d.Owner,
		Description: d.Description,
		Amount:      model.Amount(d.AmountCents),
		Category:    d.Category,
		Date:        d.Date.UTC(),
		Notes:       d.Notes,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// MongoExpenseRepository handles expense persistence in MongoDB.
type MongoExpenseRepository struct {
	coll *mongo.Collection
}

func (r *MongoExpenseRepository) ForOwner(ownerID string) OwnedExpenses {
	return &mongoOwnedExpenses{coll: r.coll, owner: ownerID}
}

type mongoOwnedExpenses struct {
	coll  *mongo.Collection
	owner string
}

func (o *mongoOwnedExpenses) scoped(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "owner", Value: o.owner}}
}

func (o *mongoOwnedExpenses) Create(ctx context.Context, expense *model.Expense) error {
	if o.owner == "" {
		return ErrOwnerRequired
	}

	now := mongoTime(time.Now())
	doc := expenseDocument{
		ID:          uuid.NewString(),
		Owner:       o.owner,
		Description: expense.Description,
		AmountCents: expense.Amount.Cents(),
		Category:    expense.Category,
		Date:        mongoTime(expense.Date),
		Notes:       expense.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := o.coll.InsertOne(ctx, doc); err != nil {
		return err
	}

	*expense = *doc.model()
	return nil
}

func (o *mongoOwnedExpenses) List(ctx context.Context) ([]model.Expense, error) {
	if o.owner == "" {
		return nil, ErrOwnerRequired
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	cur, err := o.coll.Find(ctx, bson.D{{Key: "owner", Value: o.owner}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	expenses := []model.Expense{}
	for cur.Next(ctx) {
		var doc expenseDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		expenses = append(expenses, *doc.model())
	}
	return expenses, cur.Err()
}

func (o *mongoOwnedExpenses) Get(ctx context.Context, id string) (*model.Expense, error) {
	if o.owner == "" {
		return nil, ErrOwnerRequired
	}

	var doc expenseDocument
	if err := o.coll.FindOne(ctx, o.scoped(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return doc.model(), nil
}

func (o *mongoOwnedExpenses) Update(ctx context.Context, id string, patch model.ExpensePatch) (*model.Expense, error) {
	if o.owner == "" {
		return nil, ErrOwnerRequired
	}
	if patch.IsEmpty() {
		return o.Get(ctx, id)
	}

	set := bson.D{{Key: "updated_at", Value: mongoTime(time.Now())}}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Amount != nil {
		set = append(set, bson.E{Key: "amount_cents", Value: patch.Amount.Cents()})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *patch.Category})
	}
	if patch.Date != nil {
		set = append(set, bson.E{Key: "date", Value: mongoTime(*patch.Date)})
	}
	if patch.Notes != nil {
		set = append(set, bson.E{Key: "notes", Value: *patch.Notes})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc expenseDocument
	err := o.coll.FindOneAndUpdate(ctx, o.scoped(id), bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return doc.model(), nil
}

func (o *mongoOwnedExpenses) Delete(ctx context.Context, id string) error {
	if o.owner == "" {
		return ErrOwnerRequired
	}

	result, err := o.coll.DeleteOne(ctx, o.scoped(id))
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrExpenseNotFound
	}
	return nil
}
