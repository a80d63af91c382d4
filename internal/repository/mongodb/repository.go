package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

const (
	dailyLimitsCollection = "daily_limits"
	stockAlertsCollection = "stock_alerts"
	issuesCollection      = "issues"
)

type dailyLimitDocument struct {
	SiteID        string    `bson:"_id"`
	LastAlertDate string    `bson:"last_alert_date"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// day returns the stored calendar day. A malformed value reads as no entry.
func (d dailyLimitDocument) day() (time.Time, bool) {
	day, err := models.ParseDay(d.LastAlertDate)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func dailyLimitUpdate(day, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"last_alert_date": models.CalendarDay(day).Format(models.DayLayout),
		"updated_at":      now.UTC(),
	}}
}

// MongoDBRepository stores the daily-limit map and both event logs in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
	}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// LastAlertDate returns the last alert day recorded for the site.
func (r *MongoDBRepository) LastAlertDate(ctx context.Context, siteID string) (time.Time, bool, error) {
	var doc dailyLimitDocument
	err := r.collection(dailyLimitsCollection).FindOne(ctx, bson.M{"_id": siteID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load daily limit: %w", err)
	}

	day, ok := doc.day()
	return day, ok, nil
}

// SetLastAlertDate upserts the last alert day for the site.
func (r *MongoDBRepository) SetLastAlertDate(ctx context.Context, siteID string, day time.Time) error {
	update := dailyLimitUpdate(day, time.Now())
	_, err := r.collection(dailyLimitsCollection).UpdateOne(ctx, bson.M{"_id": siteID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily limit: %w", err)
	}
	return nil
}

// StockAlertLog returns the stock alert log backed by this repository.
func (r *MongoDBRepository) StockAlertLog() *EventLog[models.StockAlertLogEntry] {
	return &EventLog[models.StockAlertLogEntry]{coll: r.collection(stockAlertsCollection)}
}

// IssueLog returns the issue log backed by this repository.
func (r *MongoDBRepository) IssueLog() *EventLog[models.IssueLogEntry] {
	return &EventLog[models.IssueLogEntry]{coll: r.collection(issuesCollection)}
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// EventLog appends documents to one collection. Insertion order follows the
// generated ObjectIDs.
type EventLog[E any] struct {
	coll *mongo.Collection
}

func (l *EventLog[E]) Append(ctx context.Context, entry E) error {
	if _, err := l.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", l.coll.Name(), err)
	}
	return nil
}

func (l *EventLog[E]) Entries(ctx context.Context) ([]E, error) {
	cursor, err := l.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", l.coll.Name(), err)
	}
	var entries []E
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", l.coll.Name(), err)
	}
	return entries, nil
}
