package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository keeps pets and services as documents. Numeric ids come
// from a counters collection so they stay compatible with the relational
// booking rows that reference them.
type CatalogRepository struct {
	pets     *mongo.Collection
	services *mongo.Collection
	counters *mongo.Collection
	logger   observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		pets:     db.Collection("pets"),
		services: db.Collection("services"),
		counters: db.Collection("counters"),
		logger:   logger,
	}
}

type PetDoc struct {
	ID          int64     `bson:"_id"`
	OwnerID     int64     `bson:"owner_id"`
	Name        string    `bson:"name"`
	Type        string    `bson:"type"`
	Breed       string    `bson:"breed"`
	Age         int       `bson:"age"`
	Description string    `bson:"description"`
	ImageURL    string    `bson:"image_url"`
	CreatedAt   time.Time `bson:"created_at"`
}

type ServiceDoc struct {
	ID              int64     `bson:"_id"`
	ProviderID      int64     `bson:"provider_id"`
	Title           string    `bson:"title"`
	Description     string    `bson:"description"`
	Price           float64   `bson:"price"`
	DurationMinutes int       `bson:"duration_minutes"`
	Type            string    `bson:"type"`
	ImageURL        string    `bson:"image_url"`
	CreatedAt       time.Time `bson:"created_at"`
}

func petDoc(p domain.Pet) PetDoc {
	return PetDoc{
		ID: p.ID, OwnerID: p.OwnerID, Name: p.Name, Type: p.Type, Breed: p.Breed,
		Age: p.Age, Description: p.Description, ImageURL: p.ImageURL, CreatedAt: p.CreatedAt,
	}
}

func (d PetDoc) pet() domain.Pet {
	return domain.Pet{
		ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, Type: d.Type, Breed: d.Breed,
		Age: d.Age, Description: d.Description, ImageURL: d.ImageURL, CreatedAt: d.CreatedAt,
	}
}

func serviceDoc(s domain.Service) ServiceDoc {
	return ServiceDoc{
		ID: s.ID, ProviderID: s.ProviderID, Title: s.Title, Description: s.Description, Price: s.Price,
		DurationMinutes: s.DurationMinutes, Type: s.Type, ImageURL: s.ImageURL, CreatedAt: s.CreatedAt,
	}
}

func (d ServiceDoc) service() domain.Service {
	return domain.Service{
		ID: d.ID, ProviderID: d.ProviderID, Title: d.Title, Description: d.Description, Price: d.Price,
		DurationMinutes: d.DurationMinutes, Type: d.Type, ImageURL: d.ImageURL, CreatedAt: d.CreatedAt,
	}
}

func (c *CatalogRepository) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := c.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, errors.Wrapf(err, "next %s id", name)
	}
	return counter.Seq, nil
}

func (c *CatalogRepository) CreatePet(ctx context.Context, p domain.Pet) (domain.Pet, error) {
	id, err := c.nextID(ctx, "pets")
	if err != nil {
		return domain.Pet{}, err
	}
	p.ID = id
	if _, err := c.pets.InsertOne(ctx, petDoc(p)); err != nil {
		c.logger.Error("failed to create pet", err)
		return domain.Pet{}, err
	}
	return p, nil
}

func (c *CatalogRepository) FindPet(ctx context.Context, id int64) (domain.Pet, error) {
	var doc PetDoc
	err := c.pets.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Pet{}, errors.Wrapf(domain.ErrNotFound, "pet %d", id)
	}
	if err != nil {
		c.logger.Error("failed to get pet", err)
		return domain.Pet{}, err
	}
	return doc.pet(), nil
}

func (c *CatalogRepository) ListPets(ctx context.Context) ([]domain.Pet, error) {
	cur, err := c.pets.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []PetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	pets := make([]domain.Pet, 0, len(docs))
	for _, d := range docs {
		pets = append(pets, d.pet())
	}
	return pets, nil
}

func (c *CatalogRepository) UpdatePet(ctx context.Context, p domain.Pet) error {
	res, err := c.pets.ReplaceOne(ctx, bson.M{"_id": p.ID}, petDoc(p))
	if err != nil {
		c.logger.Error("failed to update pet", err)
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "pet %d", p.ID)
	}
	return nil
}

func (c *CatalogRepository) DeletePet(ctx context.Context, id int64) error {
	res, err := c.pets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "pet %d", id)
	}
	return nil
}

func (c *CatalogRepository) CreateService(ctx context.Context, s domain.Service) (domain.Service, error) {
	id, err := c.nextID(ctx, "services")
	if err != nil {
		return domain.Service{}, err
	}
	s.ID = id
	if _, err := c.services.InsertOne(ctx, serviceDoc(s)); err != nil {
		c.logger.Error("failed to create service", err)
		return domain.Service{}, err
	}
	return s, nil
}

func (c *CatalogRepository) FindService(ctx context.Context, id int64) (domain.Service, error) {
	var doc ServiceDoc
	err := c.services.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Service{}, errors.Wrapf(domain.ErrNotFound, "service %d", id)
	}
	if err != nil {
		c.logger.Error("failed to get service", err)
		return domain.Service{}, err
	}
	return doc.service(), nil
}

func (c *CatalogRepository) ListServices(ctx context.Context) ([]domain.Service, error) {
	cur, err := c.services.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []ServiceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	services := make([]domain.Service, 0, len(docs))
	for _, d := range docs {
		services = append(services, d.service())
	}
	return services, nil
}

func (c *CatalogRepository) UpdateService(ctx context.Context, s domain.Service) error {
	res, err := c.services.ReplaceOne(ctx, bson.M{"_id": s.ID}, serviceDoc(s))
	if err != nil {
		c.logger.Error("failed to update service", err)
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "service %d", s.ID)
	}
	return nil
}

func (c *CatalogRepository) DeleteService(ctx context.Context, id int64) error {
	res, err := c.services.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "service %d", id)
	}
	return nil
}
